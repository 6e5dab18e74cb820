package entities

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	states []State
	areas  map[string]string
	calls  int
}

func (f *fakeRegistry) AllStates(ctx context.Context) ([]State, error) {
	f.calls++
	return f.states, nil
}

func (f *fakeRegistry) GetState(ctx context.Context, entityID string) (*State, error) {
	for i := range f.states {
		if f.states[i].EntityID == entityID {
			return &f.states[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRegistry) AreaOf(entityID string) string {
	return f.areas[entityID]
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testStates() []State {
	return []State{
		{EntityID: "light.kitchen", State: "on", Attributes: map[string]interface{}{
			"friendly_name": "Kitchen Light",
			"brightness":    float64(128),
			"icon":          "mdi:lamp",
		}},
		{EntityID: "light.bedroom", State: "off", Attributes: map[string]interface{}{
			"friendly_name": "Bedroom Light",
		}},
		{EntityID: "sensor.kitchen_temp", State: "21.5", Attributes: map[string]interface{}{
			"friendly_name":       "Kitchen Temperature",
			"unit_of_measurement": "°C",
			"device_class":        "temperature",
		}},
		{EntityID: "persistent_notification.update", State: "notifying"},
	}
}

func testAreas() map[string]string {
	return map[string]string{
		"light.kitchen":       "Kitchen",
		"sensor.kitchen_temp": "Kitchen",
	}
}

func TestResolveEmptySelection(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), nil, nil, true, testLogger())

	resolved, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Zero(t, reg.calls, "empty selection must not hit the registry")
}

func TestResolveSelectedEntities(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), []string{"light.kitchen"}, nil, true, testLogger())

	resolved, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	e := resolved["light.kitchen"]
	assert.Equal(t, "Kitchen Light", e.Name)
	assert.Equal(t, "light", e.Domain)
	assert.Equal(t, "Kitchen", e.Area)
	assert.Equal(t, "on", e.State)
	assert.Contains(t, e.Attributes, "brightness")
	assert.NotContains(t, e.Attributes, "icon", "attributes are filtered per domain")
}

func TestResolveSelectedAreas(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), nil, []string{"Kitchen"}, true, testLogger())

	resolved, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Contains(t, resolved, "light.kitchen")
	assert.Contains(t, resolved, "sensor.kitchen_temp")
	assert.NotContains(t, resolved, "light.bedroom", "bedroom has no area assignment")
}

func TestResolveExcludesSensorsOnDemand(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), []string{"light.kitchen", "sensor.kitchen_temp"}, nil, true, testLogger())

	resolved, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Contains(t, resolved, "light.kitchen")
	assert.NotContains(t, resolved, "sensor.kitchen_temp")
}

func TestResolveSensorsDisabledGlobally(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), []string{"sensor.kitchen_temp"}, nil, false, testLogger())

	resolved, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolveIgnoresUnknownDomains(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), []string{"persistent_notification.update"}, nil, true, testLogger())

	resolved, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	cache := NewSnapshotCache()

	current := time.Now()
	cache.now = func() time.Time { return current }

	r := NewResolver(reg, cache, []string{"light.kitchen"}, nil, true, testLogger())

	_, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.calls, "second resolve inside the TTL must be served from cache")

	current = current.Add(6 * time.Second)
	_, err = r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.calls, "expired snapshot forces a recompute")
	assert.Equal(t, int64(2), cache.Refreshes())
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	cache := NewSnapshotCache()
	r := NewResolver(reg, cache, []string{"light.kitchen"}, nil, true, testLogger())

	_, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)

	cache.Invalidate()

	_, err = r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.calls)
}

func TestCacheKeyOrderInsensitive(t *testing.T) {
	cache := NewSnapshotCache()
	a := NewResolver(nil, cache, []string{"light.a", "light.b"}, []string{"x", "y"}, true, testLogger())
	b := NewResolver(nil, cache, []string{"light.b", "light.a"}, []string{"y", "x"}, true, testLogger())

	assert.Equal(t, a.cacheKey(true), b.cacheKey(true))
	assert.NotEqual(t, a.cacheKey(true), a.cacheKey(false))
}

func TestIsControllable(t *testing.T) {
	reg := &fakeRegistry{states: testStates(), areas: testAreas()}
	r := NewResolver(reg, NewSnapshotCache(), []string{"light.kitchen", "sensor.kitchen_temp"}, nil, true, testLogger())

	ok, err := r.IsControllable(context.Background(), "light.kitchen")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsControllable(context.Background(), "sensor.kitchen_temp")
	require.NoError(t, err)
	assert.False(t, ok, "sensors are never controllable")
}

func TestShortID(t *testing.T) {
	e := ControllableEntity{EntityID: "light.kitchen_main"}
	assert.Equal(t, "kitchen_main", e.ShortID())

	e = ControllableEntity{EntityID: "noprefix"}
	assert.Equal(t, "noprefix", e.ShortID())
}
