package homeassistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newRegistryServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config/area_registry", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"area_id":"kitchen","name":"Kitchen"},
			{"area_id":"attic","name":"Attic"}
		]`))
	})
	mux.HandleFunc("/api/config/device_registry", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"dev-1","name":"Hue Bridge","area_id":"kitchen"},
			{"id":"dev-2","name":"Orphan Hub","area_id":""}
		]`))
	})
	mux.HandleFunc("/api/config/entity_registry", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"entity_id":"light.direct","device_id":"","area_id":"attic"},
			{"entity_id":"light.via_device","device_id":"dev-1","area_id":""},
			{"entity_id":"light.unassigned","device_id":"dev-2","area_id":""},
			{"entity_id":"light.own_area","device_id":"dev-1","area_id":"attic"}
		]`))
	})
	mux.HandleFunc("/api/states", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"entity_id":"light.via_device","state":"on","attributes":{"friendly_name":"Bridge Light"}}
		]`))
	})
	return httptest.NewServer(mux)
}

func TestRegistryAreaFallback(t *testing.T) {
	srv := newRegistryServer()
	defer srv.Close()

	reg := NewRegistry(NewRESTClient(srv.URL, "token", quietLogger()), time.Minute, quietLogger())
	require.NoError(t, reg.Refresh(context.Background()))

	assert.Equal(t, "Attic", reg.AreaOf("light.direct"))
	assert.Equal(t, "Kitchen", reg.AreaOf("light.via_device"), "falls back to the device's area")
	assert.Equal(t, "Attic", reg.AreaOf("light.own_area"), "the entity's own area wins over the device's")
	assert.Empty(t, reg.AreaOf("light.unassigned"), "device without an area yields no assignment")
	assert.Empty(t, reg.AreaOf("light.unknown"))
}

func TestRegistryAllStatesRefreshesMapping(t *testing.T) {
	srv := newRegistryServer()
	defer srv.Close()

	reg := NewRegistry(NewRESTClient(srv.URL, "token", quietLogger()), time.Minute, quietLogger())

	states, err := reg.AllStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "light.via_device", states[0].EntityID)

	// The stale read above rebuilt the mapping without an explicit Refresh.
	assert.Equal(t, "Kitchen", reg.AreaOf("light.via_device"))
}

func TestDoRequestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := &restClient{
		baseURL:    srv.URL,
		token:      "token",
		httpClient: &http.Client{Timeout: time.Second},
		logger:     quietLogger(),
		maxRetries: 0,
		retryDelay: time.Millisecond,
	}

	_, err := c.DoRequest(context.Background(), http.MethodGet, "/api/states", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
}

func TestDoRequestUnauthorized(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &restClient{
		baseURL:    srv.URL,
		token:      "token",
		httpClient: &http.Client{Timeout: time.Second},
		logger:     quietLogger(),
		maxRetries: 3,
		retryDelay: time.Millisecond,
	}

	_, err := c.DoRequest(context.Background(), http.MethodGet, "/api/states", nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 1, hits, "auth failures are not retried")
}
