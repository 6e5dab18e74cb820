package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSelectTierAuto(t *testing.T) {
	o := New("auto", testLogger())

	assert.Equal(t, TierNone, o.SelectTier(0))
	assert.Equal(t, TierNone, o.SelectTier(14))
	assert.Equal(t, TierMedium, o.SelectTier(15))
	assert.Equal(t, TierMedium, o.SelectTier(49))
	assert.Equal(t, TierHigh, o.SelectTier(50))
	assert.Equal(t, TierHigh, o.SelectTier(500))
}

func TestSelectTierConfiguredWins(t *testing.T) {
	o := New("high", testLogger())
	assert.Equal(t, TierHigh, o.SelectTier(1))

	o = New("none", testLogger())
	assert.Equal(t, TierNone, o.SelectTier(500))
}

func TestNewFallsBackToAuto(t *testing.T) {
	o := New("bogus", testLogger())
	assert.Equal(t, TierNone, o.SelectTier(1))
	assert.Equal(t, TierHigh, o.SelectTier(100))
}

func TestOptimizePromptNoneKeepsOriginal(t *testing.T) {
	o := New("auto", testLogger())
	original := "You control the smart home.\nBe concise."

	assert.Equal(t, original, o.OptimizePrompt(original, 5, true))
}

func TestOptimizePromptHighReplacesEntirely(t *testing.T) {
	o := New("auto", testLogger())
	out := o.OptimizePrompt("long configured prompt", 100, true)

	assert.Contains(t, out, "JSON only!")
	assert.Contains(t, out, `"action":"control_multiple"`)
	assert.NotContains(t, out, "long configured prompt")
}

func TestMediumCompressionStripsExamples(t *testing.T) {
	o := New("auto", testLogger())
	original := strings.Join([]string{
		"You control the smart home.",
		"Beispiel: turn on the light",
		`{"action":"control","entity_id":"light.kitchen"}`,
		"",
		"Be concise.",
	}, "\n")

	out := o.OptimizePrompt(original, 20, false)
	assert.NotContains(t, out, "Beispiel")
	assert.NotContains(t, out, "light.kitchen")
	assert.Contains(t, out, "Be concise.")
}

func TestMediumCompressionKeepsRequestedExamples(t *testing.T) {
	o := New("auto", testLogger())
	original := "Beispiel: turn on the light\n\nBe concise."

	out := o.OptimizePrompt(original, 20, true)
	assert.Contains(t, out, "Beispiel")
}

func TestMediumCompressionTruncatesNotes(t *testing.T) {
	o := New("auto", testLogger())
	longNote := "Wichtig: " + strings.Repeat("x", 80)

	out := o.OptimizePrompt(longNote, 20, true)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Less(t, len(out), len(longNote))
}

func makeEntities(n int, domain, area string) map[string]entities.ControllableEntity {
	out := make(map[string]entities.ControllableEntity, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s.device_%02d", domain, i)
		out[id] = entities.ControllableEntity{
			EntityID: id,
			Name:     fmt.Sprintf("Device %02d", i),
			Domain:   domain,
			Area:     area,
			State:    "on",
		}
	}
	return out
}

func TestCompressEntityListFormat(t *testing.T) {
	o := New("auto", testLogger())
	resolved := map[string]entities.ControllableEntity{
		"light.kitchen": {
			EntityID: "light.kitchen", Name: "Kitchen", Domain: "light",
			Area: "Kitchen", State: "on",
		},
		"sensor.temp": {
			EntityID: "sensor.temp", Name: "Temp", Domain: "sensor",
			Area: "", State: "21.5",
		},
	}

	out := o.CompressEntityList(resolved, 10)

	assert.Contains(t, out, "=== DEVICES ===")
	assert.Contains(t, out, "💡 light(1):")
	assert.Contains(t, out, "Kitchen:kitchen[on]")
	assert.Contains(t, out, "Temp:temp[21.]", "state is truncated to three characters")
	assert.Contains(t, out, "  ?: ", "area-less entities group under ?")
}

func TestCompressEntityListCapsPerArea(t *testing.T) {
	o := New("auto", testLogger())
	out := o.CompressEntityList(makeEntities(7, "light", "Living Room"), 3)

	assert.Contains(t, out, "+4 more")
	assert.Contains(t, out, "💡 light(7):")
	assert.NotContains(t, out, "Device 05")
}

func TestCompressEntityListEmpty(t *testing.T) {
	o := New("auto", testLogger())
	assert.Equal(t, entities.NoEntitiesWarning, o.CompressEntityList(nil, 10))
}

func TestComposePromptWithinBudget(t *testing.T) {
	o := New("auto", testLogger())
	out := o.ComposePrompt("instructions", nil, " context")
	assert.Equal(t, "instructions context", out)
}

func TestComposePromptBackstop(t *testing.T) {
	o := New("auto", testLogger())
	resolved := makeEntities(20, "light", "Hall")

	huge := strings.Repeat("x", MaxPromptChars+1)
	out := o.ComposePrompt(huge, resolved, "")

	assert.NotContains(t, out, "xxxx", "oversized instructions are discarded")
	assert.Contains(t, out, "JSON only!")
	assert.Contains(t, out, "+17 more", "backstop tightens the per-area cap to 3")
}
