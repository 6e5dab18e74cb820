package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeService(t *testing.T) {
	assert.Equal(t, "turn_on", NormalizeService(""))
	assert.Equal(t, "turn_on", NormalizeService("an"))
	assert.Equal(t, "turn_on", NormalizeService("ein"))
	assert.Equal(t, "turn_on", NormalizeService(" ON "))
	assert.Equal(t, "turn_off", NormalizeService("aus"))
	assert.Equal(t, "turn_off", NormalizeService("off"))
	assert.Equal(t, "toggle", NormalizeService("umschalten"))
	assert.Equal(t, "set_temperature", NormalizeService("set_temperature"))
	assert.Equal(t, "play_media", NormalizeService("play_media"), "unknown services pass through")
}

func TestNormalizeDataBrightness(t *testing.T) {
	out := NormalizeData(map[string]interface{}{"brightness": float64(128)})
	assert.Equal(t, 50, out["brightness_pct"], "0-255 scale rescales to percent")

	out = NormalizeData(map[string]interface{}{"brightness": float64(50)})
	assert.Equal(t, 50, out["brightness_pct"], "percent scale passes through")

	out = NormalizeData(map[string]interface{}{"brightness": float64(255)})
	assert.Equal(t, 100, out["brightness_pct"])

	out = NormalizeData(map[string]interface{}{"brightness": float64(0)})
	assert.Equal(t, 1, out["brightness_pct"], "clamped to a visible minimum")

	out = NormalizeData(map[string]interface{}{"helligkeit": "75"})
	assert.Equal(t, 75, out["brightness_pct"], "string numbers are accepted")
}

func TestNormalizeDataColorTemp(t *testing.T) {
	out := NormalizeData(map[string]interface{}{"color_temp": float64(250)})
	assert.Equal(t, 4000, out["color_temp_kelvin"], "mired converts to kelvin")

	out = NormalizeData(map[string]interface{}{"kelvin": float64(2700)})
	assert.Equal(t, 2700, out["color_temp_kelvin"])

	out = NormalizeData(map[string]interface{}{"farbtemperatur": float64(6500)})
	assert.Equal(t, 6500, out["color_temp_kelvin"])
}

func TestNormalizeDataColor(t *testing.T) {
	out := NormalizeData(map[string]interface{}{
		"farbe": []interface{}{float64(255), float64(0), float64(0)},
	})
	assert.Equal(t, []int{255, 0, 0}, out["rgb_color"])

	out = NormalizeData(map[string]interface{}{"color": "red"})
	assert.NotContains(t, out, "rgb_color", "non-array colors are dropped")
}

func TestNormalizeDataPosition(t *testing.T) {
	out := NormalizeData(map[string]interface{}{"pos": float64(150)})
	assert.Equal(t, 100, out["position"])

	out = NormalizeData(map[string]interface{}{"position": float64(-5)})
	assert.Equal(t, 0, out["position"])
}

func TestNormalizeDataVolume(t *testing.T) {
	out := NormalizeData(map[string]interface{}{"volume": float64(50)})
	assert.Equal(t, 0.5, out["volume_level"], "percent volume converts to fraction")

	out = NormalizeData(map[string]interface{}{"lautstärke": float64(0.3)})
	assert.Equal(t, 0.3, out["volume_level"])

	out = NormalizeData(map[string]interface{}{"volume": float64(500)})
	assert.Equal(t, 1.0, out["volume_level"], "percent volume clamps to 100 before rescaling")

	out = NormalizeData(map[string]interface{}{"volume": float64(-5)})
	assert.Equal(t, 0.0, out["volume_level"])
}

func TestNormalizeDataTemperatureAndMode(t *testing.T) {
	out := NormalizeData(map[string]interface{}{"temperatur": float64(21.5)})
	assert.Equal(t, 21.5, out["temperature"])

	out = NormalizeData(map[string]interface{}{"modus": "heat"})
	assert.Equal(t, "heat", out["hvac_mode"])
}

func TestNormalizeDataPassthroughAndNil(t *testing.T) {
	out := NormalizeData(map[string]interface{}{"effect": "rainbow"})
	assert.Equal(t, "rainbow", out["effect"])

	out = NormalizeData(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
