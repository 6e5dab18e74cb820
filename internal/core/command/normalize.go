package command

import (
	"encoding/json"
	"strconv"
	"strings"
)

// serviceAliases maps German and English service synonyms onto the
// platform's service names. Unknown services pass through untouched.
var serviceAliases = map[string]string{
	"on":          "turn_on",
	"an":          "turn_on",
	"ein":         "turn_on",
	"einschalten": "turn_on",
	"turn_on":     "turn_on",

	"off":         "turn_off",
	"aus":         "turn_off",
	"ausschalten": "turn_off",
	"turn_off":    "turn_off",

	"toggle":     "toggle",
	"umschalten": "toggle",
	"wechseln":   "toggle",

	"set_temperature": "set_temperature",
	"set_hvac_mode":   "set_hvac_mode",
	"set_position":    "set_position",
	"open_cover":      "open_cover",
	"close_cover":     "close_cover",
	"stop_cover":      "stop_cover",
}

// NormalizeService maps a service synonym to the platform name,
// defaulting to turn_on when empty.
func NormalizeService(service string) string {
	if service == "" {
		return "turn_on"
	}
	key := strings.ToLower(strings.TrimSpace(service))
	if mapped, ok := serviceAliases[key]; ok {
		return mapped
	}
	return service
}

// NormalizeData rewrites model-flavored service data into the shapes
// the platform accepts: percent brightness, kelvin color temperature,
// clamped positions and fractional volume. Unknown keys pass through.
func NormalizeData(data map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	if data == nil {
		return result
	}

	for key, value := range data {
		switch strings.ToLower(key) {
		case "rgb", "color", "rgb_color", "farbe":
			if rgb, ok := toRGB(value); ok {
				result["rgb_color"] = rgb
			}

		case "brightness":
			if v, ok := toFloat(value); ok {
				if v > 100 {
					// 0-255 scale.
					result["brightness_pct"] = clampInt(int(v/255*100), 1, 100)
				} else {
					result["brightness_pct"] = clampInt(int(v), 1, 100)
				}
			}

		case "brightness_pct", "helligkeit":
			if v, ok := toFloat(value); ok {
				result["brightness_pct"] = clampInt(int(v), 1, 100)
			}

		case "color_temp":
			// Mired to kelvin.
			if v, ok := toFloat(value); ok && v > 0 {
				result["color_temp_kelvin"] = int(1000000 / v)
			}

		case "color_temp_kelvin", "kelvin", "farbtemperatur":
			if v, ok := toFloat(value); ok {
				result["color_temp_kelvin"] = int(v)
			}

		case "temperature", "temperatur", "temp":
			if v, ok := toFloat(value); ok {
				result["temperature"] = v
			}

		case "hvac_mode", "mode", "modus":
			result["hvac_mode"] = toString(value)

		case "position", "pos":
			if v, ok := toFloat(value); ok {
				result["position"] = clampInt(int(v), 0, 100)
			}

		case "volume", "volume_level", "lautstärke":
			if v, ok := toFloat(value); ok {
				if v > 1 {
					v = float64(clampInt(int(v), 0, 100)) / 100
				} else if v < 0 {
					v = 0
				}
				result["volume_level"] = v
			}

		default:
			result[key] = value
		}
	}

	return result
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return ""
}

func toRGB(v interface{}) ([]int, bool) {
	raw, ok := v.([]interface{})
	if !ok || len(raw) < 3 {
		return nil, false
	}
	rgb := make([]int, 3)
	for i := 0; i < 3; i++ {
		f, ok := toFloat(raw[i])
		if !ok {
			return nil, false
		}
		rgb[i] = int(f)
	}
	return rgb, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
