// Package colors resolves color names, hex strings and color
// temperatures to the canonical RGB / Kelvin values used in service
// call payloads.
package colors

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Manager answers color lookups against the built-in palette plus any
// user-configured custom colors.
type Manager struct {
	colors map[string]RGB
}

// NewManager creates a color manager. Custom colors override presets of
// the same name.
func NewManager(custom map[string][]int) *Manager {
	m := &Manager{colors: make(map[string]RGB, len(presets)+len(custom))}
	for name, rgb := range presets {
		m.colors[name] = rgb
	}
	for name, v := range custom {
		if len(v) >= 3 {
			m.colors[strings.ToLower(name)] = RGB{v[0], v[1], v[2]}
		}
	}
	return m
}

// RGBColor resolves a color name or hex string to RGB. Partial matches
// are accepted so "hellblau" still finds "blau".
func (m *Manager) RGBColor(name string) (RGB, bool) {
	key := strings.ToLower(strings.TrimSpace(name))

	if rgb, ok := m.colors[key]; ok {
		return rgb, true
	}

	for n, rgb := range m.colors {
		if strings.Contains(n, key) || strings.Contains(key, n) {
			return rgb, true
		}
	}

	if strings.HasPrefix(key, "#") {
		return parseHex(key)
	}

	return RGB{}, false
}

// ColorTemp resolves a named white point ("warmweiß", "daylight") or a
// literal Kelvin value ("4000k") to Kelvin.
func (m *Manager) ColorTemp(name string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(name))

	if k, ok := temperatures[key]; ok {
		return k, true
	}

	if kelvin, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(key, "k"))); err == nil {
		if kelvin >= 1500 && kelvin <= 10000 {
			return kelvin, true
		}
	}

	return 0, false
}

// ClosestName returns the palette name nearest to rgb by squared
// Euclidean distance.
func (m *Manager) ClosestName(rgb RGB) string {
	best := "unknown"
	bestDist := int(^uint(0) >> 1)

	for name, preset := range m.colors {
		dist := 0
		for i := 0; i < 3; i++ {
			d := rgb[i] - preset[i]
			dist += d * d
		}
		if dist < bestDist || (dist == bestDist && name < best) {
			bestDist = dist
			best = name
		}
	}
	return best
}

// TempBand labels a Kelvin value as warm, neutral or cool white.
func TempBand(kelvin int) string {
	switch {
	case kelvin < 3000:
		return "warm white"
	case kelvin < 4500:
		return "neutral"
	default:
		return "cool white"
	}
}

// Scene returns the light settings for a named scene.
func Scene(name string) (ScenePreset, bool) {
	s, ok := scenes[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// AdjustBrightness scales a color toward black by a percentage.
func AdjustBrightness(rgb RGB, brightnessPct int) RGB {
	factor := float64(brightnessPct) / 100.0
	var out RGB
	for i, c := range rgb {
		v := int(float64(c) * factor)
		if v > 255 {
			v = 255
		}
		out[i] = v
	}
	return out
}

// Blend mixes two colors; ratio 0 is all c1, ratio 1 all c2.
func Blend(c1, c2 RGB, ratio float64) RGB {
	var out RGB
	for i := 0; i < 3; i++ {
		out[i] = int(float64(c1[i])*(1-ratio) + float64(c2[i])*ratio)
	}
	return out
}

// Complementary returns the RGB complement.
func Complementary(rgb RGB) RGB {
	return RGB{255 - rgb[0], 255 - rgb[1], 255 - rgb[2]}
}

// Gradient produces steps colors interpolated from c1 to c2 inclusive.
func Gradient(c1, c2 RGB, steps int) []RGB {
	if steps < 2 {
		return []RGB{c1}
	}
	out := make([]RGB, 0, steps)
	for i := 0; i < steps; i++ {
		out = append(out, Blend(c1, c2, float64(i)/float64(steps-1)))
	}
	return out
}

// Hex renders a color as a #rrggbb string.
func Hex(rgb RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// Names returns all known color names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.colors))
	for n := range m.colors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func parseHex(s string) (RGB, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return RGB{}, false
	}
	var out RGB
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return RGB{}, false
		}
		out[i] = int(v)
	}
	return out, true
}
