// Package analysis turns live sensor and device state into the textual
// reports served for status queries. Every report reads current state
// through the registry rather than the resolver's filtered attribute
// snapshot.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/sirupsen/logrus"
)

const (
	StateOn          = "on"
	StateOff         = "off"
	StateClosed      = "closed"
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// Analyzer renders status reports over a resolved entity set.
type Analyzer struct {
	registry entities.Registry
	logger   *logrus.Logger

	now func() time.Time
}

// New creates an analyzer reading live state from the registry.
func New(registry entities.Registry, logger *logrus.Logger) *Analyzer {
	return &Analyzer{registry: registry, logger: logger, now: time.Now}
}

// liveState fetches the current state for an entity, nil when the
// registry cannot serve it.
func (a *Analyzer) liveState(ctx context.Context, entityID string) *entities.State {
	state, err := a.registry.GetState(ctx, entityID)
	if err != nil {
		return nil
	}
	return state
}

type reading struct {
	name  string
	area  string
	value float64
	unit  string
}

func floatState(s *entities.State) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.State), 64)
	return v, err == nil
}

func attrString(s *entities.State, key string) string {
	v, _ := s.Attributes[key].(string)
	return v
}

func attrFloat(s *entities.State, key string) (float64, bool) {
	switch v := s.Attributes[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func areaOr(area string) string {
	if area == "" {
		return "Unknown"
	}
	return area
}

// Temperatures reports per-area temperature readings with comfort
// ratings and overall statistics.
func (a *Analyzer) Temperatures(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	byArea := make(map[string][]reading)

	for id, info := range resolved {
		if info.Domain != "sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		unit := attrString(state, "unit_of_measurement")
		if attrString(state, "device_class") != "temperature" && !strings.Contains(unit, "°C") && !strings.Contains(unit, "°F") {
			continue
		}
		value, ok := floatState(state)
		if !ok {
			continue
		}
		if unit == "" {
			unit = "°C"
		}
		area := areaOr(info.Area)
		byArea[area] = append(byArea[area], reading{name: info.Name, area: area, value: value, unit: unit})
	}

	if len(byArea) == 0 {
		return "❌ No temperature sensors found"
	}

	var b strings.Builder
	b.WriteString("🌡️ **TEMPERATURES**\n\n")

	var all []float64
	var warnings []string

	for _, area := range sortedKeys(byArea) {
		readings := byArea[area]
		values := make([]float64, len(readings))
		for i, r := range readings {
			values[i] = r.value
		}
		avg := mean(values)
		all = append(all, values...)

		var status string
		switch {
		case avg < 16:
			status = "🥶 Cold"
			warnings = append(warnings, fmt.Sprintf("%s: too cold (%.1f°C)", area, avg))
		case avg < 19:
			status = "❄️ Cool"
		case avg <= 23:
			status = "✅ Optimal"
		case avg <= 26:
			status = "☀️ Warm"
		default:
			status = "🔥 Hot"
			warnings = append(warnings, fmt.Sprintf("%s: too warm (%.1f°C)", area, avg))
		}

		fmt.Fprintf(&b, "📍 **%s** %s\n", area, status)
		sort.Slice(readings, func(i, j int) bool { return readings[i].value > readings[j].value })
		for _, r := range readings {
			fmt.Fprintf(&b, "   • %s: %.1f%s\n", r.name, r.value, r.unit)
		}
		if len(readings) > 1 {
			fmt.Fprintf(&b, "   📊 Average: %.1f°C\n", avg)
		}
		b.WriteString("\n")
	}

	b.WriteString("═══════════════════════════\n")
	b.WriteString("📊 **STATISTICS:**\n")
	fmt.Fprintf(&b, "   • Average: %.1f°C\n", mean(all))
	fmt.Fprintf(&b, "   • Minimum: %.1f°C\n", minOf(all))
	fmt.Fprintf(&b, "   • Maximum: %.1f°C\n", maxOf(all))
	fmt.Fprintf(&b, "   • Spread: %.1f°C\n", maxOf(all)-minOf(all))
	if len(all) > 2 {
		fmt.Fprintf(&b, "   • Median: %.1f°C\n", median(all))
		fmt.Fprintf(&b, "   • Std.Dev.: %.2f°C\n", stdev(all))
	}
	fmt.Fprintf(&b, "   • Sensors: %d\n", len(all))

	appendWarnings(&b, warnings)
	return b.String()
}

// Humidity reports per-area relative humidity with dryness/dampness
// ratings.
func (a *Analyzer) Humidity(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	byArea := make(map[string][]reading)

	for id, info := range resolved {
		if info.Domain != "sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		nameLower := strings.ToLower(info.Name)
		isHumidity := attrString(state, "device_class") == "humidity"
		for _, w := range []string{"feucht", "humidity", "luftfeuchte", "rh"} {
			if strings.Contains(nameLower, w) {
				isHumidity = true
			}
		}
		if !isHumidity {
			continue
		}

		value, ok := floatState(state)
		if !ok || value > 100 {
			continue
		}
		area := areaOr(info.Area)
		byArea[area] = append(byArea[area], reading{name: info.Name, area: area, value: value})
	}

	if len(byArea) == 0 {
		return "❌ No humidity sensors found"
	}

	var b strings.Builder
	b.WriteString("💧 **HUMIDITY**\n\n")

	var all []float64
	var warnings []string

	for _, area := range sortedKeys(byArea) {
		readings := byArea[area]
		values := make([]float64, len(readings))
		for i, r := range readings {
			values[i] = r.value
		}
		avg := mean(values)
		all = append(all, values...)

		var status string
		switch {
		case avg < 30:
			status = "⚠️ Too dry"
			warnings = append(warnings, fmt.Sprintf("%s: too dry (%.0f%%), consider a humidifier", area, avg))
		case avg < 40:
			status = "🔸 Slightly dry"
		case avg <= 60:
			status = "✅ Optimal"
		case avg <= 70:
			status = "🔸 Slightly damp"
		default:
			status = "⚠️ Too damp"
			warnings = append(warnings, fmt.Sprintf("%s: too damp (%.0f%%), ventilation recommended", area, avg))
		}

		fmt.Fprintf(&b, "📍 **%s** %s\n", area, status)
		for _, r := range readings {
			fmt.Fprintf(&b, "   • %s: %.0f%%\n", r.name, r.value)
		}
		b.WriteString("\n")
	}

	b.WriteString("═══════════════════════════\n")
	b.WriteString("📊 **STATISTICS:**\n")
	avg := mean(all)
	fmt.Fprintf(&b, "   • Average: %.0f%%", avg)
	switch {
	case avg < 30:
		b.WriteString(" ⚠️ Too dry!\n")
	case avg > 60:
		b.WriteString(" ⚠️ Too damp!\n")
	default:
		b.WriteString(" ✓ OK\n")
	}
	fmt.Fprintf(&b, "   • Minimum: %.0f%%\n", minOf(all))
	fmt.Fprintf(&b, "   • Maximum: %.0f%%\n", maxOf(all))
	fmt.Fprintf(&b, "   • Sensors: %d\n", len(all))

	appendWarnings(&b, warnings)
	return b.String()
}

type opening struct {
	name     string
	area     string
	duration time.Duration
}

// Windows reports open windows, doors and garage doors with how long
// each has been open.
func (a *Analyzer) Windows(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	open := map[string][]opening{}
	closed := map[string]int{}

	for id, info := range resolved {
		if info.Domain != "binary_sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		deviceClass := attrString(state, "device_class")
		nameLower := strings.ToLower(info.Name)

		var category string
		switch {
		case deviceClass == "window" || containsAnyWord(nameLower, "fenster", "window"):
			category = "windows"
		case deviceClass == "garage_door" || containsAnyWord(nameLower, "garage", "tor"):
			category = "garage"
		case deviceClass == "door" || containsAnyWord(nameLower, "tür", "door", "haustür", "eingang"):
			category = "doors"
		case deviceClass == "opening":
			category = "other"
		default:
			continue
		}

		if state.State == StateOn {
			open[category] = append(open[category], opening{
				name:     info.Name,
				area:     areaOr(info.Area),
				duration: a.now().Sub(state.LastChanged),
			})
		} else {
			closed[category]++
		}
	}

	var b strings.Builder
	b.WriteString("🪟 **DOORS & WINDOWS**\n\n")

	totalOpen := 0
	for _, items := range open {
		totalOpen += len(items)
	}
	totalClosed := 0
	for _, n := range closed {
		totalClosed += n
	}

	if totalOpen == 0 {
		b.WriteString("✅ **Everything closed!**\n\n")
		fmt.Fprintf(&b, "   • %d windows closed\n", closed["windows"])
		fmt.Fprintf(&b, "   • %d doors closed\n", closed["doors"])
		if closed["garage"] > 0 {
			fmt.Fprintf(&b, "   • %d garage doors closed\n", closed["garage"])
		}
		return b.String()
	}

	writeCategory := func(header string, items []opening, withArea bool) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d):**\n", header, len(items))
		sort.Slice(items, func(i, j int) bool { return items[i].duration > items[j].duration })
		for _, item := range items {
			if withArea {
				fmt.Fprintf(&b, "   ⚠️ %s (%s) - open for %s\n", item.name, item.area, FormatDuration(item.duration))
			} else {
				fmt.Fprintf(&b, "   ⚠️ %s - open for %s\n", item.name, FormatDuration(item.duration))
			}
		}
		b.WriteString("\n")
	}

	writeCategory("🪟 **Open windows", open["windows"], true)
	writeCategory("🚪 **Open doors", open["doors"], true)
	writeCategory("🚗 **Open garage doors", open["garage"], false)

	b.WriteString("═══════════════════════════\n")
	fmt.Fprintf(&b, "📊 **TOTAL:** %d open, %d closed\n", totalOpen, totalClosed)
	fmt.Fprintf(&b, "\n⚠️ **ATTENTION:** %d opening(s), check heating costs and security!", totalOpen)
	return b.String()
}

type activeDevice struct {
	name  string
	extra string
}

// PoweredOn lists every device currently on, grouped by domain and
// area, with brightness, playback or power detail where available.
func (a *Analyzer) PoweredOn(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	type domainMeta struct {
		icon string
		name string
	}
	domainOrder := []string{"light", "switch", "climate", "media_player", "fan", "cover", "vacuum"}
	meta := map[string]domainMeta{
		"light":        {"💡", "Lights"},
		"switch":       {"🔌", "Switches"},
		"climate":      {"🌡️", "Climate"},
		"media_player": {"🔊", "Media"},
		"fan":          {"🌀", "Fans"},
		"cover":        {"🪟", "Covers"},
		"vacuum":       {"🧹", "Vacuums"},
	}

	onDevices := map[string]map[string][]activeDevice{}
	offCount := map[string]int{}
	var totalPower float64
	havePower := false

	for id, info := range resolved {
		if _, tracked := meta[info.Domain]; !tracked {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		isOn := false
		var extra []string

		switch info.Domain {
		case "light":
			isOn = state.State == StateOn
			if isOn {
				if brightness, ok := attrFloat(state, "brightness"); ok && brightness > 0 {
					extra = append(extra, fmt.Sprintf("%d%%", int(brightness/255*100)))
				}
				if rgb, ok := state.Attributes["rgb_color"]; ok {
					extra = append(extra, fmt.Sprintf("RGB:%v", rgb))
				}
			}
		case "switch":
			isOn = state.State == StateOn
			if power, ok := attrFloat(state, "current_power_w"); ok && power > 0 {
				extra = append(extra, fmt.Sprintf("%.0fW", power))
				totalPower += power
				havePower = true
			}
		case "climate":
			isOn = state.State != StateOff && state.State != StateUnavailable && state.State != StateUnknown
			if isOn {
				if target, ok := attrFloat(state, "temperature"); ok {
					extra = append(extra, fmt.Sprintf("target:%.1f°C", target))
				}
				if current, ok := attrFloat(state, "current_temperature"); ok {
					extra = append(extra, fmt.Sprintf("current:%.1f°C", current))
				}
				extra = append(extra, fmt.Sprintf("[%s]", state.State))
			}
		case "media_player":
			switch state.State {
			case "playing", "paused", "on", "idle":
				isOn = true
			}
			if isOn {
				if title := attrString(state, "media_title"); title != "" {
					if len(title) > 20 {
						title = title[:20]
					}
					extra = append(extra, fmt.Sprintf("%q", title))
				} else if source := attrString(state, "source"); source != "" {
					extra = append(extra, source)
				}
				extra = append(extra, fmt.Sprintf("[%s]", state.State))
			}
		case "fan":
			isOn = state.State == StateOn
			if speed, ok := attrFloat(state, "percentage"); ok && speed > 0 {
				extra = append(extra, fmt.Sprintf("%.0f%%", speed))
			}
		case "cover":
			isOn = state.State != StateClosed
			if pos, ok := attrFloat(state, "current_position"); ok {
				extra = append(extra, fmt.Sprintf("position:%.0f%%", pos))
			}
		case "vacuum":
			isOn = state.State == "cleaning" || state.State == "returning"
			if isOn {
				extra = append(extra, fmt.Sprintf("[%s]", state.State))
			}
		}

		if isOn {
			area := areaOr(info.Area)
			if onDevices[info.Domain] == nil {
				onDevices[info.Domain] = map[string][]activeDevice{}
			}
			onDevices[info.Domain][area] = append(onDevices[info.Domain][area], activeDevice{
				name:  info.Name,
				extra: strings.Join(extra, " "),
			})
		} else {
			offCount[info.Domain]++
		}
	}

	var b strings.Builder
	b.WriteString("⚡ **DEVICES POWERED ON**\n\n")

	totalOn := 0
	for _, areas := range onDevices {
		for _, devices := range areas {
			totalOn += len(devices)
		}
	}
	totalOff := 0
	for _, n := range offCount {
		totalOff += n
	}

	if totalOn == 0 {
		b.WriteString("✅ **All devices off!**\n\n")
		for _, domain := range domainOrder {
			if offCount[domain] > 0 {
				m := meta[domain]
				fmt.Fprintf(&b, "   %s %d %s off\n", m.icon, offCount[domain], m.name)
			}
		}
		return b.String()
	}

	for _, domain := range domainOrder {
		areas, ok := onDevices[domain]
		if !ok {
			continue
		}
		m := meta[domain]
		count := 0
		for _, devices := range areas {
			count += len(devices)
		}
		fmt.Fprintf(&b, "%s **%s (%d on):**\n", m.icon, m.name, count)
		for _, area := range sortedKeys(areas) {
			fmt.Fprintf(&b, "   📍 %s:\n", area)
			for _, d := range areas[area] {
				if d.extra != "" {
					fmt.Fprintf(&b, "      • %s %s\n", d.name, d.extra)
				} else {
					fmt.Fprintf(&b, "      • %s\n", d.name)
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("═══════════════════════════\n")
	fmt.Fprintf(&b, "📊 **TOTAL:** %d on, %d off\n", totalOn, totalOff)
	if havePower {
		fmt.Fprintf(&b, "⚡ **Power draw:** %.1fW\n", totalPower)
	}
	return b.String()
}

type batteryEntry struct {
	name  string
	area  string
	level float64
}

// Batteries reports battery levels bucketed critical/low/medium/good/
// full plus unavailable sensors.
func (a *Analyzer) Batteries(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	buckets := map[string][]batteryEntry{}

	for id, info := range resolved {
		if info.Domain != "sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		nameLower := strings.ToLower(info.Name)
		if attrString(state, "device_class") != "battery" && !containsAnyWord(nameLower, "battery", "batterie", "akku") {
			continue
		}

		entry := batteryEntry{name: info.Name, area: areaOr(info.Area)}

		if state.State == StateUnavailable || state.State == StateUnknown {
			buckets["unavailable"] = append(buckets["unavailable"], entry)
			continue
		}
		level, ok := floatState(state)
		if !ok {
			buckets["unavailable"] = append(buckets["unavailable"], entry)
			continue
		}
		entry.level = level

		switch {
		case level < 10:
			buckets["critical"] = append(buckets["critical"], entry)
		case level < 20:
			buckets["low"] = append(buckets["low"], entry)
		case level < 50:
			buckets["medium"] = append(buckets["medium"], entry)
		case level < 90:
			buckets["good"] = append(buckets["good"], entry)
		default:
			buckets["full"] = append(buckets["full"], entry)
		}
	}

	total := 0
	for _, v := range buckets {
		total += len(v)
	}
	if total == 0 {
		return "❌ No battery sensors found"
	}

	byLevel := func(entries []batteryEntry) []batteryEntry {
		sort.Slice(entries, func(i, j int) bool { return entries[i].level < entries[j].level })
		return entries
	}

	var b strings.Builder
	b.WriteString("🔋 **BATTERY STATUS**\n\n")

	if entries := buckets["critical"]; len(entries) > 0 {
		fmt.Fprintf(&b, "🔴 **CRITICAL (<10%%) - %d device(s):**\n", len(entries))
		for _, e := range byLevel(entries) {
			fmt.Fprintf(&b, "   ⚠️ %s (%s): %.0f%% - REPLACE NOW!\n", e.name, e.area, e.level)
		}
		b.WriteString("\n")
	}
	if entries := buckets["low"]; len(entries) > 0 {
		fmt.Fprintf(&b, "🟠 **Low (10-20%%) - %d device(s):**\n", len(entries))
		for _, e := range byLevel(entries) {
			fmt.Fprintf(&b, "   ⚡ %s (%s): %.0f%%\n", e.name, e.area, e.level)
		}
		b.WriteString("\n")
	}
	if entries := buckets["medium"]; len(entries) > 0 {
		fmt.Fprintf(&b, "🟡 **Medium (20-50%%) - %d device(s):**\n", len(entries))
		sorted := byLevel(entries)
		for i, e := range sorted {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "   • %s (%s): %.0f%%\n", e.name, e.area, e.level)
		}
		if len(sorted) > 5 {
			fmt.Fprintf(&b, "   ... and %d more\n", len(sorted)-5)
		}
		b.WriteString("\n")
	}
	if entries := buckets["good"]; len(entries) > 0 {
		fmt.Fprintf(&b, "🟢 **Good (50-90%%) - %d device(s):**\n", len(entries))
		sorted := byLevel(entries)
		for i, e := range sorted {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "   ✓ %s: %.0f%%\n", e.name, e.level)
		}
		if len(sorted) > 3 {
			fmt.Fprintf(&b, "   ... and %d more OK\n", len(sorted)-3)
		}
		b.WriteString("\n")
	}
	if entries := buckets["full"]; len(entries) > 0 {
		fmt.Fprintf(&b, "✅ **Full (>90%%) - %d device(s)**\n\n", len(entries))
	}

	var levels []float64
	for _, bucket := range []string{"critical", "low", "medium", "good", "full"} {
		for _, e := range buckets[bucket] {
			levels = append(levels, e.level)
		}
	}

	b.WriteString("═══════════════════════════\n")
	b.WriteString("📊 **STATISTICS:**\n")
	if len(levels) > 0 {
		fmt.Fprintf(&b, "   • Average: %.0f%%\n", mean(levels))
		fmt.Fprintf(&b, "   • Lowest: %.0f%%\n", minOf(levels))
	}
	fmt.Fprintf(&b, "   • Sensors: %d\n", len(levels))

	if urgent := len(buckets["critical"]) + len(buckets["low"]); urgent > 0 {
		fmt.Fprintf(&b, "\n🚨 **%d battery(ies) need replacing soon!**", urgent)
	}
	return b.String()
}

type offlineDevice struct {
	name     string
	area     string
	domain   string
	entityID string
	duration time.Duration
	hasSince bool
}

// Offline reports unavailable devices grouped by area.
func (a *Analyzer) Offline(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	var offline []offlineDevice
	online := 0

	for id, info := range resolved {
		state := a.liveState(ctx, id)
		if state == nil {
			offline = append(offline, offlineDevice{
				name:     info.Name,
				area:     areaOr(info.Area),
				domain:   info.Domain,
				entityID: id,
			})
			continue
		}
		if state.State == StateUnavailable || state.State == StateUnknown {
			offline = append(offline, offlineDevice{
				name:     info.Name,
				area:     areaOr(info.Area),
				domain:   info.Domain,
				entityID: id,
				duration: a.now().Sub(state.LastChanged),
				hasSince: true,
			})
		} else {
			online++
		}
	}

	var b strings.Builder
	b.WriteString("📵 **DEVICE AVAILABILITY**\n\n")

	if len(offline) == 0 {
		fmt.Fprintf(&b, "✅ **All %d devices online!**\n", online)
		return b.String()
	}

	fmt.Fprintf(&b, "⚠️ **%d device(s) offline/unavailable:**\n\n", len(offline))

	byArea := map[string][]offlineDevice{}
	for _, d := range offline {
		byArea[d.area] = append(byArea[d.area], d)
	}

	icons := map[string]string{
		"light": "💡", "switch": "🔌", "sensor": "📊",
		"binary_sensor": "⚡", "climate": "🌡️",
	}

	for _, area := range sortedKeys(byArea) {
		fmt.Fprintf(&b, "📍 **%s:**\n", area)
		devices := byArea[area]
		sort.Slice(devices, func(i, j int) bool { return devices[i].name < devices[j].name })
		for _, d := range devices {
			icon, ok := icons[d.domain]
			if !ok {
				icon = "📦"
			}
			fmt.Fprintf(&b, "   %s %s\n", icon, d.name)
			if d.hasSince {
				fmt.Fprintf(&b, "      Offline for: %s\n", FormatDuration(d.duration))
			}
			fmt.Fprintf(&b, "      ID: %s\n", d.entityID)
		}
		b.WriteString("\n")
	}

	b.WriteString("═══════════════════════════\n")
	fmt.Fprintf(&b, "📊 **TOTAL:** %d online, %d offline\n", online, len(offline))

	longOffline := 0
	for _, d := range offline {
		if d.hasSince && d.duration > 24*time.Hour {
			longOffline++
		}
	}
	if longOffline > 0 {
		fmt.Fprintf(&b, "\n🚨 **%d device(s) offline for more than a day!**", longOffline)
	}
	return b.String()
}

// Energy reports power, energy, voltage and current sensors plus a
// running-cost estimate from the configured tariff.
func (a *Analyzer) Energy(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	const tariffPerKWh = 0.30

	sensors := map[string][]reading{}

	for id, info := range resolved {
		if info.Domain != "sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		value, ok := floatState(state)
		if !ok {
			continue
		}
		unit := attrString(state, "unit_of_measurement")
		entry := reading{name: info.Name, area: areaOr(info.Area), value: value, unit: unit}

		// Device class wins over unit sniffing: "kWh" would otherwise
		// match the "W" check and count a meter as live power draw.
		deviceClass := attrString(state, "device_class")
		switch {
		case deviceClass == "power":
			sensors["power"] = append(sensors["power"], entry)
		case deviceClass == "energy":
			sensors["energy"] = append(sensors["energy"], entry)
		case deviceClass == "voltage":
			sensors["voltage"] = append(sensors["voltage"], entry)
		case deviceClass == "current":
			sensors["current"] = append(sensors["current"], entry)
		case strings.Contains(unit, "kWh") || strings.Contains(unit, "Wh"):
			sensors["energy"] = append(sensors["energy"], entry)
		case strings.Contains(unit, "W"):
			sensors["power"] = append(sensors["power"], entry)
		case strings.Contains(unit, "V"):
			sensors["voltage"] = append(sensors["voltage"], entry)
		case strings.Contains(unit, "A"):
			sensors["current"] = append(sensors["current"], entry)
		}
	}

	total := 0
	for _, v := range sensors {
		total += len(v)
	}
	if total == 0 {
		return "❌ No energy sensors found"
	}

	var b strings.Builder
	b.WriteString("⚡ **ENERGY USAGE**\n\n")

	if power := sensors["power"]; len(power) > 0 {
		b.WriteString("🔌 **Current power:**\n")
		sort.Slice(power, func(i, j int) bool { return power[i].value > power[j].value })

		var totalPower float64
		for _, s := range power {
			fmt.Fprintf(&b, "   • %s: %.1f%s\n", s.name, s.value, s.unit)
			if strings.Contains(s.unit, "kW") {
				totalPower += s.value * 1000
			} else if strings.Contains(s.unit, "W") {
				totalPower += s.value
			}
		}
		fmt.Fprintf(&b, "\n   📊 **Total: %.0fW**\n", totalPower)

		costPerHour := totalPower / 1000 * tariffPerKWh
		fmt.Fprintf(&b, "   💰 Estimated cost: %.3f€/h (%.2f€/day)\n\n", costPerHour, costPerHour*24)
	}

	if energy := sensors["energy"]; len(energy) > 0 {
		b.WriteString("📊 **Energy meters:**\n")
		sort.Slice(energy, func(i, j int) bool { return energy[i].value > energy[j].value })
		for i, s := range energy {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "   • %s: %.2f %s\n", s.name, s.value, s.unit)
		}
		b.WriteString("\n")
	}

	if voltage := sensors["voltage"]; len(voltage) > 0 {
		b.WriteString("⚡ **Voltage:**\n")
		for i, s := range voltage {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "   • %s: %.1f%s\n", s.name, s.value, s.unit)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ClimateOverview reports every climate device with mode, target and
// current temperature.
func (a *Analyzer) ClimateOverview(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	type climateDevice struct {
		name        string
		area        string
		state       string
		currentTemp float64
		hasCurrent  bool
		targetTemp  float64
		hasTarget   bool
		action      string
		preset      string
	}

	var devices []climateDevice
	for id, info := range resolved {
		if info.Domain != "climate" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		d := climateDevice{
			name:   info.Name,
			area:   areaOr(info.Area),
			state:  state.State,
			action: attrString(state, "hvac_action"),
			preset: attrString(state, "preset_mode"),
		}
		d.currentTemp, d.hasCurrent = attrFloat(state, "current_temperature")
		d.targetTemp, d.hasTarget = attrFloat(state, "temperature")
		devices = append(devices, d)
	}

	if len(devices) == 0 {
		return "❌ No climate devices found"
	}

	var b strings.Builder
	b.WriteString("🌡️ **CLIMATE OVERVIEW**\n\n")

	active := 0
	for _, d := range devices {
		if d.state != StateOff && d.state != StateUnavailable {
			active++
		}
	}
	fmt.Fprintf(&b, "📊 %d of %d devices active\n\n", active, len(devices))

	sort.Slice(devices, func(i, j int) bool { return devices[i].area < devices[j].area })
	for _, d := range devices {
		var icon string
		switch d.state {
		case "heat":
			icon = "🔥"
		case "cool":
			icon = "❄️"
		case "fan_only":
			icon = "💨"
		case StateOff:
			icon = "⭕"
		default:
			icon = "🌀"
		}

		fmt.Fprintf(&b, "%s **%s** (%s)\n", icon, d.name, d.area)
		fmt.Fprintf(&b, "   Mode: %s\n", d.state)
		if d.hasCurrent {
			fmt.Fprintf(&b, "   Current: %g°C\n", d.currentTemp)
		}
		if d.hasTarget {
			fmt.Fprintf(&b, "   Target: %g°C\n", d.targetTemp)
		}
		if d.action != "" {
			fmt.Fprintf(&b, "   Action: %s\n", d.action)
		}
		if d.preset != "" {
			fmt.Fprintf(&b, "   Preset: %s\n", d.preset)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Motion reports motion sensors split into currently active and idle,
// ordered by recency.
func (a *Analyzer) Motion(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	type motionSensor struct {
		name     string
		area     string
		active   bool
		duration time.Duration
	}

	var sensors []motionSensor
	for id, info := range resolved {
		if info.Domain != "binary_sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		deviceClass := attrString(state, "device_class")
		nameLower := strings.ToLower(info.Name)
		isMotion := deviceClass == "motion" || deviceClass == "occupancy" || deviceClass == "presence" ||
			containsAnyWord(nameLower, "bewegung", "motion", "presence", "präsenz")
		if !isMotion {
			continue
		}

		sensors = append(sensors, motionSensor{
			name:     info.Name,
			area:     areaOr(info.Area),
			active:   state.State == StateOn,
			duration: a.now().Sub(state.LastChanged),
		})
	}

	if len(sensors) == 0 {
		return "❌ No motion sensors found"
	}

	var b strings.Builder
	b.WriteString("🏃 **MOTION SENSORS**\n\n")

	var active, inactive []motionSensor
	for _, s := range sensors {
		if s.active {
			active = append(active, s)
		} else {
			inactive = append(inactive, s)
		}
	}

	if len(active) > 0 {
		fmt.Fprintf(&b, "🔴 **Active motion (%d):**\n", len(active))
		sort.Slice(active, func(i, j int) bool { return active[i].duration < active[j].duration })
		for _, s := range active {
			fmt.Fprintf(&b, "   🏃 %s (%s) - for %s\n", s.name, s.area, FormatDuration(s.duration))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "⚪ **No motion (%d):**\n", len(inactive))
	sort.Slice(inactive, func(i, j int) bool { return inactive[i].duration < inactive[j].duration })
	for i, s := range inactive {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "   • %s (%s) - last %s ago\n", s.name, s.area, FormatDuration(s.duration))
	}
	if len(inactive) > 5 {
		fmt.Fprintf(&b, "   ... and %d more\n", len(inactive)-5)
	}

	return b.String()
}

// AirQuality reports CO2, particulate and VOC readings with health
// ratings.
func (a *Analyzer) AirQuality(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	sensors := map[string][]reading{}

	for id, info := range resolved {
		if info.Domain != "sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		value, ok := floatState(state)
		if !ok {
			continue
		}
		deviceClass := attrString(state, "device_class")
		nameLower := strings.ToLower(info.Name)
		entry := reading{
			name:  info.Name,
			area:  areaOr(info.Area),
			value: value,
			unit:  attrString(state, "unit_of_measurement"),
		}

		switch {
		case deviceClass == "carbon_dioxide" || strings.Contains(nameLower, "co2"):
			sensors["co2"] = append(sensors["co2"], entry)
		case deviceClass == "pm25" || strings.Contains(nameLower, "pm2.5") || strings.Contains(nameLower, "pm25"):
			sensors["pm25"] = append(sensors["pm25"], entry)
		case deviceClass == "pm10" || strings.Contains(nameLower, "pm10"):
			sensors["pm10"] = append(sensors["pm10"], entry)
		case strings.Contains(nameLower, "voc") || strings.Contains(nameLower, "tvoc"):
			sensors["voc"] = append(sensors["voc"], entry)
		case deviceClass == "aqi" || strings.Contains(nameLower, "luftqualität") || strings.Contains(nameLower, "air quality"):
			sensors["aqi"] = append(sensors["aqi"], entry)
		}
	}

	total := 0
	for _, v := range sensors {
		total += len(v)
	}
	if total == 0 {
		return "❌ No air quality sensors found"
	}

	var b strings.Builder
	b.WriteString("🌬️ **AIR QUALITY**\n\n")

	if co2 := sensors["co2"]; len(co2) > 0 {
		b.WriteString("💨 **CO2 levels:**\n")
		sort.Slice(co2, func(i, j int) bool { return co2[i].value > co2[j].value })
		for _, s := range co2 {
			var status string
			switch {
			case s.value < 800:
				status = "✅ Very good"
			case s.value < 1000:
				status = "✓ Good"
			case s.value < 1500:
				status = "⚠️ Moderate, ventilation recommended"
			default:
				status = "🔴 Poor, ventilate now!"
			}
			fmt.Fprintf(&b, "   • %s (%s): %.0f %s - %s\n", s.name, s.area, s.value, s.unit, status)
		}
		b.WriteString("\n")
	}

	if pm25 := sensors["pm25"]; len(pm25) > 0 {
		b.WriteString("🌫️ **Particulate PM2.5:**\n")
		for _, s := range pm25 {
			var status string
			switch {
			case s.value < 10:
				status = "✅ Very good"
			case s.value < 25:
				status = "✓ Good"
			case s.value < 50:
				status = "⚠️ Moderate"
			default:
				status = "🔴 Poor"
			}
			fmt.Fprintf(&b, "   • %s: %.1f %s - %s\n", s.name, s.value, s.unit, status)
		}
		b.WriteString("\n")
	}

	if voc := sensors["voc"]; len(voc) > 0 {
		b.WriteString("🧪 **VOC (volatile compounds):**\n")
		for _, s := range voc {
			fmt.Fprintf(&b, "   • %s: %.0f %s\n", s.name, s.value, s.unit)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// AllSensors summarizes every sensor grouped by device class.
func (a *Analyzer) AllSensors(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	type sensorLine struct {
		name  string
		state string
		unit  string
	}
	byClass := map[string][]sensorLine{}

	for id, info := range resolved {
		if info.Domain != "sensor" && info.Domain != "binary_sensor" {
			continue
		}
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}

		deviceClass := attrString(state, "device_class")
		if deviceClass == "" {
			deviceClass = "unknown"
		}
		byClass[deviceClass] = append(byClass[deviceClass], sensorLine{
			name:  info.Name,
			state: state.State,
			unit:  attrString(state, "unit_of_measurement"),
		})
	}

	var b strings.Builder
	b.WriteString("📊 **SENSOR OVERVIEW**\n\n")

	total := 0
	for _, class := range sortedKeys(byClass) {
		sensors := byClass[class]
		total += len(sensors)
		fmt.Fprintf(&b, "**%s** (%d):\n", titleCase(class), len(sensors))

		sort.Slice(sensors, func(i, j int) bool { return sensors[i].name < sensors[j].name })
		for i, s := range sensors {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "   • %s: %s%s\n", s.name, s.state, s.unit)
		}
		if len(sensors) > 5 {
			fmt.Fprintf(&b, "   ... and %d more\n", len(sensors)-5)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "📊 **Total:** %d sensors\n", total)
	return b.String()
}

// DeviceSummary reports counts by availability, domain and area.
func (a *Analyzer) DeviceSummary(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	byDomain := map[string]int{}
	byArea := map[string]int{}
	online, offline, on, off := 0, 0, 0, 0

	for id, info := range resolved {
		byDomain[info.Domain]++
		area := info.Area
		if area == "" {
			area = "No area"
		}
		byArea[area]++

		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}
		if state.State == StateUnavailable || state.State == StateUnknown {
			offline++
		} else {
			online++
			switch state.State {
			case StateOn:
				on++
			case StateOff:
				off++
			}
		}
	}

	var b strings.Builder
	b.WriteString("📱 **DEVICE SUMMARY**\n\n")

	fmt.Fprintf(&b, "📊 **Total:** %d devices\n", len(resolved))
	fmt.Fprintf(&b, "   ✅ Online: %d\n", online)
	fmt.Fprintf(&b, "   ❌ Offline: %d\n", offline)
	fmt.Fprintf(&b, "   💡 On: %d\n", on)
	fmt.Fprintf(&b, "   ⭕ Off: %d\n\n", off)

	icons := map[string]string{
		"light": "💡", "switch": "🔌", "sensor": "📊",
		"binary_sensor": "⚡", "climate": "🌡️", "cover": "🪟",
		"media_player": "🔊", "fan": "🌀",
	}

	b.WriteString("**By type:**\n")
	for _, domain := range keysByCountDesc(byDomain) {
		icon, ok := icons[domain]
		if !ok {
			icon = "📦"
		}
		fmt.Fprintf(&b, "   %s %s: %d\n", icon, domain, byDomain[domain])
	}

	b.WriteString("\n**By area:**\n")
	for _, area := range keysByCountDesc(byArea) {
		fmt.Fprintf(&b, "   📍 %s: %d\n", area, byArea[area])
	}

	return b.String()
}

// LastActivity lists the 15 most recently changed entities.
func (a *Analyzer) LastActivity(ctx context.Context, resolved map[string]entities.ControllableEntity) string {
	type activity struct {
		name        string
		area        string
		state       string
		lastChanged time.Time
	}

	var activities []activity
	for id, info := range resolved {
		state := a.liveState(ctx, id)
		if state == nil {
			continue
		}
		activities = append(activities, activity{
			name:        info.Name,
			area:        info.Area,
			state:       state.State,
			lastChanged: state.LastChanged,
		})
	}

	sort.Slice(activities, func(i, j int) bool { return activities[i].lastChanged.After(activities[j].lastChanged) })

	var b strings.Builder
	b.WriteString("🕐 **RECENT ACTIVITY**\n\n")

	now := a.now()
	for i, act := range activities {
		if i >= 15 {
			break
		}
		fmt.Fprintf(&b, "• **%s**", act.name)
		if act.area != "" {
			fmt.Fprintf(&b, " (%s)", act.area)
		}
		fmt.Fprintf(&b, "\n   %s - %s ago\n", act.state, FormatDuration(now.Sub(act.lastChanged)))
	}

	if len(activities) > 15 {
		fmt.Fprintf(&b, "\n... and %d more devices", len(activities)-15)
	}
	return b.String()
}

// FormatDuration renders a duration as sec/min/h+m/d+h.
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d sec", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	default:
		return fmt.Sprintf("%dd %dh", seconds/86400, (seconds%86400)/3600)
	}
}

func appendWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("\n⚠️ **WARNINGS:**\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "   • %s\n", w)
	}
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keysByCountDesc(m map[string]int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool { return m[keys[i]] > m[keys[j]] })
	return keys
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
