// Package prompt shrinks the system prompt and entity listing before
// they are sent to the completion API, scaled to how many entities the
// model has to know about.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/sirupsen/logrus"
)

// Tier is a compression level for the system prompt.
type Tier string

const (
	TierAuto   Tier = "auto"
	TierNone   Tier = "none"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Auto-tier thresholds by entity count.
const (
	mediumThreshold = 15
	highThreshold   = 50
)

// MaxPromptChars is the hard backstop: a composed prompt past this
// size is re-rendered at the high tier no matter what the tier
// decision said.
const MaxPromptChars = 8000

// safetyValveMaxPerArea is the tightened per-area cap used when the
// backstop trips.
const safetyValveMaxPerArea = 3

const DefaultMaxPerArea = 10

// highCompressionPrompt replaces the configured prompt entirely at the
// high tier: just the command shapes and a color table, optimized for
// token count over expressiveness.
const highCompressionPrompt = `Smart Home Control - JSON only!

Control: {"action":"control","domain":"D","entity_id":"ID","service":"S","data":{}}
Multiple: {"action":"control_multiple","commands":[...]}
Query: {"action":"query","query_type":"status","sub_type":"TYPE"}

Status Types: temperatures, humidity, windows, powered_on, battery, offline, energy, climate_overview, motion, air_quality, all_sensors, device_summary, last_activity

Colors RGB: rot=[255,0,0], grün=[0,255,0], blau=[0,0,255], gelb=[255,255,0], weiß=[255,255,255], warmweiß=[255,244,229], orange=[255,165,0], pink=[255,105,180], lila=[128,0,128]

Brightness: "data":{"brightness_pct":50}
Color Temp: "data":{"color_temp_kelvin":2700}`

// noteMarkers introduce lines that get truncated at the medium tier.
var noteMarkers = []string{"wichtig:", "hinweis:", "note:", "beachte:", "tipp:", "important:"}

// exampleMarkers introduce blocks (through the next blank line) that
// get stripped at the medium tier when examples are not requested.
var exampleMarkers = []string{"Beispiel", "BEISPIEL", "Example", "EXAMPLES"}

const noteTruncateLen = 50

// Optimizer selects compression tiers and renders compact prompts.
type Optimizer struct {
	configuredTier Tier
	logger         *logrus.Logger
}

// New creates an optimizer with a configured tier ("auto" defers to
// entity count).
func New(configuredTier string, logger *logrus.Logger) *Optimizer {
	tier := Tier(configuredTier)
	switch tier {
	case TierNone, TierMedium, TierHigh, TierAuto:
	default:
		tier = TierAuto
	}
	return &Optimizer{configuredTier: tier, logger: logger}
}

// SelectTier picks a tier for the given entity count. An explicit
// configured tier always wins.
func (o *Optimizer) SelectTier(entityCount int) Tier {
	if o.configuredTier != TierAuto {
		return o.configuredTier
	}
	switch {
	case entityCount < mediumThreshold:
		return TierNone
	case entityCount < highThreshold:
		return TierMedium
	default:
		return TierHigh
	}
}

// OptimizePrompt compresses the configured system prompt for the given
// entity count.
func (o *Optimizer) OptimizePrompt(original string, entityCount int, includeExamples bool) string {
	tier := o.SelectTier(entityCount)

	o.logger.WithFields(logrus.Fields{
		"tier":     tier,
		"entities": entityCount,
	}).Debug("Optimizing system prompt")

	switch tier {
	case TierNone:
		return original
	case TierMedium:
		return mediumCompression(original, includeExamples)
	default:
		return highCompressionPrompt
	}
}

// mediumCompression strips example blocks and truncates note lines.
func mediumCompression(original string, includeExamples bool) string {
	lines := strings.Split(original, "\n")
	compressed := make([]string, 0, len(lines))
	skipUntilBlank := false

	for _, line := range lines {
		if !includeExamples && containsAny(line, exampleMarkers) {
			skipUntilBlank = true
			continue
		}
		if skipUntilBlank {
			if strings.TrimSpace(line) == "" {
				skipUntilBlank = false
			}
			continue
		}

		lower := strings.ToLower(line)
		for _, marker := range noteMarkers {
			if strings.Contains(lower, marker) {
				if idx := strings.Index(line, ":"); idx >= 0 {
					rest := line[idx+1:]
					if len(rest) > noteTruncateLen {
						line = line[:idx+1] + rest[:noteTruncateLen] + "..."
					}
				}
				break
			}
		}

		compressed = append(compressed, line)
	}

	return strings.Join(compressed, "\n")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

var domainIcons = map[string]string{
	"light":         "💡",
	"switch":        "🔌",
	"climate":       "🌡️",
	"sensor":        "📊",
	"binary_sensor": "⚡",
	"cover":         "🪟",
	"media_player":  "🔊",
	"fan":           "🌀",
	"vacuum":        "🧹",
	"lock":          "🔒",
}

// CompressEntityList renders the entity set grouped by domain then
// area, one compact token per entity: name:shortId[state truncated to
// 3 chars]. Per-area entries are capped at maxPerArea with a "+N more"
// suffix.
func (o *Optimizer) CompressEntityList(resolved map[string]entities.ControllableEntity, maxPerArea int) string {
	if len(resolved) == 0 {
		return entities.NoEntitiesWarning
	}
	if maxPerArea <= 0 {
		maxPerArea = DefaultMaxPerArea
	}

	byDomain := make(map[string]map[string][]string)
	for _, e := range resolved {
		area := e.Area
		if area == "" {
			area = "?"
		}
		if byDomain[e.Domain] == nil {
			byDomain[e.Domain] = make(map[string][]string)
		}
		state := e.State
		if len(state) > 3 {
			state = state[:3]
		}
		byDomain[e.Domain][area] = append(byDomain[e.Domain][area], fmt.Sprintf("%s:%s[%s]", e.Name, e.ShortID(), state))
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var b strings.Builder
	b.WriteString("\n\n=== DEVICES ===\n")

	for _, domain := range domains {
		icon, ok := domainIcons[domain]
		if !ok {
			icon = "📦"
		}

		total := 0
		for _, devs := range byDomain[domain] {
			total += len(devs)
		}
		fmt.Fprintf(&b, "\n%s %s(%d):\n", icon, domain, total)

		areas := make([]string, 0, len(byDomain[domain]))
		for area := range byDomain[domain] {
			areas = append(areas, area)
		}
		sort.Strings(areas)

		for _, area := range areas {
			devices := byDomain[domain][area]
			sort.Strings(devices)
			shown := devices
			if len(shown) > maxPerArea {
				shown = shown[:maxPerArea]
			}
			fmt.Fprintf(&b, "  %s: %s\n", area, strings.Join(shown, ", "))
			if remaining := len(devices) - maxPerArea; remaining > 0 {
				fmt.Fprintf(&b, "    +%d more\n", remaining)
			}
		}
	}

	return b.String()
}

// ComposePrompt builds the final system prompt from the (possibly
// optimized) instruction prompt and the entity context, applying the
// size backstop.
func (o *Optimizer) ComposePrompt(instructions string, resolved map[string]entities.ControllableEntity, entityContext string) string {
	composed := instructions + entityContext
	if len(composed) <= MaxPromptChars {
		return composed
	}

	o.logger.WithField("chars", len(composed)).Warn("Composed prompt exceeds size backstop, forcing high compression")

	return highCompressionPrompt + o.CompressEntityList(resolved, safetyValveMaxPerArea)
}
