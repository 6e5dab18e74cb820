package command

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")

	// Candidate extraction: flat objects first, then the shortest
	// brace-delimited span.
	flatObjectRe = regexp.MustCompile(`\{[^{}]*\}`)
	anyObjectRe  = regexp.MustCompile(`(?s)\{.*?\}`)

	actionFieldRe = regexp.MustCompile(`"action"\s*:\s*"(\w+)"`)
	entityFieldRe = regexp.MustCompile(`"entity_id"\s*:\s*"([^"]+)"`)
	colorFieldRe  = regexp.MustCompile(`"(?:color|rgb_color|rgb)"\s*:\s*\[\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)
	brightFieldRe = regexp.MustCompile(`"brightness(?:_pct)?"\s*:\s*(\d+)`)
	stateFieldRe  = regexp.MustCompile(`"(?:state|service)"\s*:\s*"(\w+)"`)
	typeFieldRe   = regexp.MustCompile(`"(?:type|sub_type)"\s*:\s*"(\w+)"`)
)

// Parse extracts a command from raw model output. Markdown fences are
// stripped, then JSON candidates are tried in order of strictness, and
// as a last resort the broken text is reassembled field by field.
// Returns nil when no command can be recovered.
func Parse(response string) *Command {
	clean := strings.TrimSpace(response)
	clean = fenceOpenRe.ReplaceAllString(clean, "")
	clean = fenceCloseRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	for _, re := range []*regexp.Regexp{flatObjectRe, anyObjectRe} {
		for _, match := range re.FindAllString(clean, -1) {
			var cmd Command
			if err := json.Unmarshal([]byte(match), &cmd); err != nil {
				continue
			}
			if cmd.Action != "" || cmd.EntityID != "" {
				return &cmd
			}
		}
	}

	var cmd Command
	if err := json.Unmarshal([]byte(clean), &cmd); err == nil {
		return &cmd
	}

	return repair(clean)
}

// repair reassembles a command from recognizable fragments of invalid
// JSON: truncated completions, trailing commas, commentary mixed into
// the object.
func repair(text string) *Command {
	action := ""
	if m := actionFieldRe.FindStringSubmatch(text); m != nil {
		action = m[1]
	}
	if action == "cont" || action == "ctrl" {
		action = ActionControl
	}

	if action == ActionQuery {
		reportType := "temperatures"
		if m := typeFieldRe.FindStringSubmatch(text); m != nil {
			reportType = m[1]
		}
		return &Command{Action: ActionQuery, QueryType: "status", SubType: reportType}
	}

	entityID := ""
	if m := entityFieldRe.FindStringSubmatch(text); m != nil {
		entityID = m[1]
	}
	if entityID == "" {
		return nil
	}

	domain := "light"
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		domain = entityID[:i]
	}

	service := "turn_on"
	if m := stateFieldRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "off", "aus", "turn_off":
			service = "turn_off"
		case "toggle", "umschalten":
			service = "toggle"
		}
	}

	data := map[string]interface{}{}
	if m := colorFieldRe.FindStringSubmatch(text); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		data["rgb_color"] = []interface{}{float64(r), float64(g), float64(b)}
	}
	if m := brightFieldRe.FindStringSubmatch(text); m != nil {
		brightness, _ := strconv.Atoi(m[1])
		if brightness > 100 {
			brightness = brightness * 100 / 255
		}
		data["brightness_pct"] = float64(brightness)
	}

	return &Command{
		Action:   ActionControl,
		Domain:   domain,
		EntityID: entityID,
		Service:  service,
		Data:     data,
	}
}
