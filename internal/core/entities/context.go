package entities

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// NoEntitiesWarning is returned instead of an empty context block so
// the model (and the caller) can tell "nothing configured" from "empty
// prompt". Callers must special-case it.
const NoEntitiesWarning = "\n\n⚠️ NO DEVICES AVAILABLE!"

const noAreaLabel = "No area"

// BuildContext renders the resolved set as a grouped-by-area text
// block for the system prompt. Used when prompt compression is off.
func (r *Resolver) BuildContext(ctx context.Context) (string, error) {
	resolved, err := r.Resolve(ctx, true)
	if err != nil {
		return "", err
	}
	return RenderContext(resolved), nil
}

// RenderContext formats an already-resolved entity set.
func RenderContext(resolved map[string]ControllableEntity) string {
	if len(resolved) == 0 {
		return NoEntitiesWarning
	}

	type grouped struct {
		control []ControllableEntity
		sensor  []ControllableEntity
	}
	byArea := make(map[string]*grouped)

	for _, entity := range resolved {
		area := entity.Area
		if area == "" {
			area = noAreaLabel
		}
		g, ok := byArea[area]
		if !ok {
			g = &grouped{}
			byArea[area] = g
		}
		if entity.IsSensor() {
			g.sensor = append(g.sensor, entity)
		} else {
			g.control = append(g.control, entity)
		}
	}

	areas := make([]string, 0, len(byArea))
	for area := range byArea {
		areas = append(areas, area)
	}
	sort.Strings(areas)

	var b strings.Builder
	b.WriteString("\n\n=== AVAILABLE DEVICES ===\n")

	totalControl, totalSensor := 0, 0
	for _, area := range areas {
		g := byArea[area]
		fmt.Fprintf(&b, "\n📍 %s:\n", area)

		sort.Slice(g.control, func(i, j int) bool { return g.control[i].Name < g.control[j].Name })
		for _, e := range g.control {
			fmt.Fprintf(&b, "  • %s(%s)[%s]\n", e.Name, e.ShortID(), e.State)
		}
		totalControl += len(g.control)

		sort.Slice(g.sensor, func(i, j int) bool { return g.sensor[i].Name < g.sensor[j].Name })
		// A handful of sensors per area is enough context; the full
		// list would dwarf the instruction prompt.
		limit := len(g.sensor)
		if limit > 5 {
			limit = 5
		}
		for _, e := range g.sensor[:limit] {
			fmt.Fprintf(&b, "  📊 %s: %s%s\n", e.Name, e.State, e.Unit)
		}
		totalSensor += len(g.sensor)
	}

	fmt.Fprintf(&b, "\n=== %d devices + %d sensors ===\n", totalControl, totalSensor)
	return b.String()
}
