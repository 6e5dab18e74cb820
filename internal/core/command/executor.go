package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/freellm/freellm-backend-go/internal/core/analysis"
	"github.com/freellm/freellm-backend-go/internal/core/colors"
	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/sirupsen/logrus"
)

const unknownReportHelp = `❌ Unknown status type: %s

Available reports:
  • temperatures
  • humidity
  • windows
  • powered_on
  • battery
  • offline
  • energy
  • climate
  • motion
  • air_quality
  • summary`

// Executor runs parsed commands: service calls for control actions,
// analyzer reports for queries.
type Executor struct {
	resolver *entities.Resolver
	registry entities.Registry
	analyzer *analysis.Analyzer
	colors   *colors.Manager
	caller   ServiceCaller
	logger   *logrus.Logger
}

// NewExecutor wires an executor.
func NewExecutor(resolver *entities.Resolver, registry entities.Registry, analyzer *analysis.Analyzer, colorManager *colors.Manager, caller ServiceCaller, logger *logrus.Logger) *Executor {
	return &Executor{
		resolver: resolver,
		registry: registry,
		analyzer: analyzer,
		colors:   colorManager,
		caller:   caller,
		logger:   logger,
	}
}

// Execute parses raw model output and runs the contained command. It
// returns the user-facing result and the canonical action; ok is false
// when no command was recognized and the caller should treat the
// output as plain chat.
func (e *Executor) Execute(ctx context.Context, response string) (result, action string, ok bool) {
	cmd := Parse(response)
	if cmd == nil {
		e.logger.WithField("response", head(response, 100)).Warn("No command recognized in model output")
		return "", "", false
	}

	switch NormalizeAction(cmd.Action) {
	case ActionControl:
		return e.executeSingle(ctx, cmd), ActionControl, true
	case ActionControlMultiple:
		return e.executeBatch(ctx, cmd.Commands), ActionControlMultiple, true
	case ActionQuery:
		return e.handleQuery(ctx, cmd), ActionQuery, true
	default:
		e.logger.WithField("action", cmd.Action).Warn("Unknown command action")
		return "", "", false
	}
}

func (e *Executor) executeSingle(ctx context.Context, cmd *Command) string {
	entityID := cmd.EntityID
	if entityID == "" {
		return "❌ No entity id given"
	}

	domain := cmd.Domain
	if domain == "" {
		if i := strings.IndexByte(entityID, '.'); i > 0 {
			domain = entityID[:i]
		}
	}

	service := NormalizeService(cmd.Service)

	resolved, err := e.resolver.Resolve(ctx, false)
	if err != nil {
		e.logger.WithError(err).Error("Entity resolution failed")
		return fmt.Sprintf("❌ Error: %v", err)
	}

	info, ok := resolved[entityID]
	if !ok {
		if suggestions := e.findSimilar(entityID, resolved); suggestions != "" {
			return fmt.Sprintf("❌ '%s' is not available.\n\nSimilar devices:\n%s", entityID, suggestions)
		}
		return fmt.Sprintf("❌ '%s' is not available", entityID)
	}

	data := NormalizeData(cmd.Data)
	data["entity_id"] = entityID

	e.logger.WithFields(logrus.Fields{
		"domain":  domain,
		"service": service,
		"entity":  entityID,
	}).Info("Executing service call")

	if err := e.caller.CallService(ctx, domain, service, data); err != nil {
		e.logger.WithError(err).Error("Service call failed")
		return fmt.Sprintf("❌ Error: %v", err)
	}

	return e.confirmation(info.Name, service, data)
}

// executeBatch fans the commands out concurrently and reports an
// aggregate. Individual failures are counted, not surfaced.
func (e *Executor) executeBatch(ctx context.Context, commands []Command) string {
	if len(commands) == 0 {
		return "❌ No commands"
	}

	var wg sync.WaitGroup
	results := make([]bool, len(commands))

	for i := range commands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.executeSilent(ctx, &commands[i])
		}(i)
	}
	wg.Wait()

	success := 0
	for _, ok := range results {
		if ok {
			success++
		}
	}
	failed := len(commands) - success

	switch {
	case success == len(commands):
		return fmt.Sprintf("✅ %d device(s) controlled successfully!", success)
	case success > 0:
		return fmt.Sprintf("⚠️ %d of %d succeeded (%d failed)", success, len(commands), failed)
	default:
		return fmt.Sprintf("❌ All %d commands failed", len(commands))
	}
}

func (e *Executor) executeSilent(ctx context.Context, cmd *Command) bool {
	entityID := cmd.EntityID
	if entityID == "" {
		return false
	}

	domain := cmd.Domain
	if domain == "" {
		if i := strings.IndexByte(entityID, '.'); i > 0 {
			domain = entityID[:i]
		}
	}
	if domain == "" {
		return false
	}

	controllable, err := e.resolver.IsControllable(ctx, entityID)
	if err != nil || !controllable {
		return false
	}

	data := NormalizeData(cmd.Data)
	data["entity_id"] = entityID

	if err := e.caller.CallService(ctx, domain, NormalizeService(cmd.Service), data); err != nil {
		e.logger.WithError(err).WithField("entity", entityID).Error("Batch service call failed")
		return false
	}
	return true
}

// confirmation renders the user-facing success message, naming colors
// and color temperature bands where the data carries them.
func (e *Executor) confirmation(name, service string, data map[string]interface{}) string {
	msg := "✅ " + name

	switch service {
	case "turn_on":
		msg += " turned on"
		if pct, ok := data["brightness_pct"]; ok {
			msg += fmt.Sprintf(" (%v%%)", pct)
		}
		if rgb, ok := data["rgb_color"].([]int); ok && len(rgb) == 3 {
			msg += fmt.Sprintf(" (%s)", e.colors.ClosestName(colors.RGB{rgb[0], rgb[1], rgb[2]}))
		}
		if kelvin, ok := data["color_temp_kelvin"].(int); ok {
			msg += fmt.Sprintf(" (%s, %dK)", colors.TempBand(kelvin), kelvin)
		}
	case "turn_off":
		msg += " turned off"
	case "toggle":
		msg += " toggled"
	case "set_temperature":
		temp := data["temperature"]
		if temp == nil {
			temp = "?"
		}
		msg += fmt.Sprintf(" set to %v°C", temp)
	case "set_hvac_mode":
		mode := data["hvac_mode"]
		if mode == nil {
			mode = "?"
		}
		msg += fmt.Sprintf(" mode: %v", mode)
	case "open_cover":
		msg += " opened"
	case "close_cover":
		msg += " closed"
	case "set_position":
		pos := data["position"]
		if pos == nil {
			pos = "?"
		}
		msg += fmt.Sprintf(" set to %v%%", pos)
	default:
		msg += fmt.Sprintf(" (%s)", service)
	}

	return msg
}

// findSimilar ranks available entities by token overlap with the
// requested id and renders the top five as suggestions.
func (e *Executor) findSimilar(entityID string, resolved map[string]entities.ControllableEntity) string {
	tokens := strings.Fields(strings.NewReplacer("_", " ", ".", " ").Replace(strings.ToLower(entityID)))

	type scored struct {
		matches int
		line    string
	}
	var suggestions []scored

	for id, info := range resolved {
		idTokens := strings.NewReplacer("_", " ", ".", " ").Replace(strings.ToLower(id))
		nameLower := strings.ToLower(info.Name)

		matches := 0
		for _, tok := range tokens {
			if strings.Contains(idTokens, tok) || strings.Contains(nameLower, tok) {
				matches++
			}
		}
		if matches > 0 {
			suggestions = append(suggestions, scored{matches, fmt.Sprintf("  • %s (%s)", info.Name, id)})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].matches > suggestions[j].matches })
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}

	lines := make([]string, len(suggestions))
	for i, s := range suggestions {
		lines[i] = s.line
	}
	return strings.Join(lines, "\n")
}

// handleQuery dispatches a query command: direct sensor reads or one
// of the analyzer reports.
func (e *Executor) handleQuery(ctx context.Context, cmd *Command) string {
	if cmd.QueryType == "sensor" {
		return e.sensorQuery(ctx, cmd)
	}

	reportType := cmd.ReportType()
	if reportType == "" {
		reportType = cmd.QueryType
	}
	if reportType == "" {
		return "❌ Unknown query type"
	}
	return e.statusQuery(ctx, reportType)
}

func (e *Executor) sensorQuery(ctx context.Context, cmd *Command) string {
	if len(cmd.EntityIDs) == 0 {
		return "❌ No sensors given"
	}

	resolved, err := e.resolver.Resolve(ctx, true)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	var results []string
	for _, id := range cmd.EntityIDs {
		info, ok := resolved[id]
		if !ok {
			continue
		}
		state, err := e.registry.GetState(ctx, id)
		if err != nil || state == nil {
			continue
		}
		results = append(results, fmt.Sprintf("%s: %s%s", info.Name, state.State, info.Unit))
	}

	if len(results) == 0 {
		return "❌ No sensor data found"
	}
	if len(results) == 1 {
		return "📊 " + results[0]
	}

	var b strings.Builder
	b.WriteString("📊 Sensor readings:")
	for _, r := range results {
		b.WriteString("\n  • ")
		b.WriteString(r)
	}
	return b.String()
}

type reportFunc func(context.Context, map[string]entities.ControllableEntity) string

// statusQuery resolves the report selector against the synonym table,
// falling back to substring matching in both directions.
func (e *Executor) statusQuery(ctx context.Context, reportType string) string {
	resolved, err := e.resolver.Resolve(ctx, true)
	if err != nil {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	reports := map[string]reportFunc{
		"temperatures": e.analyzer.Temperatures,
		"temperature":  e.analyzer.Temperatures,
		"temp":         e.analyzer.Temperatures,
		"temperatur":   e.analyzer.Temperatures,
		"temperaturen": e.analyzer.Temperatures,

		"humidity":         e.analyzer.Humidity,
		"feuchtigkeit":     e.analyzer.Humidity,
		"luftfeuchtigkeit": e.analyzer.Humidity,

		"windows": e.analyzer.Windows,
		"fenster": e.analyzer.Windows,
		"doors":   e.analyzer.Windows,
		"türen":   e.analyzer.Windows,
		"tueren":  e.analyzer.Windows,

		"powered_on":    e.analyzer.PoweredOn,
		"on":            e.analyzer.PoweredOn,
		"eingeschaltet": e.analyzer.PoweredOn,
		"aktiv":         e.analyzer.PoweredOn,
		"an":            e.analyzer.PoweredOn,

		"battery":   e.analyzer.Batteries,
		"batterie":  e.analyzer.Batteries,
		"batteries": e.analyzer.Batteries,
		"batterien": e.analyzer.Batteries,

		"offline":         e.analyzer.Offline,
		"unavailable":     e.analyzer.Offline,
		"nicht_verfügbar": e.analyzer.Offline,

		"energy":    e.analyzer.Energy,
		"energie":   e.analyzer.Energy,
		"strom":     e.analyzer.Energy,
		"verbrauch": e.analyzer.Energy,
		"power":     e.analyzer.Energy,

		"climate_overview": e.analyzer.ClimateOverview,
		"climate":          e.analyzer.ClimateOverview,
		"klima":            e.analyzer.ClimateOverview,
		"heizung":          e.analyzer.ClimateOverview,

		"motion":   e.analyzer.Motion,
		"bewegung": e.analyzer.Motion,
		"presence": e.analyzer.Motion,

		"air_quality":  e.analyzer.AirQuality,
		"luft":         e.analyzer.AirQuality,
		"luftqualität": e.analyzer.AirQuality,
		"co2":          e.analyzer.AirQuality,

		"all_sensors":   e.analyzer.AllSensors,
		"alle_sensoren": e.analyzer.AllSensors,
		"sensoren":      e.analyzer.AllSensors,
		"all":           e.analyzer.AllSensors,
		"alle":          e.analyzer.AllSensors,

		"device_summary":  e.analyzer.DeviceSummary,
		"summary":         e.analyzer.DeviceSummary,
		"zusammenfassung": e.analyzer.DeviceSummary,
		"übersicht":       e.analyzer.DeviceSummary,
		"uebersicht":      e.analyzer.DeviceSummary,

		"last_activity": e.analyzer.LastActivity,
		"activity":      e.analyzer.LastActivity,
		"aktivität":     e.analyzer.LastActivity,
		"aktivitaet":    e.analyzer.LastActivity,
		"letzte":        e.analyzer.LastActivity,
	}

	key := strings.ToLower(strings.TrimSpace(reportType))

	if report, ok := reports[key]; ok {
		return report(ctx, resolved)
	}

	// Deterministic fallback order so ambiguous selectors do not flap
	// between reports.
	keys := make([]string, 0, len(reports))
	for k := range reports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(key, k) || strings.Contains(k, key) {
			return reports[k](ctx, resolved)
		}
	}

	e.logger.WithField("type", reportType).Warn("Unknown status report type")
	return fmt.Sprintf(unknownReportHelp, reportType)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
