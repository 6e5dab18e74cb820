// Package command parses model output into device commands and
// executes them against the hosting platform.
package command

import (
	"context"
	"strings"
)

// Command is the weakly-typed envelope models produce. Fields cover
// every shape seen in the wild; the parser and normalizer tolerate
// abbreviations and synonyms so a sloppy completion still executes.
type Command struct {
	Action   string                 `json:"action"`
	Domain   string                 `json:"domain,omitempty"`
	EntityID string                 `json:"entity_id,omitempty"`
	Service  string                 `json:"service,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`

	// Batch form.
	Commands []Command `json:"commands,omitempty"`

	// Query form. Models emit the report type under several keys.
	QueryType string   `json:"query_type,omitempty"`
	SubType   string   `json:"sub_type,omitempty"`
	Type      string   `json:"type,omitempty"`
	EntityIDs []string `json:"entity_ids,omitempty"`
}

// Canonical actions after normalization.
const (
	ActionControl         = "control"
	ActionControlMultiple = "control_multiple"
	ActionQuery           = "query"
)

// ServiceCaller invokes a platform service. The Home Assistant adapter
// implements it; tests substitute a recorder.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service string, data map[string]interface{}) error
}

// actionAliases maps abbreviated and synonym actions to canonical ones.
var actionAliases = map[string]string{
	"control": ActionControl,
	"cont":    ActionControl,
	"ctrl":    ActionControl,
	"c":       ActionControl,

	"query": ActionQuery,
	"q":     ActionQuery,
	"ask":   ActionQuery,
	"get":   ActionQuery,

	"control_multiple": ActionControlMultiple,
	"multi":            ActionControlMultiple,
	"multiple":         ActionControlMultiple,
	"batch":            ActionControlMultiple,
}

// NormalizeAction resolves an action string to its canonical form, or
// "" when unrecognized.
func NormalizeAction(action string) string {
	return actionAliases[strings.ToLower(strings.TrimSpace(action))]
}

// ReportType returns the status report selector, checking the sub_type,
// nested data and type fields in that order.
func (c *Command) ReportType() string {
	if c.SubType != "" {
		return c.SubType
	}
	if c.Data != nil {
		if t, ok := c.Data["type"].(string); ok && t != "" {
			return t
		}
		if t, ok := c.Data["sub_type"].(string); ok && t != "" {
			return t
		}
	}
	return c.Type
}
