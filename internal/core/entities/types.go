// Package entities computes the set of devices and sensors the agent is
// allowed to touch, and renders that set as prompt context.
package entities

import (
	"context"
	"time"
)

// Control-capable domains. Anything outside this list (and the sensor
// list) is invisible to the agent regardless of selection.
var ControlDomains = []string{
	"light",
	"switch",
	"climate",
	"cover",
	"fan",
	"media_player",
	"lock",
	"scene",
	"script",
	"automation",
	"input_boolean",
	"input_select",
	"input_number",
	"vacuum",
	"humidifier",
	"water_heater",
	"remote",
	"button",
	"siren",
}

// Read-only domains, eligible only when sensors are enabled.
var SensorDomains = []string{
	"sensor",
	"binary_sensor",
	"weather",
	"device_tracker",
	"person",
	"sun",
	"zone",
}

var (
	controlDomainSet = toSet(ControlDomains)
	sensorDomainSet  = toSet(SensorDomains)
)

func toSet(domains []string) map[string]struct{} {
	s := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		s[d] = struct{}{}
	}
	return s
}

// IsControlDomain reports whether domain supports service calls.
func IsControlDomain(domain string) bool {
	_, ok := controlDomainSet[domain]
	return ok
}

// IsSensorDomain reports whether domain is read-only.
func IsSensorDomain(domain string) bool {
	_, ok := sensorDomainSet[domain]
	return ok
}

// State is a raw entity state as reported by the registry.
type State struct {
	EntityID    string
	State       string
	Attributes  map[string]interface{}
	LastChanged time.Time
}

// Domain returns the domain part of the entity id.
func (s *State) Domain() string {
	for i := 0; i < len(s.EntityID); i++ {
		if s.EntityID[i] == '.' {
			return s.EntityID[:i]
		}
	}
	return ""
}

// Registry is the slice of the hosting platform the resolver needs:
// enumerate states and resolve an entity to its area. The Home
// Assistant adapter implements it.
type Registry interface {
	AllStates(ctx context.Context) ([]State, error)
	GetState(ctx context.Context, entityID string) (*State, error)
	// AreaOf resolves entity -> device -> area and returns the area
	// name, or "" when the entity belongs to none.
	AreaOf(entityID string) string
}

// ControllableEntity is one device or sensor in the resolved set,
// enriched for prompt building and command validation.
type ControllableEntity struct {
	EntityID    string                 `json:"entity_id"`
	Name        string                 `json:"name"`
	Domain      string                 `json:"domain"`
	Area        string                 `json:"area,omitempty"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Unit        string                 `json:"unit,omitempty"`
	LastChanged time.Time              `json:"last_changed,omitempty"`
}

// IsSensor reports whether the entity lives in a read-only domain.
func (e *ControllableEntity) IsSensor() bool {
	return IsSensorDomain(e.Domain)
}

// ShortID is the entity id without the domain prefix.
func (e *ControllableEntity) ShortID() string {
	for i := len(e.EntityID) - 1; i >= 0; i-- {
		if e.EntityID[i] == '.' {
			return e.EntityID[i+1:]
		}
	}
	return e.EntityID
}
