package homeassistant

import "time"

// EntityState represents an entity state as returned by /api/states.
type EntityState struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged time.Time              `json:"last_changed"`
	LastUpdated time.Time              `json:"last_updated"`
}

// Area represents an area registry entry.
type Area struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// Device represents a device registry entry.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	AreaID string `json:"area_id"`
}

// RegistryEntry represents an entity registry entry, linking an entity
// to its device and area.
type RegistryEntry struct {
	EntityID string `json:"entity_id"`
	DeviceID string `json:"device_id"`
	AreaID   string `json:"area_id"`
}

// HAConfig represents the Home Assistant instance configuration.
type HAConfig struct {
	LocationName string `json:"location_name"`
	Version      string `json:"version"`
	TimeZone     string `json:"time_zone"`
}

// StateChangedEvent is the payload of a state_changed bus event.
type StateChangedEvent struct {
	EntityID string       `json:"entity_id"`
	NewState *EntityState `json:"new_state"`
	OldState *EntityState `json:"old_state"`
}
