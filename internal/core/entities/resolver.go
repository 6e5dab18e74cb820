package entities

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// snapshotTTL bounds how stale a resolved set may be served. Within a
// burst of requests the registry is only enumerated once.
const snapshotTTL = 5 * time.Second

// SnapshotCache holds recently resolved entity sets, keyed by the
// selection that produced them. One instance is shared by all requests
// in the process; the owner constructs it and hands it to each
// resolver.
type SnapshotCache struct {
	mu       sync.Mutex
	entries  map[string]snapshotEntry
	ttl      time.Duration
	now      func() time.Time
	refreshs int64
}

type snapshotEntry struct {
	entities map[string]ControllableEntity
	stored   time.Time
}

// NewSnapshotCache creates an empty cache with the default 5s TTL.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string]snapshotEntry),
		ttl:     snapshotTTL,
		now:     time.Now,
	}
}

func (c *SnapshotCache) get(key string) (map[string]ControllableEntity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.stored) >= c.ttl {
		return nil, false
	}
	return entry.entities, true
}

func (c *SnapshotCache) put(key string, entities map[string]ControllableEntity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = snapshotEntry{entities: entities, stored: c.now()}
	c.refreshs++
}

// Invalidate drops every cached snapshot. Called when the upstream
// registry reports entity or area changes.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]snapshotEntry)
}

// Refreshes returns how many times a snapshot was recomputed.
func (c *SnapshotCache) Refreshes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshs
}

// Resolver computes the controllable entity set from a static
// selection of entity ids and areas.
type Resolver struct {
	registry         Registry
	cache            *SnapshotCache
	selectedEntities []string
	selectedAreas    []string
	enableSensors    bool
	logger           *logrus.Logger
}

// NewResolver creates a resolver over the given registry and shared
// snapshot cache.
func NewResolver(registry Registry, cache *SnapshotCache, selectedEntities, selectedAreas []string, enableSensors bool, logger *logrus.Logger) *Resolver {
	return &Resolver{
		registry:         registry,
		cache:            cache,
		selectedEntities: selectedEntities,
		selectedAreas:    selectedAreas,
		enableSensors:    enableSensors,
		logger:           logger,
	}
}

// cacheKey is a stable, order-insensitive serialization of the
// selection. Python's tuple hashing was process-run-dependent; sorted
// ids joined with a delimiter reproduce across runs.
func (r *Resolver) cacheKey(includeSensors bool) string {
	ids := append([]string(nil), r.selectedEntities...)
	areas := append([]string(nil), r.selectedAreas...)
	sort.Strings(ids)
	sort.Strings(areas)
	return fmt.Sprintf("%s|%s|%t", strings.Join(ids, ","), strings.Join(areas, ","), includeSensors)
}

// Resolve returns the currently controllable entities. An empty
// selection yields an empty map: control is strictly opt-in.
func (r *Resolver) Resolve(ctx context.Context, includeSensors bool) (map[string]ControllableEntity, error) {
	if len(r.selectedEntities) == 0 && len(r.selectedAreas) == 0 {
		return map[string]ControllableEntity{}, nil
	}

	key := r.cacheKey(includeSensors)
	if cached, ok := r.cache.get(key); ok && len(cached) > 0 {
		return cached, nil
	}

	states, err := r.registry.AllStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate registry states: %w", err)
	}

	sensorsAllowed := includeSensors && r.enableSensors

	selectedIDs := make(map[string]struct{}, len(r.selectedEntities))
	for _, id := range r.selectedEntities {
		selectedIDs[id] = struct{}{}
	}
	selectedAreas := make(map[string]struct{}, len(r.selectedAreas))
	for _, a := range r.selectedAreas {
		selectedAreas[a] = struct{}{}
	}

	resolved := make(map[string]ControllableEntity)
	for i := range states {
		state := &states[i]
		domain := state.Domain()

		if !IsControlDomain(domain) && !(sensorsAllowed && IsSensorDomain(domain)) {
			continue
		}

		if _, ok := selectedIDs[state.EntityID]; ok {
			resolved[state.EntityID] = r.buildEntity(state)
			continue
		}

		if len(selectedAreas) > 0 {
			area := r.registry.AreaOf(state.EntityID)
			if area == "" {
				continue
			}
			if _, ok := selectedAreas[area]; ok {
				resolved[state.EntityID] = r.buildEntity(state)
			}
		}
	}

	r.cache.put(key, resolved)

	r.logger.WithFields(logrus.Fields{
		"entities":        len(resolved),
		"include_sensors": includeSensors,
	}).Debug("Resolved controllable entity set")

	return resolved, nil
}

// IsControllable reports whether entityID is in the control-capable
// subset (sensors excluded).
func (r *Resolver) IsControllable(ctx context.Context, entityID string) (bool, error) {
	resolved, err := r.Resolve(ctx, false)
	if err != nil {
		return false, err
	}
	_, ok := resolved[entityID]
	return ok, nil
}

func (r *Resolver) buildEntity(state *State) ControllableEntity {
	domain := state.Domain()

	name := state.EntityID
	if fn, ok := state.Attributes["friendly_name"].(string); ok && fn != "" {
		name = fn
	}
	unit, _ := state.Attributes["unit_of_measurement"].(string)

	return ControllableEntity{
		EntityID:    state.EntityID,
		Name:        name,
		Domain:      domain,
		Area:        r.registry.AreaOf(state.EntityID),
		State:       state.State,
		Attributes:  filterAttributes(domain, state.Attributes),
		Unit:        unit,
		LastChanged: state.LastChanged,
	}
}

// filterAttributes keeps the attribute subset relevant to prompts and
// confirmations for the given domain.
func filterAttributes(domain string, attributes map[string]interface{}) map[string]interface{} {
	important := []string{"friendly_name"}

	switch domain {
	case "light":
		important = append(important, "brightness", "rgb_color", "color_temp_kelvin", "supported_color_modes")
	case "climate":
		important = append(important, "temperature", "current_temperature", "hvac_mode", "hvac_modes")
	case "cover":
		important = append(important, "current_position")
	case "media_player":
		important = append(important, "volume_level", "media_title", "source")
	case "sensor", "binary_sensor":
		important = append(important, "unit_of_measurement", "device_class", "state_class")
	}

	filtered := make(map[string]interface{})
	for _, key := range important {
		if v, ok := attributes[key]; ok {
			filtered[key] = v
		}
	}
	return filtered
}
