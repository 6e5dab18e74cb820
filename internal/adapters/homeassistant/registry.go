package homeassistant

import (
	"context"
	"sync"
	"time"

	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/sirupsen/logrus"
)

// Registry adapts the REST client to the entities.Registry interface.
// Area resolution follows the platform's precedence: the entity's own
// area wins, otherwise the area of the device it belongs to.
type Registry struct {
	client RESTClient
	logger *logrus.Logger

	mu          sync.RWMutex
	entityAreas map[string]string // entity_id -> area name
	refreshedAt time.Time
	maxAge      time.Duration
}

// NewRegistry creates a registry adapter. maxAge bounds how stale the
// entity-to-area mapping may get before a read triggers a refresh; the
// WebSocket client also forces refreshes on registry change events.
func NewRegistry(client RESTClient, maxAge time.Duration, logger *logrus.Logger) *Registry {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Registry{
		client:      client,
		logger:      logger,
		entityAreas: make(map[string]string),
		maxAge:      maxAge,
	}
}

// AllStates enumerates all entity states.
func (r *Registry) AllStates(ctx context.Context) ([]entities.State, error) {
	r.maybeRefresh(ctx)

	states, err := r.client.GetStates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entities.State, len(states))
	for i, s := range states {
		out[i] = toCoreState(&s)
	}
	return out, nil
}

// GetState reads one entity state.
func (r *Registry) GetState(ctx context.Context, entityID string) (*entities.State, error) {
	state, err := r.client.GetState(ctx, entityID)
	if err != nil {
		return nil, err
	}
	core := toCoreState(state)
	return &core, nil
}

// AreaOf returns the area name for an entity, or "" when unassigned.
func (r *Registry) AreaOf(entityID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entityAreas[entityID]
}

// Refresh rebuilds the entity-to-area mapping from the area, device
// and entity registries.
func (r *Registry) Refresh(ctx context.Context) error {
	areas, err := r.client.GetAreas(ctx)
	if err != nil {
		return err
	}
	devices, err := r.client.GetDevices(ctx)
	if err != nil {
		return err
	}
	entries, err := r.client.GetEntityRegistry(ctx)
	if err != nil {
		return err
	}

	areaNames := make(map[string]string, len(areas))
	for _, a := range areas {
		areaNames[a.AreaID] = a.Name
	}
	deviceAreas := make(map[string]string, len(devices))
	for _, d := range devices {
		deviceAreas[d.ID] = d.AreaID
	}

	entityAreas := make(map[string]string, len(entries))
	for _, e := range entries {
		areaID := e.AreaID
		if areaID == "" && e.DeviceID != "" {
			areaID = deviceAreas[e.DeviceID]
		}
		if name := areaNames[areaID]; name != "" {
			entityAreas[e.EntityID] = name
		}
	}

	r.mu.Lock()
	r.entityAreas = entityAreas
	r.refreshedAt = time.Now()
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"areas":    len(areas),
		"entities": len(entityAreas),
	}).Debug("Refreshed area mapping")

	return nil
}

func (r *Registry) maybeRefresh(ctx context.Context) {
	r.mu.RLock()
	stale := time.Since(r.refreshedAt) > r.maxAge
	r.mu.RUnlock()

	if !stale {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		// Stale area names are better than failing the resolve.
		r.logger.WithError(err).Warn("Area mapping refresh failed")
	}
}

func toCoreState(s *EntityState) entities.State {
	return entities.State{
		EntityID:    s.EntityID,
		State:       s.State,
		Attributes:  s.Attributes,
		LastChanged: s.LastChanged,
	}
}
