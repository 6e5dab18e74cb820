// Package homeassistant adapts the Home Assistant REST and WebSocket
// APIs to the interfaces the core packages consume.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RESTClient interface defines REST API operations
type RESTClient interface {
	GetConfig(ctx context.Context) (*HAConfig, error)
	GetStates(ctx context.Context) ([]EntityState, error)
	GetState(ctx context.Context, entityID string) (*EntityState, error)

	CallService(ctx context.Context, domain, service string, data map[string]interface{}) error

	GetAreas(ctx context.Context) ([]Area, error)
	GetDevices(ctx context.Context) ([]Device, error)
	GetEntityRegistry(ctx context.Context) ([]RegistryEntry, error)

	// Raw API call for extensibility
	DoRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error)
}

// restClient implements RESTClient
type restClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger

	maxRetries int
	retryDelay time.Duration
}

// NewRESTClient creates a new REST client
func NewRESTClient(baseURL, token string, logger *logrus.Logger) RESTClient {
	return &restClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logger,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// GetConfig retrieves Home Assistant configuration
func (c *restClient) GetConfig(ctx context.Context) (*HAConfig, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/config", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	var cfg HAConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewHAError(0, "Failed to parse config response", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.logger.WithFields(logrus.Fields{
		"location": cfg.LocationName,
		"version":  cfg.Version,
	}).Debug("Retrieved Home Assistant configuration")

	return &cfg, nil
}

// GetStates retrieves all entity states
func (c *restClient) GetStates(ctx context.Context) ([]EntityState, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/states", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get states: %w", err)
	}

	var states []EntityState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, NewHAError(0, "Failed to parse states response", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.logger.WithField("count", len(states)).Debug("Retrieved entity states")
	return states, nil
}

// GetState retrieves a specific entity state
func (c *restClient) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	data, err := c.DoRequest(ctx, "GET", fmt.Sprintf("/api/states/%s", entityID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get state for entity %s: %w", entityID, err)
	}

	var state EntityState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, NewHAError(0, "Failed to parse state response", map[string]interface{}{
			"entity_id": entityID,
			"error":     err.Error(),
		})
	}
	return &state, nil
}

// CallService calls a Home Assistant service
func (c *restClient) CallService(ctx context.Context, domain, service string, data map[string]interface{}) error {
	c.logger.WithFields(logrus.Fields{
		"domain":  domain,
		"service": service,
	}).Debug("Calling Home Assistant service")

	body := make(map[string]interface{})
	for k, v := range data {
		body[k] = v
	}

	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	if _, err := c.DoRequest(ctx, "POST", path, body); err != nil {
		return fmt.Errorf("failed to call service %s.%s: %w", domain, service, err)
	}
	return nil
}

// GetAreas retrieves all areas
func (c *restClient) GetAreas(ctx context.Context) ([]Area, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/config/area_registry", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get areas: %w", err)
	}

	var areas []Area
	if err := json.Unmarshal(data, &areas); err != nil {
		return nil, NewHAError(0, "Failed to parse areas response", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return areas, nil
}

// GetDevices retrieves all devices
func (c *restClient) GetDevices(ctx context.Context) ([]Device, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/config/device_registry", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	var devices []Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, NewHAError(0, "Failed to parse devices response", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return devices, nil
}

// GetEntityRegistry retrieves all entity registry entries
func (c *restClient) GetEntityRegistry(ctx context.Context) ([]RegistryEntry, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/config/entity_registry", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity registry: %w", err)
	}

	var entries []RegistryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, NewHAError(0, "Failed to parse entity registry response", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return entries, nil
}

// DoRequest performs a raw HTTP request with retry logic
func (c *restClient) DoRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	url := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrEntityNotFound
		case resp.StatusCode >= 500:
			lastErr = NewHAError(resp.StatusCode, "Server error", map[string]interface{}{
				"path": path,
			})
			continue
		default:
			return nil, NewHAError(resp.StatusCode, "Request rejected", map[string]interface{}{
				"path": path,
				"body": string(data),
			})
		}
	}

	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}
