package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventHandler receives bus events by type. state_changed events carry
// a decoded StateChangedEvent; registry events carry nil.
type EventHandler func(eventType string, change *StateChangedEvent)

// Event types the client subscribes to. Registry events signal that
// cached entity sets and area mappings are stale.
var subscribedEvents = []string{
	"state_changed",
	"area_registry_updated",
	"device_registry_updated",
	"entity_registry_updated",
}

const reconnectDelay = 5 * time.Second

// WSClient maintains the Home Assistant WebSocket connection and fans
// bus events out to a handler. It reconnects on failure until the
// context is canceled.
type WSClient struct {
	wsURL   string
	token   string
	handler EventHandler
	logger  *logrus.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	msgID     atomic.Int64
}

// NewWSClient creates a WebSocket client for the given base HTTP URL.
func NewWSClient(baseURL, token string, handler EventHandler, logger *logrus.Logger) (*WSClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/websocket"

	return &WSClient{
		wsURL:   u.String(),
		token:   token,
		handler: handler,
		logger:  logger,
	}, nil
}

// Run connects and processes events until ctx is canceled, redialing
// after connection loss.
func (c *WSClient) Run(ctx context.Context) {
	for {
		if err := c.runOnce(ctx); err != nil {
			c.logger.WithError(err).Warn("WebSocket connection lost")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// IsConnected reports whether an authenticated connection is up.
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

type wsMessage struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

type wsEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

func (c *WSClient) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if err := c.authenticate(conn); err != nil {
		return err
	}

	for _, eventType := range subscribedEvents {
		if err := conn.WriteJSON(map[string]interface{}{
			"id":         c.msgID.Add(1),
			"type":       "subscribe_events",
			"event_type": eventType,
		}); err != nil {
			return fmt.Errorf("subscribe %s failed: %w", eventType, err)
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.conn = nil
		c.mu.Unlock()
	}()

	c.logger.Info("WebSocket connected and subscribed")

	// Close the connection when the context ends so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("Unparseable WebSocket message")
			continue
		}
		if msg.Type != "event" || msg.Event == nil {
			continue
		}

		var event wsEvent
		if err := json.Unmarshal(msg.Event, &event); err != nil {
			continue
		}
		c.dispatch(&event)
	}
}

func (c *WSClient) authenticate(conn *websocket.Conn) error {
	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("auth handshake read failed: %w", err)
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected handshake message %q", hello.Type)
	}

	if err := conn.WriteJSON(map[string]string{
		"type":         "auth",
		"access_token": c.token,
	}); err != nil {
		return fmt.Errorf("auth write failed: %w", err)
	}

	var result wsMessage
	if err := conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("auth result read failed: %w", err)
	}
	if result.Type != "auth_ok" {
		return ErrUnauthorized
	}
	return nil
}

func (c *WSClient) dispatch(event *wsEvent) {
	if c.handler == nil {
		return
	}

	if event.EventType == "state_changed" {
		var change StateChangedEvent
		if err := json.Unmarshal(event.Data, &change); err != nil {
			c.logger.WithError(err).Debug("Unparseable state_changed payload")
			return
		}
		c.handler(event.EventType, &change)
		return
	}

	c.handler(event.EventType, nil)
}
