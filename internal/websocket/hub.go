package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule = "Hub"

	// ClusterChannel relays frames between instances
	ClusterChannel = "session_events"
)

type Hub struct {
	// Registered clients: session id -> connections (several tabs may share one)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	// closed once Run returns
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance delivery, optional
	rdb *redis.Client
	// instanceID tags relayed frames so an instance skips its own
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns registration until ctx is done. Teardown only removes the
// connection entry; turns already submitted keep running.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, c := range clients {
					c.close()
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						client.close()
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info(hubModule, "Client completely unregistered", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// IsConnected reports whether this instance holds a live connection for
// the session
func (h *Hub) IsConnected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID]) > 0
}

// ConnectedCount is the number of sessions with at least one connection
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToSession delivers a frame to the session's local connections and
// relays it to other instances
func (h *Hub) SendToSession(sessionID string, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	h.deliverLocal(sessionID, data)

	if h.rdb != nil {
		jsonPayload, _ := json.Marshal(map[string]interface{}{
			"origin":            h.instanceID,
			"target_session_id": sessionID,
			"message":           json.RawMessage(data),
		})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, jsonPayload).Err(); err != nil {
			h.logger.Warn(hubModule, "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// ForwardEvent pushes a domain event to the connections of the session it
// names. Events without a session id are ignored.
func (h *Hub) ForwardEvent(ctx context.Context, event events.Event) error {
	sessionID, _ := event.Payload()["session_id"].(string)
	if sessionID == "" {
		return nil
	}
	h.SendToSession(sessionID, Frame{
		Type:      FrameSessionEvent,
		SessionId: sessionID,
		Event:     event.EventType(),
		Data:      event.Payload(),
	})
	return nil
}

func (h *Hub) deliverLocal(sessionID string, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[sessionID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.enqueue(data) {
			h.logger.Warn(hubModule, "Client send buffer full, dropping frame", map[string]interface{}{"session_id": sessionID})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload struct {
				Origin          string          `json:"origin"`
				TargetSessionID string          `json:"target_session_id"`
				Message         json.RawMessage `json:"message"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(hubModule, "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// our own publications come back too; local clients already have them
			if payload.Origin == h.instanceID || payload.TargetSessionID == "" {
				continue
			}
			h.deliverLocal(payload.TargetSessionID, payload.Message)
		}
	}
}
