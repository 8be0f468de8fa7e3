package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/pkg/serverutils"
	"ba-assistant-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBuffer  = 256
	inboxBuffer = 32
)

// Conn is the subset of *websocket.Conn the pumps use
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn Conn

	// SessionID the connection is bound to
	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte

	// inbound chat messages, processed one at a time in arrival order
	inbox chan string

	assistant service.IAssistantService
	logger    logger.ILogger

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn Conn, sessionID string, assistant service.IAssistantService, log logger.ILogger) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
		inbox:     make(chan string, inboxBuffer),
		assistant: assistant,
		logger:    log,
	}
}

// enqueue hands data to the write pump. It reports false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendFrame(frame Frame) {
	if frame.SessionId == "" {
		frame.SessionId = c.SessionID
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	close(c.inbox)
}

// submit queues a chat message for the processing loop
func (c *Client) submit(content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.inbox <- content:
		return true
	default:
		return false
	}
}

// processInbox runs the turns for this connection. Turns are detached from
// the connection so a disconnect does not abandon one mid-flight.
func (c *Client) processInbox() {
	for content := range c.inbox {
		c.sendFrame(Frame{Type: FrameTyping})

		res, err := c.assistant.ProcessMessage(context.Background(), c.SessionID, content)
		if err != nil {
			_, msg := serverutils.StatusFor(err)
			c.logger.Warn(hubModule, "Turn failed", map[string]interface{}{
				"session_id": c.SessionID,
				"error":      err.Error(),
			})
			c.sendFrame(Frame{Type: FrameError, Content: msg})
			continue
		}
		c.sendFrame(responseFrame(res))
	}
}

func (c *Client) handleFrame(raw []byte) {
	var in inboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		c.sendFrame(Frame{Type: FrameError, Content: "Invalid frame"})
		return
	}

	switch in.Type {
	case InboundPing:
		c.sendFrame(Frame{Type: FramePong})
	case InboundMessage, "":
		if in.Content == "" {
			c.sendFrame(Frame{Type: FrameError, Content: "Message must not be empty"})
			return
		}
		if !c.submit(in.Content) {
			c.sendFrame(Frame{Type: FrameError, Content: "Too many pending messages"})
		}
	default:
		c.sendFrame(Frame{Type: FrameError, Content: "Unknown frame type " + in.Type})
	}
}

// readPump pumps messages from the websocket connection to the inbox.
func (c *Client) readPump() {
	defer func() {
		c.Hub.detach(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn(hubModule, "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			break
		}
		c.handleFrame(raw)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per message; peers parse each as a JSON document
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
