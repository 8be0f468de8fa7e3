package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/service"
	"ba-assistant-be/pkg/events"
	"ba-assistant-be/pkg/store"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	in chan []byte

	mu     sync.Mutex
	out    []Frame
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 8)}
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-f.in
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, data, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, frame)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.out...)
}

func (f *fakeConn) types() []string {
	var types []string
	for _, fr := range f.frames() {
		types = append(types, fr.Type)
	}
	return types
}

type fakeAssistant struct {
	service.IAssistantService

	mu    sync.Mutex
	seen  []string
	fails map[string]error
}

func (f *fakeAssistant) ProcessMessage(ctx context.Context, sessionID, message string) (*dto.SendChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, message)
	if err := f.fails[message]; err != nil {
		return nil, err
	}
	return &dto.SendChatResponse{
		Response:  "echo: " + message,
		SessionId: sessionID,
		Phase:     "questioning",
		DocType:   "new_feature",
		Progress:  0.2,
	}, nil
}

func (f *fakeAssistant) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(nil, logger.NewNop())
	go hub.Run(ctx)
	return hub
}

func send(t *testing.T, conn *fakeConn, frame inboundFrame) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	conn.in <- data
}

func TestServeWs_ProcessesMessagesInOrder(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()
	assistant := &fakeAssistant{fails: map[string]error{
		"busy": store.ErrSessionBusy,
	}}

	done := make(chan struct{})
	go func() {
		ServeWs(hub, conn, "s1", assistant, logger.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.IsConnected("s1") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ConnectedCount())

	send(t, conn, inboundFrame{Type: InboundPing})
	send(t, conn, inboundFrame{Type: InboundMessage, Content: "first"})
	send(t, conn, inboundFrame{Type: InboundMessage, Content: "busy"})
	send(t, conn, inboundFrame{Type: InboundMessage, Content: "second"})

	require.Eventually(t, func() bool { return len(conn.frames()) >= 8 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "busy", "second"}, assistant.messages())

	frames := conn.frames()
	assert.Equal(t, FrameConnected, frames[0].Type)
	assert.Equal(t, FramePong, frames[1].Type)

	var responses []Frame
	var errs []Frame
	for _, fr := range frames {
		switch fr.Type {
		case FrameResponse:
			responses = append(responses, fr)
		case FrameError:
			errs = append(errs, fr)
		}
	}
	require.Len(t, responses, 2)
	assert.Equal(t, "echo: first", responses[0].Content)
	assert.Equal(t, "echo: second", responses[1].Content)
	require.NotNil(t, responses[0].Progress)
	assert.InDelta(t, 0.2, *responses[0].Progress, 1e-9)
	require.Len(t, errs, 1)
	assert.Equal(t, "s1", errs[0].SessionId)

	close(conn.in)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeWs did not return after the peer left")
	}
	require.Eventually(t, func() bool { return !hub.IsConnected("s1") }, time.Second, 5*time.Millisecond)
}

func TestServeWs_RejectsBadFrames(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()
	assistant := &fakeAssistant{}

	go ServeWs(hub, conn, "s2", assistant, logger.NewNop())
	t.Cleanup(func() { close(conn.in) })

	conn.in <- []byte("{broken")
	send(t, conn, inboundFrame{Type: InboundMessage})
	send(t, conn, inboundFrame{Type: "subscribe"})

	require.Eventually(t, func() bool { return len(conn.frames()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{FrameConnected, FrameError, FrameError, FrameError}, conn.types())
	assert.Empty(t, assistant.messages())
}

func TestHub_ForwardEvent(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()

	go ServeWs(hub, conn, "s3", &fakeAssistant{}, logger.NewNop())
	t.Cleanup(func() { close(conn.in) })
	require.Eventually(t, func() bool { return hub.IsConnected("s3") }, time.Second, 5*time.Millisecond)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, hub.ForwardEvent(context.Background(), events.NewDocumentPublished("s3", "101", "https://wiki/101", at)))
	require.NoError(t, hub.ForwardEvent(context.Background(), events.BaseEvent{Type: "ORPHAN"}))
	require.NoError(t, hub.ForwardEvent(context.Background(), events.NewSessionReset("other", at)))

	require.Eventually(t, func() bool { return len(conn.frames()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, FrameConnected, conn.frames()[0].Type)
	frame := conn.frames()[1]
	assert.Equal(t, FrameSessionEvent, frame.Type)
	assert.Equal(t, events.TypeDocumentPublished, frame.Event)
	assert.Equal(t, "https://wiki/101", frame.Data["url"])
}

func TestServeWs_ConnectedFrameComesFirst(t *testing.T) {
	hub := startHub(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < 20; i++ {
		sid := fmt.Sprintf("race-%d", i)
		conn := newFakeConn()
		go ServeWs(hub, conn, sid, &fakeAssistant{}, logger.NewNop())

		require.Eventually(t, func() bool { return hub.IsConnected(sid) }, time.Second, time.Millisecond)
		require.NoError(t, hub.ForwardEvent(context.Background(), events.NewSessionReset(sid, at)))

		require.Eventually(t, func() bool { return len(conn.frames()) == 2 }, time.Second, time.Millisecond)
		assert.Equal(t, []string{FrameConnected, FrameSessionEvent}, conn.types())
		close(conn.in)
	}
}

func TestServeWs_StoppedHubClosesConn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	conn := newFakeConn()
	ServeWs(hub, conn, "late", &fakeAssistant{}, logger.NewNop())

	assert.True(t, conn.isClosed())
	assert.Empty(t, conn.frames())
	assert.False(t, hub.IsConnected("late"))
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	c := newClient(NewHub(nil, logger.NewNop()), newFakeConn(), "s4", &fakeAssistant{}, logger.NewNop())
	assert.True(t, c.enqueue([]byte("{}")))

	c.close()
	c.close()
	assert.False(t, c.enqueue([]byte("{}")))
	assert.False(t, c.submit("late"))
}
