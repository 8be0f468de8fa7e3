package websocket

import (
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/service"
)

// ServeWs binds the connection to a session and blocks until the peer goes
// away.
func ServeWs(hub *Hub, conn Conn, sessionID string, assistant service.IAssistantService, log logger.ILogger) {
	client := newClient(hub, conn, sessionID, assistant, log)

	// queued before the hub can route session events to this client
	client.sendFrame(Frame{Type: FrameConnected, Content: "Connected to session " + sessionID})

	if !hub.attach(client) {
		client.close()
		conn.Close()
		return
	}

	go client.writePump()
	go client.processInbox()
	client.readPump()
}
