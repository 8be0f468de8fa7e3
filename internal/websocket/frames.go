package websocket

import "ba-assistant-be/internal/dto"

// Outbound frame types
const (
	FrameConnected    = "connected"
	FrameTyping       = "typing"
	FrameResponse     = "response"
	FrameError        = "error"
	FramePong         = "pong"
	FrameSessionEvent = "session_event"
)

// Inbound frame types
const (
	InboundMessage = "message"
	InboundPing    = "ping"
)

// Frame is the JSON envelope pushed to websocket peers
type Frame struct {
	Type          string                 `json:"type"`
	SessionId     string                 `json:"session_id"`
	Content       string                 `json:"content,omitempty"`
	Phase         string                 `json:"phase,omitempty"`
	DocType       string                 `json:"doc_type,omitempty"`
	Progress      *float64               `json:"progress,omitempty"`
	DocumentReady bool                   `json:"document_ready,omitempty"`
	DocumentPath  string                 `json:"document_path,omitempty"`
	WikiURL       string                 `json:"wiki_url,omitempty"`
	Event         string                 `json:"event,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func responseFrame(res *dto.SendChatResponse) Frame {
	progress := res.Progress
	return Frame{
		Type:          FrameResponse,
		SessionId:     res.SessionId,
		Content:       res.Response,
		Phase:         res.Phase,
		DocType:       res.DocType,
		Progress:      &progress,
		DocumentReady: res.DocumentReady,
		DocumentPath:  res.DocumentPath,
		WikiURL:       res.WikiURL,
	}
}
