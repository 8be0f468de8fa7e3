package dto

import "time"

type SendChatRequest struct {
	Message   string `json:"message" validate:"required,max=20000"`
	SessionId string `json:"session_id,omitempty" validate:"omitempty,max=64"`
}

type SendChatResponse struct {
	Response      string  `json:"response"`
	SessionId     string  `json:"session_id"`
	Phase         string  `json:"phase"`
	DocType       string  `json:"doc_type,omitempty"`
	Progress      float64 `json:"progress"`
	DocumentReady bool    `json:"document_ready"`
	DocumentPath  string  `json:"document_path,omitempty"`
	WikiURL       string  `json:"wiki_url,omitempty"`
}

type SessionInfoResponse struct {
	SessionId     string     `json:"session_id"`
	Status        string     `json:"status"`
	DocType       string     `json:"doc_type,omitempty"`
	MessageCount  int        `json:"message_count"`
	Progress      float64    `json:"progress"`
	DocumentReady bool       `json:"document_ready"`
	DocumentPath  string     `json:"document_path,omitempty"`
	Connected     bool       `json:"connected,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type ChatHistoryResponse struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Provider       string `json:"provider"`
	RouterModel    string `json:"router_model"`
	AssistantModel string `json:"assistant_model"`
	ActiveSessions int    `json:"active_sessions"`
	LogStore       string `json:"log_store"`
	Wiki           bool   `json:"wiki_enabled"`
}
