package dto

import "time"

type CleanupRequest struct {
	OlderThanDays int `json:"older_than_days" validate:"omitempty,min=1,max=3650"`
}

type CleanupResponse struct {
	SweptSessions  []string `json:"swept_sessions"`
	PurgedSessions int64    `json:"purged_sessions"`
}

type StatsResponse struct {
	InMemorySessions  int              `json:"in_memory_sessions"`
	ConnectedClients  int              `json:"connected_clients"`
	TotalSessions     int64            `json:"total_sessions"`
	ActiveSessions    int64            `json:"active_sessions"`
	CompletedSessions int64            `json:"completed_sessions"`
	TotalMessages     int64            `json:"total_messages"`
	ByDocType         map[string]int64 `json:"by_doc_type"`
}

type DocumentResponse struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
