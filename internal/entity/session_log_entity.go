package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionLog is the persisted summary of one dialogue session
type SessionLog struct {
	Id           string
	DocType      string
	Status       string
	Progress     float64
	DocumentPath string
	Metadata     map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MessageLog struct {
	Id        uuid.UUID
	SessionId string
	Role      string
	Content   string
	CreatedAt time.Time
}

// SessionUpdate carries the fields to change; nil fields are left as is.
// Metadata keys are merged into the stored metadata.
type SessionUpdate struct {
	DocType      *string
	Status       *string
	Progress     *float64
	DocumentPath *string
	Metadata     map[string]interface{}
}

// Apply copies the set fields onto s
func (u SessionUpdate) Apply(s *SessionLog) {
	if u.DocType != nil {
		s.DocType = *u.DocType
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Progress != nil {
		s.Progress = *u.Progress
	}
	if u.DocumentPath != nil {
		s.DocumentPath = *u.DocumentPath
	}
	if len(u.Metadata) > 0 {
		if s.Metadata == nil {
			s.Metadata = make(map[string]interface{}, len(u.Metadata))
		}
		for k, v := range u.Metadata {
			s.Metadata[k] = v
		}
	}
}

type SessionStats struct {
	TotalSessions     int64            `json:"total_sessions"`
	ActiveSessions    int64            `json:"active_sessions"`
	CompletedSessions int64            `json:"completed_sessions"`
	TotalMessages     int64            `json:"total_messages"`
	ByDocType         map[string]int64 `json:"by_doc_type"`
}
