package events

import "time"

const (
	TypeDocumentGenerated = "DOCUMENT_GENERATED"
	TypeSessionReset      = "SESSION_RESET"
	TypeDocumentPublished = "DOCUMENT_PUBLISHED"
)

func NewDocumentGenerated(sessionID, docType, title, path string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentGenerated,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"doc_type":      docType,
			"title":         title,
			"document_path": path,
			"occurred_at":   at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}

func NewSessionReset(sessionID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeSessionReset,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"occurred_at": at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}

func NewDocumentPublished(sessionID, pageID, url string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentPublished,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"page_id":     pageID,
			"url":         url,
			"occurred_at": at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}
