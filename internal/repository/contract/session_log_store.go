package contract

import (
	"context"
	"time"

	"ba-assistant-be/internal/entity"
)

// SessionLogStore is the durable, append-only record of sessions and their
// messages. Session rows have upsert semantics; messages are never edited.
// GetSession returns nil, nil for an unknown id.
type SessionLogStore interface {
	CreateSession(ctx context.Context, sessionID string) error
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	UpdateSession(ctx context.Context, sessionID string, fields entity.SessionUpdate) error
	GetSession(ctx context.Context, sessionID string) (*entity.SessionLog, error)
	GetMessages(ctx context.Context, sessionID string) ([]*entity.MessageLog, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*entity.SessionLog, error)
	DeleteSession(ctx context.Context, sessionID string) error
	// PurgeOlderThan deletes sessions not updated since cutoff together with
	// their messages and returns the number of sessions removed
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Statistics(ctx context.Context) (*entity.SessionStats, error)
	Close() error
}
