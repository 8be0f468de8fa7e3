package contract

import (
	"context"

	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/repository/specification"
)

type SessionLogRepository interface {
	// CreateIfAbsent inserts the session unless a row with the same id exists
	CreateIfAbsent(ctx context.Context, session *entity.SessionLog) error
	Update(ctx context.Context, session *entity.SessionLog) error
	Delete(ctx context.Context, specs ...specification.Specification) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionLog, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionLog, error)
	FindIDs(ctx context.Context, specs ...specification.Specification) ([]string, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	CountByDocType(ctx context.Context) (map[string]int64, error)
}

type MessageLogRepository interface {
	Create(ctx context.Context, msg *entity.MessageLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MessageLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteBySessionIDs(ctx context.Context, ids []string) error
}
