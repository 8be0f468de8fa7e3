package unitofwork

import (
	"context"

	"ba-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionLogRepository() contract.SessionLogRepository
	MessageLogRepository() contract.MessageLogRepository
}
