package service

import (
	"context"
	"fmt"
	"time"

	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/internal/repository/specification"
	"ba-assistant-be/internal/repository/unitofwork"
	"ba-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// sessionLogService is the Postgres session log store built on the unit of work
type sessionLogService struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
	closeFn    func() error
}

// NewSessionLogService returns a SessionLogStore over GORM. closeFn releases
// the underlying connection pool and may be nil.
func NewSessionLogService(uowFactory unitofwork.RepositoryFactory, closeFn func() error) contract.SessionLogStore {
	return &sessionLogService{
		uowFactory: uowFactory,
		now:        time.Now,
		closeFn:    closeFn,
	}
}

func (s *sessionLogService) newSession(id string) *entity.SessionLog {
	now := s.now()
	return &entity.SessionLog{
		Id:        id,
		Status:    store.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *sessionLogService) CreateSession(ctx context.Context, sessionID string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionLogRepository().CreateIfAbsent(ctx, s.newSession(sessionID)); err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	return nil
}

func (s *sessionLogService) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.SessionLogRepository().CreateIfAbsent(ctx, s.newSession(sessionID)); err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	msg := &entity.MessageLog{
		Id:        uuid.New(),
		SessionId: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := uow.MessageLogRepository().Create(ctx, msg); err != nil {
		return fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	return uow.Commit()
}

func (s *sessionLogService) UpdateSession(ctx context.Context, sessionID string, fields entity.SessionUpdate) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	repo := uow.SessionLogRepository()
	session, err := repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	if err != nil {
		return err
	}
	if session == nil {
		session = s.newSession(sessionID)
	}
	fields.Apply(session)
	session.UpdatedAt = s.now()

	if err := repo.Update(ctx, session); err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return uow.Commit()
}

func (s *sessionLogService) GetSession(ctx context.Context, sessionID string) (*entity.SessionLog, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionLogRepository().FindOne(ctx, specification.BySessionID{SessionID: sessionID})
}

func (s *sessionLogService) GetMessages(ctx context.Context, sessionID string) ([]*entity.MessageLog, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.MessageLogRepository().FindAll(ctx,
		specification.MessagesOfSession{SessionID: sessionID},
		specification.OrderBy{Field: "created_at"},
	)
}

func (s *sessionLogService) ListSessions(ctx context.Context, limit, offset int) ([]*entity.SessionLog, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{specification.OrderBy{Field: "updated_at", Desc: true}}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit, Offset: offset})
	}
	return uow.SessionLogRepository().FindAll(ctx, specs...)
}

func (s *sessionLogService) DeleteSession(ctx context.Context, sessionID string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.MessageLogRepository().DeleteBySessionIDs(ctx, []string{sessionID}); err != nil {
		return err
	}
	if _, err := uow.SessionLogRepository().Delete(ctx, specification.BySessionID{SessionID: sessionID}); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *sessionLogService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	sessions := uow.SessionLogRepository()
	ids, err := sessions.FindIDs(ctx, specification.UpdatedBefore{Cutoff: cutoff})
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := uow.MessageLogRepository().DeleteBySessionIDs(ctx, ids); err != nil {
		return 0, err
	}
	n, err := sessions.Delete(ctx, specification.UpdatedBefore{Cutoff: cutoff})
	if err != nil {
		return 0, err
	}
	return n, uow.Commit()
}

func (s *sessionLogService) Statistics(ctx context.Context) (*entity.SessionStats, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions := uow.SessionLogRepository()

	var (
		stats entity.SessionStats
		err   error
	)
	if stats.TotalSessions, err = sessions.Count(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveSessions, err = sessions.Count(ctx, specification.ByStatus{Status: store.StatusActive}); err != nil {
		return nil, err
	}
	if stats.CompletedSessions, err = sessions.Count(ctx, specification.ByStatus{Status: store.StatusCompleted}); err != nil {
		return nil, err
	}
	if stats.TotalMessages, err = uow.MessageLogRepository().Count(ctx); err != nil {
		return nil, err
	}
	if stats.ByDocType, err = sessions.CountByDocType(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *sessionLogService) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
