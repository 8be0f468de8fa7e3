package unitofwork

import (
	"context"
	"errors"

	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTxActive = errors.New("transaction already started")
	ErrNoTx     = errors.New("no transaction to commit")
)

type gormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUnitOfWork wraps db; repositories run outside a transaction until
// Begin is called
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	if u.tx == nil {
		return ErrNoTx
	}
	tx := u.tx
	u.tx = nil
	return tx.Commit().Error
}

// Rollback after Commit is a no-op so it can be deferred
func (u *gormUnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	return tx.Rollback().Error
}

func (u *gormUnitOfWork) SessionLogRepository() contract.SessionLogRepository {
	return implementation.NewSessionLogRepository(u.conn())
}

func (u *gormUnitOfWork) MessageLogRepository() contract.MessageLogRepository {
	return implementation.NewMessageLogRepository(u.conn())
}
