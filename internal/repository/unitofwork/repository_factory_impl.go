package unitofwork

import (
	"context"

	"gorm.io/gorm"
)

type gormRepositoryFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormRepositoryFactory{db: db}
}

// NewUnitOfWork is short lived, one per store operation. Queries made
// outside a transaction carry ctx.
func (f *gormRepositoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db.WithContext(ctx))
}
