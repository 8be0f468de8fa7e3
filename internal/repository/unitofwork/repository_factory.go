package unitofwork

import "context"

// RepositoryFactory hands out units of work bound to one database
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
