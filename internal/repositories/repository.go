package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories and hands out
// transaction-scoped views of itself. Upsert and dispute transitions
// must run inside WithTransaction so the read-compute-write sequence of
// each call commits atomically.
type Repository interface {
	Category() CategoryRepository
	Curve() CurveRepository
	Scale() ScaleRepository
	Entry() EntryRepository
	History() HistoryRepository
	Dispute() DisputeRepository

	// WithTransaction runs fn against a Repository bound to a single
	// storage transaction, committing on nil and rolling back on error.
	WithTransaction(ctx context.Context, fn func(Repository) error) error
}

// IsNotFoundError checks if error represents a "not found" condition
// at the storage layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
