package repositories

import (
	"context"

	"github.com/campusworks/gradebook-service/internal/models"
)

type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.GradeDispute) error
	GetByID(ctx context.Context, id uint) (*models.GradeDispute, error)
	Update(ctx context.Context, dispute *models.GradeDispute) error

	List(ctx context.Context, filters DisputeFilters) ([]*models.GradeDispute, int64, error)

	// GetActiveByEntry returns the pending/under_review dispute for an
	// entry, or a not found error when none exists.
	GetActiveByEntry(ctx context.Context, entryID uint) (*models.GradeDispute, error)

	GetStats(ctx context.Context, courseID *uint) (*DisputeStats, error)
}
