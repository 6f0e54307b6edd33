package repositories

import (
	"context"

	"github.com/campusworks/gradebook-service/internal/models"
)

type ScaleRepository interface {
	Create(ctx context.Context, scale *models.GradeScale) error
	GetByID(ctx context.Context, id uint) (*models.GradeScale, error)
	Update(ctx context.Context, scale *models.GradeScale) error
	Deactivate(ctx context.Context, id uint) error

	List(ctx context.Context, filters ScaleFilters) ([]*models.GradeScale, int64, error)

	// GetDefault returns the single active default scale, or a not
	// found error when none is configured.
	GetDefault(ctx context.Context) (*models.GradeScale, error)

	// GetByCourse returns the active scale configured for a course,
	// or a not found error.
	GetByCourse(ctx context.Context, courseID uint) (*models.GradeScale, error)

	// SetDefault flags the given scale as the system default and
	// unsets any previous default in the same transaction.
	SetDefault(ctx context.Context, id uint) error
}
