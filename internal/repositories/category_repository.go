package repositories

import (
	"context"

	"github.com/campusworks/gradebook-service/internal/models"
)

// CategoryRepository covers the weighted category tree. Categories are
// soft-deleted via Deactivate so historical entries keep a valid
// reference.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.GradeCategory) error
	GetByID(ctx context.Context, id uint) (*models.GradeCategory, error)
	Update(ctx context.Context, category *models.GradeCategory) error
	Deactivate(ctx context.Context, id uint) error

	// GetByCourse returns all categories of a course, ordered by
	// display_order; callers assemble the tree from parent ids.
	GetByCourse(ctx context.Context, courseID uint, activeOnly bool) ([]*models.GradeCategory, error)

	// GetChildren returns the direct children of parentID within a
	// course. A nil parentID selects the implicit root level.
	GetChildren(ctx context.Context, courseID uint, parentID *uint, activeOnly bool) ([]*models.GradeCategory, error)

	UpdateDisplayOrder(ctx context.Context, id uint, displayOrder int) error
	HasEntries(ctx context.Context, id uint) (bool, error)
}
