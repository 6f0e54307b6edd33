package repositories

import (
	"context"

	"github.com/campusworks/gradebook-service/internal/models"
)

type EntryRepository interface {
	Create(ctx context.Context, entry *models.GradebookEntry) error
	GetByID(ctx context.Context, id uint) (*models.GradebookEntry, error)
	Update(ctx context.Context, entry *models.GradebookEntry) error
	Delete(ctx context.Context, id uint) error // soft delete

	List(ctx context.Context, filters EntryFilters) ([]*models.GradebookEntry, int64, error)

	// GetForAggregation returns the published, non-excused entries of
	// a student in a course, ordered by creation time so drop-lowest
	// tie-breaks are deterministic.
	GetForAggregation(ctx context.Context, studentID, courseID uint) ([]*models.GradebookEntry, error)

	GetStats(ctx context.Context, courseID uint, categoryID *uint) (*GradebookStats, error)
}

// HistoryRepository is the insert-only write path for the audit trail.
// There is deliberately no update or delete operation.
type HistoryRepository interface {
	Append(ctx context.Context, record *models.GradeHistory) error
	ListByEntry(ctx context.Context, entryID uint) ([]*models.GradeHistory, error)
	List(ctx context.Context, filters HistoryFilters) ([]*models.GradeHistory, int64, error)
}
