package postgres

import (
	"context"
	"time"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"gorm.io/gorm"
)

type EntryPostgreSQL struct {
	db *gorm.DB
}

func NewEntryPostgreSQL(db *gorm.DB) *EntryPostgreSQL {
	return &EntryPostgreSQL{db: db}
}

func (e *EntryPostgreSQL) Create(ctx context.Context, entry *models.GradebookEntry) error {
	return e.db.WithContext(ctx).Create(entry).Error
}

func (e *EntryPostgreSQL) GetByID(ctx context.Context, id uint) (*models.GradebookEntry, error) {
	var entry models.GradebookEntry
	err := e.db.WithContext(ctx).
		Preload("Category").
		First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (e *EntryPostgreSQL) Update(ctx context.Context, entry *models.GradebookEntry) error {
	entry.UpdatedAt = time.Now()
	return e.db.WithContext(ctx).Save(entry).Error
}

// Delete soft deletes an entry. Whether an entry referenced by a
// dispute may be deleted is caller-level policy; the repository does
// not second-guess it.
func (e *EntryPostgreSQL) Delete(ctx context.Context, id uint) error {
	return e.db.WithContext(ctx).Delete(&models.GradebookEntry{}, id).Error
}

func (e *EntryPostgreSQL) List(ctx context.Context, filters repositories.EntryFilters) ([]*models.GradebookEntry, int64, error) {
	query := e.db.WithContext(ctx).Model(&models.GradebookEntry{})
	query = e.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"percentage": "percentage",
	})

	var entries []*models.GradebookEntry
	err := query.Preload("Category").Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetForAggregation fetches the rows the aggregation engine consumes:
// published and not excused, ordered by creation time so drop-lowest
// tie-breaks are stable.
func (e *EntryPostgreSQL) GetForAggregation(ctx context.Context, studentID, courseID uint) ([]*models.GradebookEntry, error) {
	var entries []*models.GradebookEntry
	err := e.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND is_published = ? AND is_excused = ?",
			studentID, courseID, true, false).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (e *EntryPostgreSQL) GetStats(ctx context.Context, courseID uint, categoryID *uint) (*repositories.GradebookStats, error) {
	query := e.db.WithContext(ctx).
		Model(&models.GradebookEntry{}).
		Where("course_id = ?", courseID)
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	stats := &repositories.GradebookStats{}

	var total, published, excused int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	query.Session(&gorm.Session{}).Where("is_published = ?", true).Count(&published)
	query.Session(&gorm.Session{}).Where("is_excused = ?", true).Count(&excused)

	if published > 0 {
		row := query.Session(&gorm.Session{}).
			Where("is_published = ? AND is_excused = ?", true, false).
			Select("COALESCE(AVG(percentage), 0), COALESCE(MAX(percentage), 0), COALESCE(MIN(percentage), 0)").
			Row()
		if err := row.Scan(&stats.AveragePercent, &stats.HighestPercent, &stats.LowestPercent); err != nil {
			return nil, err
		}
	}

	stats.TotalEntries = int(total)
	stats.PublishedEntries = int(published)
	stats.ExcusedEntries = int(excused)
	return stats, nil
}

func (e *EntryPostgreSQL) applyFilters(query *gorm.DB, filters repositories.EntryFilters) *gorm.DB {
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.IsPublished != nil {
		query = query.Where("is_published = ?", *filters.IsPublished)
	}
	if filters.IsExcused != nil {
		query = query.Where("is_excused = ?", *filters.IsExcused)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// HistoryPostgreSQL is the insert-only audit trail store.
type HistoryPostgreSQL struct {
	db *gorm.DB
}

func NewHistoryPostgreSQL(db *gorm.DB) *HistoryPostgreSQL {
	return &HistoryPostgreSQL{db: db}
}

func (h *HistoryPostgreSQL) Append(ctx context.Context, record *models.GradeHistory) error {
	return h.db.WithContext(ctx).Create(record).Error
}

func (h *HistoryPostgreSQL) ListByEntry(ctx context.Context, entryID uint) ([]*models.GradeHistory, error) {
	var records []*models.GradeHistory
	err := h.db.WithContext(ctx).
		Where("gradebook_entry_id = ?", entryID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	return records, err
}

func (h *HistoryPostgreSQL) List(ctx context.Context, filters repositories.HistoryFilters) ([]*models.GradeHistory, int64, error) {
	query := h.db.WithContext(ctx).Model(&models.GradeHistory{})

	if filters.EntryID != nil {
		query = query.Where("gradebook_entry_id = ?", *filters.EntryID)
	}
	if filters.ModifiedBy != nil {
		query = query.Where("modified_by = ?", *filters.ModifiedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []*models.GradeHistory
	err := query.Order("created_at DESC, id DESC").Find(&records).Error
	return records, total, err
}
