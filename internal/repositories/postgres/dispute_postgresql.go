package postgres

import (
	"context"
	"time"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"gorm.io/gorm"
)

type DisputePostgreSQL struct {
	db *gorm.DB
}

func NewDisputePostgreSQL(db *gorm.DB) *DisputePostgreSQL {
	return &DisputePostgreSQL{db: db}
}

func (d *DisputePostgreSQL) Create(ctx context.Context, dispute *models.GradeDispute) error {
	if dispute.Status == "" {
		dispute.Status = models.DisputePending
	}
	return d.db.WithContext(ctx).Create(dispute).Error
}

func (d *DisputePostgreSQL) GetByID(ctx context.Context, id uint) (*models.GradeDispute, error) {
	var dispute models.GradeDispute
	err := d.db.WithContext(ctx).
		Preload("Entry").
		First(&dispute, id).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (d *DisputePostgreSQL) Update(ctx context.Context, dispute *models.GradeDispute) error {
	dispute.UpdatedAt = time.Now()
	return d.db.WithContext(ctx).Save(dispute).Error
}

func (d *DisputePostgreSQL) List(ctx context.Context, filters repositories.DisputeFilters) ([]*models.GradeDispute, int64, error) {
	query := d.db.WithContext(ctx).Model(&models.GradeDispute{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.EntryID != nil {
		query = query.Where("gradebook_entry_id = ?", *filters.EntryID)
	}
	if filters.ReviewedBy != nil {
		query = query.Where("reviewed_by = ?", *filters.ReviewedBy)
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

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"status":     "status",
	})

	var disputes []*models.GradeDispute
	err := query.Find(&disputes).Error
	return disputes, total, err
}

func (d *DisputePostgreSQL) GetActiveByEntry(ctx context.Context, entryID uint) (*models.GradeDispute, error) {
	var dispute models.GradeDispute
	err := d.db.WithContext(ctx).
		Where("gradebook_entry_id = ? AND status IN ?", entryID, []models.DisputeStatus{
			models.DisputePending,
			models.DisputeUnderReview,
		}).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (d *DisputePostgreSQL) GetStats(ctx context.Context, courseID *uint) (*repositories.DisputeStats, error) {
	query := d.db.WithContext(ctx).Model(&models.GradeDispute{})
	if courseID != nil {
		query = query.
			Joins("JOIN gradebook_entries ge ON ge.id = grade_disputes.gradebook_entry_id").
			Where("ge.course_id = ?", *courseID)
	}

	type statusCount struct {
		Status models.DisputeStatus
		Count  int
	}
	var rows []statusCount
	err := query.Select("status, COUNT(*) as count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &repositories.DisputeStats{
		StatusBreakdown: make(map[models.DisputeStatus]int),
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
		stats.TotalDisputes += row.Count
		if row.Status.IsActive() {
			stats.ActiveDisputes += row.Count
		}
	}
	return stats, nil
}
