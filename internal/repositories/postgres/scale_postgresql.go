package postgres

import (
	"context"
	"time"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"gorm.io/gorm"
)

type ScalePostgreSQL struct {
	db *gorm.DB
}

func NewScalePostgreSQL(db *gorm.DB) *ScalePostgreSQL {
	return &ScalePostgreSQL{db: db}
}

func (s *ScalePostgreSQL) Create(ctx context.Context, scale *models.GradeScale) error {
	scale.IsActive = true
	if !scale.IsDefault {
		return s.db.WithContext(ctx).Create(scale).Error
	}

	// Creating directly as default swaps the flag atomically.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.unsetDefault(tx); err != nil {
			return err
		}
		return tx.Create(scale).Error
	})
}

func (s *ScalePostgreSQL) GetByID(ctx context.Context, id uint) (*models.GradeScale, error) {
	var scale models.GradeScale
	err := s.db.WithContext(ctx).First(&scale, id).Error
	if err != nil {
		return nil, err
	}
	return &scale, nil
}

func (s *ScalePostgreSQL) Update(ctx context.Context, scale *models.GradeScale) error {
	scale.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(scale).Error
}

func (s *ScalePostgreSQL) Deactivate(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&models.GradeScale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"is_default": false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *ScalePostgreSQL) List(ctx context.Context, filters repositories.ScaleFilters) ([]*models.GradeScale, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.GradeScale{})

	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
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

	var scales []*models.GradeScale
	err := query.Order("name ASC").Find(&scales).Error
	return scales, total, err
}

func (s *ScalePostgreSQL) GetDefault(ctx context.Context) (*models.GradeScale, error) {
	var scale models.GradeScale
	err := s.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&scale).Error
	if err != nil {
		return nil, err
	}
	return &scale, nil
}

func (s *ScalePostgreSQL) GetByCourse(ctx context.Context, courseID uint) (*models.GradeScale, error) {
	var scale models.GradeScale
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND is_active = ?", courseID, true).
		First(&scale).Error
	if err != nil {
		return nil, err
	}
	return &scale, nil
}

// SetDefault promotes a scale to system default and unsets the previous
// default in the same transaction; an inactive scale cannot become the
// default.
func (s *ScalePostgreSQL) SetDefault(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scale models.GradeScale
		if err := tx.Where("id = ? AND is_active = ?", id, true).First(&scale).Error; err != nil {
			return err
		}

		if err := s.unsetDefault(tx); err != nil {
			return err
		}

		return tx.Model(&models.GradeScale{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_default": true,
				"updated_at": time.Now(),
			}).Error
	})
}

func (s *ScalePostgreSQL) unsetDefault(tx *gorm.DB) error {
	return tx.Model(&models.GradeScale{}).
		Where("is_default = ?", true).
		Updates(map[string]interface{}{
			"is_default": false,
			"updated_at": time.Now(),
		}).Error
}
