package postgres

import (
	"context"
	"time"

	"github.com/campusworks/gradebook-service/internal/models"
	"gorm.io/gorm"
)

type CurvePostgreSQL struct {
	db *gorm.DB
}

func NewCurvePostgreSQL(db *gorm.DB) *CurvePostgreSQL {
	return &CurvePostgreSQL{db: db}
}

func (c *CurvePostgreSQL) Create(ctx context.Context, curve *models.GradeCurve) error {
	curve.IsActive = true
	return c.db.WithContext(ctx).Create(curve).Error
}

func (c *CurvePostgreSQL) GetByID(ctx context.Context, id uint) (*models.GradeCurve, error) {
	var curve models.GradeCurve
	err := c.db.WithContext(ctx).First(&curve, id).Error
	if err != nil {
		return nil, err
	}
	return &curve, nil
}

func (c *CurvePostgreSQL) Update(ctx context.Context, curve *models.GradeCurve) error {
	curve.UpdatedAt = time.Now()
	return c.db.WithContext(ctx).Save(curve).Error
}

func (c *CurvePostgreSQL) Deactivate(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).
		Model(&models.GradeCurve{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
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

func (c *CurvePostgreSQL) List(ctx context.Context, activeOnly bool) ([]*models.GradeCurve, error) {
	query := c.db.WithContext(ctx).Model(&models.GradeCurve{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var curves []*models.GradeCurve
	err := query.Order("name ASC").Find(&curves).Error
	return curves, err
}

func (c *CurvePostgreSQL) GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.GradeCurve, error) {
	var curves []*models.GradeCurve
	err := c.db.WithContext(ctx).
		Where("target_assessment_id = ? AND is_active = ?", assessmentID, true).
		Find(&curves).Error
	return curves, err
}
