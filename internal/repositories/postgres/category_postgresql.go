package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/campusworks/gradebook-service/internal/models"
	"gorm.io/gorm"
)

type CategoryPostgreSQL struct {
	db *gorm.DB
}

func NewCategoryPostgreSQL(db *gorm.DB) *CategoryPostgreSQL {
	return &CategoryPostgreSQL{db: db}
}

// Create creates a category after verifying the parent reference.
// Cycles cannot be introduced here: a category is only ever created
// pointing at an already existing parent.
func (c *CategoryPostgreSQL) Create(ctx context.Context, category *models.GradeCategory) error {
	if category.ParentID != nil {
		var parent models.GradeCategory
		err := c.db.WithContext(ctx).First(&parent, *category.ParentID).Error
		if err != nil {
			return fmt.Errorf("parent category lookup failed: %w", err)
		}
		if parent.CourseID != category.CourseID {
			return fmt.Errorf("parent category %d belongs to another course", *category.ParentID)
		}
	}

	category.IsActive = true
	return c.db.WithContext(ctx).Create(category).Error
}

func (c *CategoryPostgreSQL) GetByID(ctx context.Context, id uint) (*models.GradeCategory, error) {
	var category models.GradeCategory
	err := c.db.WithContext(ctx).First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *CategoryPostgreSQL) Update(ctx context.Context, category *models.GradeCategory) error {
	category.UpdatedAt = time.Now()
	return c.db.WithContext(ctx).Save(category).Error
}

// Deactivate soft-deletes a category. Entries keep referencing it;
// aggregation and weight validation skip it.
func (c *CategoryPostgreSQL) Deactivate(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).
		Model(&models.GradeCategory{}).
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

func (c *CategoryPostgreSQL) GetByCourse(ctx context.Context, courseID uint, activeOnly bool) ([]*models.GradeCategory, error) {
	query := c.db.WithContext(ctx).
		Where("course_id = ?", courseID)

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var categories []*models.GradeCategory
	err := query.Order("display_order ASC, id ASC").Find(&categories).Error
	return categories, err
}

func (c *CategoryPostgreSQL) GetChildren(ctx context.Context, courseID uint, parentID *uint, activeOnly bool) ([]*models.GradeCategory, error) {
	query := c.db.WithContext(ctx).
		Where("course_id = ?", courseID)

	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var categories []*models.GradeCategory
	err := query.Order("display_order ASC, id ASC").Find(&categories).Error
	return categories, err
}

func (c *CategoryPostgreSQL) UpdateDisplayOrder(ctx context.Context, id uint, displayOrder int) error {
	return c.db.WithContext(ctx).
		Model(&models.GradeCategory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"display_order": displayOrder,
			"updated_at":    time.Now(),
		}).Error
}

func (c *CategoryPostgreSQL) HasEntries(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.GradebookEntry{}).
		Where("category_id = ?", id).
		Count(&count).Error
	return count > 0, err
}
