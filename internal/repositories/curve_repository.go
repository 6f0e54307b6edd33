package repositories

import (
	"context"

	"github.com/campusworks/gradebook-service/internal/models"
)

type CurveRepository interface {
	Create(ctx context.Context, curve *models.GradeCurve) error
	GetByID(ctx context.Context, id uint) (*models.GradeCurve, error)
	Update(ctx context.Context, curve *models.GradeCurve) error
	Deactivate(ctx context.Context, id uint) error

	List(ctx context.Context, activeOnly bool) ([]*models.GradeCurve, error)
	GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.GradeCurve, error)
}
