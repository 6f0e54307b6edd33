package models

import (
	"time"
)

type CurveType string

const (
	CurveLinear     CurveType = "linear"
	CurveNormal     CurveType = "normal"
	CurveSquareRoot CurveType = "square_root"
	CurveCustom     CurveType = "custom"
)

// GradeCurve is a named, pure numeric transform applied to a raw
// percentage before it counts toward aggregation. It holds no
// per-student state.
type GradeCurve struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	CurveType CurveType `json:"curve_type" gorm:"not null" validate:"required,curve_type"`

	// Parameters; which ones apply depends on CurveType.
	Adjustment        float64 `json:"adjustment"`                                   // linear, square_root, custom
	Mean              float64 `json:"mean" validate:"min=0,max=100"`                // normal
	StandardDeviation float64 `json:"standard_deviation" validate:"min=0,max=100"`  // normal, must be > 0 when used
	CustomFormula     *string `json:"custom_formula" gorm:"size:500"`               // custom, evaluated by the caller
	TargetAssessmentID *uint  `json:"target_assessment_id" gorm:"index"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GradeCurve) TableName() string {
	return "grade_curves"
}
