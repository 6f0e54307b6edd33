package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradeScale maps percentage ranges to letter grades. The entry list is
// stored as jsonb and decoded on read; ranges must not overlap and a
// scale may intentionally leave gaps (uncovered percentages resolve to
// "N/A").
type GradeScale struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	CourseID *uint   `json:"course_id" gorm:"index"` // nil for system-wide scales

	Entries datatypes.JSON `json:"entries" gorm:"type:jsonb"` // []GradeScaleEntry

	// Exactly one active scale may be the system default at a time;
	// SetDefault swaps the flag atomically.
	IsDefault bool `json:"is_default" gorm:"default:false;index"`
	IsActive  bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GradeScaleEntry is one percentage range of a scale. Bounds are
// inclusive and must lie within [0,100].
type GradeScaleEntry struct {
	Letter     string   `json:"letter" validate:"required,min=1,max=5"`
	LowerBound float64  `json:"lower_bound" validate:"min=0,max=100"`
	UpperBound float64  `json:"upper_bound" validate:"min=0,max=100"`
	GPAValue   *float64 `json:"gpa_value,omitempty"`
}

// NoLetterGrade is returned when a percentage falls into an uncovered
// gap of a scale. Partial coverage is legal.
const NoLetterGrade = "N/A"

func (GradeScale) TableName() string {
	return "grade_scales"
}
