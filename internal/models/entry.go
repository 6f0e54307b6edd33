package models

import (
	"time"

	"gorm.io/gorm"
)

// GradebookEntry is one scored item for one student in one category.
// AdjustedScore, Percentage and LetterGrade are derived fields: they are
// recomputed by the gradebook service whenever RawScore, PossiblePoints
// or AppliedCurveID changes, never hand-set.
type GradebookEntry struct {
	ID           uint  `json:"id" gorm:"primaryKey"`
	StudentID    uint  `json:"student_id" gorm:"not null;index" validate:"required"`
	CourseID     uint  `json:"course_id" gorm:"not null;index" validate:"required"`
	CategoryID   uint  `json:"category_id" gorm:"not null;index" validate:"required"`
	AssessmentID *uint `json:"assessment_id" gorm:"index"`

	RawScore       float64 `json:"raw_score" gorm:"not null"`
	PossiblePoints float64 `json:"possible_points" gorm:"not null" validate:"required,gt=0"`
	AppliedCurveID *uint   `json:"applied_curve_id" gorm:"index"`

	// Derived
	AdjustedScore float64 `json:"adjusted_score" gorm:"not null"`
	Percentage    float64 `json:"percentage" gorm:"not null"`
	LetterGrade   *string `json:"letter_grade" gorm:"size:5"`

	IsExcused     bool    `json:"is_excused" gorm:"default:false"`
	IsExtraCredit bool    `json:"is_extra_credit" gorm:"default:false"`
	Comments      *string `json:"comments" gorm:"type:text" validate:"omitempty,max=1000"`

	IsPublished bool `json:"is_published" gorm:"default:false;index"`

	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Category GradeCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Curve    *GradeCurve   `json:"curve,omitempty" gorm:"foreignKey:AppliedCurveID"`
}

func (GradebookEntry) TableName() string {
	return "gradebook_entries"
}
