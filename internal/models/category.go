package models

import (
	"time"
)

// GradeCategory is one node of a course's weighted category tree.
// Roots have a nil ParentID; children reference their parent by id.
// Weights are percentages (0-100) and siblings of the same parent are
// expected to sum to 100 among active categories, checked on demand by
// the category service rather than enforced at write time.
type GradeCategory struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	CourseID uint    `json:"course_id" gorm:"not null;index" validate:"required"`
	Name     string  `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	Weight   float64 `json:"weight" gorm:"not null" validate:"min=0,max=100"`
	ParentID *uint   `json:"parent_id" gorm:"index"`

	DisplayOrder int `json:"display_order" gorm:"default:0"`

	// Drop-lowest policy
	DropLowest           bool `json:"drop_lowest" gorm:"default:false"`
	NumberOfLowestToDrop int  `json:"number_of_lowest_to_drop" gorm:"default:1" validate:"min=0"`

	// Soft delete: inactive categories keep historical entries valid
	// but are excluded from weight validation and aggregation.
	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Parent   *GradeCategory  `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []GradeCategory `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

func (GradeCategory) TableName() string {
	return "grade_categories"
}
