package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradeHistory is the append-only audit record for a gradebook entry.
// One record is written per mutation, including the initial creation
// (where the Previous* fields are null). Records are never updated or
// deleted; the history table has its own insert-only write path.
type GradeHistory struct {
	ID               uint `json:"id" gorm:"primaryKey"`
	GradebookEntryID uint `json:"gradebook_entry_id" gorm:"not null;index"`

	PreviousRawScore      *float64 `json:"previous_raw_score"`
	NewRawScore           float64  `json:"new_raw_score" gorm:"not null"`
	PreviousAdjustedScore *float64 `json:"previous_adjusted_score"`
	NewAdjustedScore      float64  `json:"new_adjusted_score" gorm:"not null"`
	PreviousLetterGrade   *string  `json:"previous_letter_grade" gorm:"size:5"`
	NewLetterGrade        *string  `json:"new_letter_grade" gorm:"size:5"`

	Reason     string `json:"reason" gorm:"not null;type:text"`
	ModifiedBy uint   `json:"modified_by" gorm:"not null;index"`

	// Extra context for compliance tooling (curve changes, publish
	// flips) that does not fit the fixed before/after columns.
	Changes datatypes.JSON `json:"changes,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// HistoryReasonDisputeResolution is the reason recorded when an
// approved dispute's proposed score is applied to the entry.
const HistoryReasonDisputeResolution = "dispute resolution"

func (GradeHistory) TableName() string {
	return "grade_history"
}
