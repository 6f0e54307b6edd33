package models

import (
	"time"
)

type DisputeStatus string

const (
	DisputePending     DisputeStatus = "pending"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeApproved    DisputeStatus = "approved"
	DisputeRejected    DisputeStatus = "rejected"
	DisputeResolved    DisputeStatus = "resolved"
)

// IsTerminal reports whether no further transitions are allowed.
func (s DisputeStatus) IsTerminal() bool {
	switch s {
	case DisputeApproved, DisputeRejected, DisputeResolved:
		return true
	}
	return false
}

// IsActive reports whether the dispute still blocks creation of a new
// dispute on the same entry.
func (s DisputeStatus) IsActive() bool {
	return s == DisputePending || s == DisputeUnderReview
}

// GradeDispute is a bounded workflow over one GradebookEntry: a student
// contests a result, a reviewer resolves it. At most one active
// (pending/under_review) dispute may exist per entry.
type GradeDispute struct {
	ID               uint `json:"id" gorm:"primaryKey"`
	GradebookEntryID uint `json:"gradebook_entry_id" gorm:"not null;index"`
	StudentID        uint `json:"student_id" gorm:"not null;index"`

	Reason   string  `json:"reason" gorm:"not null;type:text" validate:"required,min=1,max=2000"`
	Evidence *string `json:"evidence" gorm:"type:text" validate:"omitempty,max=5000"`

	Status DisputeStatus `json:"status" gorm:"default:pending;index" validate:"omitempty,dispute_status"`

	ReviewedBy          *uint    `json:"reviewed_by" gorm:"index"`
	Resolution          *string  `json:"resolution" gorm:"type:text"`
	ProposedScore       *float64 `json:"proposed_score"`
	ProposedLetterGrade *string  `json:"proposed_letter_grade" gorm:"size:5"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Entry GradebookEntry `json:"entry,omitempty" gorm:"foreignKey:GradebookEntryID"`
}

func (GradeDispute) TableName() string {
	return "grade_disputes"
}

// CanTransitionTo validates the dispute state machine:
// pending -> under_review -> {approved, rejected, resolved}, with
// resolved reachable from any non-terminal state once a resolution is
// recorded.
func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case DisputePending:
		return next == DisputeUnderReview || next == DisputeResolved
	case DisputeUnderReview:
		return next == DisputeApproved || next == DisputeRejected || next == DisputeResolved
	}
	return false
}
