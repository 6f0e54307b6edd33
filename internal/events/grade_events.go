package events

import (
	"time"
)

// EventType represents the grade lifecycle events the engine publishes
type EventType string

const (
	// Gradebook entry events
	EventEntryCreated   EventType = "gradebook.entry_created"
	EventEntryUpdated   EventType = "gradebook.entry_updated"
	EventGradePublished EventType = "gradebook.grade_published"

	// Dispute events
	EventDisputeCreated  EventType = "dispute.created"
	EventDisputeResolved EventType = "dispute.resolved"
)

// GradeEvent is the base event structure for all grade events
type GradeEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type EntryChangedEvent struct {
	EntryID     uint     `json:"entry_id"`
	StudentID   uint     `json:"student_id"`
	CourseID    uint     `json:"course_id"`
	CategoryID  uint     `json:"category_id"`
	Percentage  float64  `json:"percentage"`
	LetterGrade *string  `json:"letter_grade,omitempty"`
	Reason      string   `json:"reason"`
	ModifiedBy  uint     `json:"modified_by"`
}

type GradePublishedEvent struct {
	EntryID     uint    `json:"entry_id"`
	StudentID   uint    `json:"student_id"`
	CourseID    uint    `json:"course_id"`
	Percentage  float64 `json:"percentage"`
	LetterGrade *string `json:"letter_grade,omitempty"`
}

type DisputeCreatedEvent struct {
	DisputeID uint   `json:"dispute_id"`
	EntryID   uint   `json:"entry_id"`
	StudentID uint   `json:"student_id"`
	Reason    string `json:"reason"`
}

type DisputeResolvedEvent struct {
	DisputeID  uint     `json:"dispute_id"`
	EntryID    uint     `json:"entry_id"`
	StudentID  uint     `json:"student_id"`
	Status     string   `json:"status"`
	ReviewedBy *uint    `json:"reviewed_by,omitempty"`
	Resolution *string  `json:"resolution,omitempty"`
	ProposedScore *float64 `json:"proposed_score,omitempty"`
}
