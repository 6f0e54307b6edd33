package repositories

import (
	"time"

	"github.com/campusworks/gradebook-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type EntryFilters struct {
	StudentID    *uint  `json:"student_id"`
	CourseID     *uint  `json:"course_id"`
	CategoryID   *uint  `json:"category_id"`
	AssessmentID *uint  `json:"assessment_id"`
	IsPublished  *bool  `json:"is_published"`
	IsExcused    *bool  `json:"is_excused"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	Limit        int    `json:"limit"`
	Offset       int    `json:"offset"`
	SortBy       string `json:"sort_by"`    // "created_at", "percentage", "updated_at"
	SortOrder    string `json:"sort_order"` // "asc", "desc"
}

type DisputeFilters struct {
	Status     *models.DisputeStatus `json:"status"`
	StudentID  *uint                 `json:"student_id"`
	EntryID    *uint                 `json:"entry_id"`
	ReviewedBy *uint                 `json:"reviewed_by"`
	DateFrom   *time.Time            `json:"date_from"`
	DateTo     *time.Time            `json:"date_to"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
	SortBy     string                `json:"sort_by"`
	SortOrder  string                `json:"sort_order"`
}

type HistoryFilters struct {
	EntryID    *uint      `json:"entry_id"`
	ModifiedBy *uint      `json:"modified_by"`
	DateFrom   *time.Time `json:"date_from"`
	DateTo     *time.Time `json:"date_to"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

type ScaleFilters struct {
	CourseID   *uint `json:"course_id"`
	ActiveOnly bool  `json:"active_only"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type GradebookStats struct {
	TotalEntries     int     `json:"total_entries"`
	PublishedEntries int     `json:"published_entries"`
	ExcusedEntries   int     `json:"excused_entries"`
	AveragePercent   float64 `json:"average_percent"`
	HighestPercent   float64 `json:"highest_percent"`
	LowestPercent    float64 `json:"lowest_percent"`
}

type DisputeStats struct {
	TotalDisputes   int                          `json:"total_disputes"`
	StatusBreakdown map[models.DisputeStatus]int `json:"status_breakdown"`
	ActiveDisputes  int                          `json:"active_disputes"`
}
