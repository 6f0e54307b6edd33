package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/config"
	"github.com/campusworks/gradebook-service/internal/events"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
)

// ===== REQUEST / RESPONSE TYPES =====

type CreateCategoryRequest struct {
	CourseID             uint    `json:"course_id" validate:"required"`
	Name                 string  `json:"name" validate:"required,min=1,max=100"`
	Weight               float64 `json:"weight" validate:"min=0,max=100"`
	ParentID             *uint   `json:"parent_id"`
	DisplayOrder         int     `json:"display_order"`
	DropLowest           bool    `json:"drop_lowest"`
	NumberOfLowestToDrop int     `json:"number_of_lowest_to_drop" validate:"min=0"`
}

type UpdateCategoryRequest struct {
	Name                 *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Weight               *float64 `json:"weight" validate:"omitempty,min=0,max=100"`
	DisplayOrder         *int     `json:"display_order"`
	DropLowest           *bool    `json:"drop_lowest"`
	NumberOfLowestToDrop *int     `json:"number_of_lowest_to_drop" validate:"omitempty,min=0"`
	IsActive             *bool    `json:"is_active"`
}

// WeightValidationResult reports the advisory sibling weight check for
// one parent level.
type WeightValidationResult struct {
	CourseID  uint    `json:"course_id"`
	ParentID  *uint   `json:"parent_id"`
	WeightSum float64 `json:"weight_sum"`
	Valid     bool    `json:"valid"`
}

type CreateCurveRequest struct {
	Name               string           `json:"name" validate:"required,min=1,max=100"`
	CurveType          models.CurveType `json:"curve_type" validate:"required,curve_type"`
	Adjustment         float64          `json:"adjustment"`
	Mean               float64          `json:"mean" validate:"min=0,max=100"`
	StandardDeviation  float64          `json:"standard_deviation" validate:"min=0,max=100"`
	CustomFormula      *string          `json:"custom_formula" validate:"omitempty,max=500"`
	TargetAssessmentID *uint            `json:"target_assessment_id"`
}

type UpdateCurveRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Adjustment        *float64 `json:"adjustment"`
	Mean              *float64 `json:"mean" validate:"omitempty,min=0,max=100"`
	StandardDeviation *float64 `json:"standard_deviation" validate:"omitempty,min=0,max=100"`
	CustomFormula     *string  `json:"custom_formula" validate:"omitempty,max=500"`
	IsActive          *bool    `json:"is_active"`
}

type CreateScaleRequest struct {
	Name      string                   `json:"name" validate:"required,min=1,max=100"`
	CourseID  *uint                    `json:"course_id"`
	Entries   []models.GradeScaleEntry `json:"entries" validate:"required,min=1,dive"`
	IsDefault bool                     `json:"is_default"`
}

type UpdateScaleRequest struct {
	Name    *string                  `json:"name" validate:"omitempty,min=1,max=100"`
	Entries []models.GradeScaleEntry `json:"entries" validate:"omitempty,min=1,dive"`
}

// UpsertEntryRequest covers both creation (EntryID nil) and mutation
// (EntryID set) of a gradebook entry. Derived fields are never
// accepted from callers.
type UpsertEntryRequest struct {
	EntryID        *uint   `json:"entry_id"`
	StudentID      uint    `json:"student_id" validate:"required"`
	CourseID       uint    `json:"course_id" validate:"required"`
	CategoryID     uint    `json:"category_id" validate:"required"`
	AssessmentID   *uint   `json:"assessment_id"`
	RawScore       float64 `json:"raw_score" validate:"min=0"`
	PossiblePoints float64 `json:"possible_points" validate:"required,gt=0"`
	AppliedCurveID *uint   `json:"applied_curve_id"`
	IsExcused      *bool   `json:"is_excused"`
	IsExtraCredit  *bool   `json:"is_extra_credit"`
	Comments       *string `json:"comments" validate:"omitempty,max=1000"`
	IsPublished    *bool   `json:"is_published"`
	Reason         string  `json:"reason" validate:"required,min=1,max=500"`
}

type CreateDisputeRequest struct {
	GradebookEntryID uint    `json:"gradebook_entry_id" validate:"required"`
	Reason           string  `json:"reason" validate:"required,min=1,max=2000"`
	Evidence         *string `json:"evidence" validate:"omitempty,max=5000"`
}

type UpdateDisputeRequest struct {
	Status              *models.DisputeStatus `json:"status" validate:"omitempty,dispute_status"`
	Resolution          *string               `json:"resolution" validate:"omitempty,max=5000"`
	ReviewedBy          *uint                 `json:"reviewed_by"`
	ProposedScore       *float64              `json:"proposed_score" validate:"omitempty,min=0"`
	ProposedLetterGrade *string               `json:"proposed_letter_grade" validate:"omitempty,max=5"`
}

// GradeReport is the aggregation engine's result for one student in
// one course. Breakdown mirrors the course's category tree.
type GradeReport struct {
	StudentID   uint                `json:"student_id"`
	CourseID    uint                `json:"course_id"`
	Percentage  float64             `json:"percentage"`
	LetterGrade string              `json:"letter_grade"`
	GPAValue    *float64            `json:"gpa_value,omitempty"`
	Breakdown   []CategoryBreakdown `json:"breakdown"`
	ComputedAt  time.Time           `json:"computed_at"`
}

// CategoryBreakdown is one node of the per-category roll-up. Score is
// nil for categories with no graded entries; such categories are
// excluded from the weight normalization at their level.
type CategoryBreakdown struct {
	CategoryID   uint                `json:"category_id"`
	Name         string              `json:"name"`
	Weight       float64             `json:"weight"`
	Score        *float64            `json:"score,omitempty"`
	EntryCount   int                 `json:"entry_count"`
	DroppedCount int                 `json:"dropped_count"`
	ExtraCredit  float64             `json:"extra_credit"`
	Children     []CategoryBreakdown `json:"children,omitempty"`
}

type EntryListResponse struct {
	Entries []*models.GradebookEntry `json:"entries"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
}

type DisputeListResponse struct {
	Disputes []*models.GradeDispute `json:"disputes"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	Size     int                    `json:"size"`
}

// ===== SERVICE INTERFACES =====

type CurveService interface {
	// Apply runs the curve transform over one raw score. Pure: no
	// repository access, no mutation of inputs.
	Apply(rawScore, possiblePoints float64, curve *models.GradeCurve) (float64, error)

	Create(ctx context.Context, req *CreateCurveRequest, actorID uint) (*models.GradeCurve, error)
	GetByID(ctx context.Context, id uint) (*models.GradeCurve, error)
	Update(ctx context.Context, id uint, req *UpdateCurveRequest, actorID uint) (*models.GradeCurve, error)
	Deactivate(ctx context.Context, id uint, actorID uint) error
	List(ctx context.Context, activeOnly bool) ([]*models.GradeCurve, error)
	GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.GradeCurve, error)
}

type ScaleService interface {
	// LetterFor resolves the letter for a percentage against a scale;
	// uncovered percentages yield models.NoLetterGrade.
	LetterFor(percentage float64, scale *models.GradeScale) (string, error)

	// GradeFor resolves letter and optional GPA value together.
	GradeFor(percentage float64, scale *models.GradeScale) (string, *float64, error)

	// ValidateEntries enforces the non-overlap and bounds invariants.
	ValidateEntries(entries []models.GradeScaleEntry) error

	// Resolve returns the scale aggregation should use for a course,
	// honoring the configured resolution order.
	Resolve(ctx context.Context, courseID uint) (*models.GradeScale, error)

	Create(ctx context.Context, req *CreateScaleRequest, actorID uint) (*models.GradeScale, error)
	GetByID(ctx context.Context, id uint) (*models.GradeScale, error)
	Update(ctx context.Context, id uint, req *UpdateScaleRequest, actorID uint) (*models.GradeScale, error)
	SetDefault(ctx context.Context, id uint, actorID uint) error
	Deactivate(ctx context.Context, id uint, actorID uint) error
	List(ctx context.Context, filters repositories.ScaleFilters) ([]*models.GradeScale, int64, error)
}

type CategoryService interface {
	Create(ctx context.Context, req *CreateCategoryRequest, actorID uint) (*models.GradeCategory, error)
	GetByID(ctx context.Context, id uint) (*models.GradeCategory, error)
	Update(ctx context.Context, id uint, req *UpdateCategoryRequest, actorID uint) (*models.GradeCategory, error)
	Deactivate(ctx context.Context, id uint, actorID uint) error
	UpdateDisplayOrder(ctx context.Context, id uint, displayOrder int, actorID uint) error
	GetTree(ctx context.Context, courseID uint, activeOnly bool) ([]*models.GradeCategory, error)

	// ValidateWeights is the advisory sibling weight-sum check; it is
	// never enforced on writes.
	ValidateWeights(ctx context.Context, courseID uint, parentID *uint) (*WeightValidationResult, error)
}

type GradebookService interface {
	UpsertEntry(ctx context.Context, req *UpsertEntryRequest, actorID uint) (*models.GradebookEntry, error)
	GetEntry(ctx context.Context, id uint) (*models.GradebookEntry, error)
	ListEntries(ctx context.Context, filters repositories.EntryFilters) (*EntryListResponse, error)
	DeleteEntry(ctx context.Context, id uint, actorID uint) error
	GetStats(ctx context.Context, courseID uint, categoryID *uint) (*repositories.GradebookStats, error)

	GetHistory(ctx context.Context, entryID uint) ([]*models.GradeHistory, error)

	// ApplyDisputeResolution writes an approved dispute's proposed
	// score through the normal upsert path, producing its own history
	// record with reason "dispute resolution".
	ApplyDisputeResolution(ctx context.Context, disputeID uint, actorID uint) (*models.GradebookEntry, error)
}

type AggregationService interface {
	// ComputeOverallGrade is read-only and idempotent; repeated calls
	// without intervening writes return identical results.
	ComputeOverallGrade(ctx context.Context, studentID, courseID uint) (*GradeReport, error)
}

type DisputeService interface {
	Create(ctx context.Context, req *CreateDisputeRequest, actorID uint) (*models.GradeDispute, error)
	GetByID(ctx context.Context, id uint) (*models.GradeDispute, error)
	Update(ctx context.Context, id uint, req *UpdateDisputeRequest, reviewerID uint) (*models.GradeDispute, error)
	List(ctx context.Context, filters repositories.DisputeFilters) (*DisputeListResponse, error)
	GetStats(ctx context.Context, courseID *uint) (*repositories.DisputeStats, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Curve() CurveService
	Scale() ScaleService
	Category() CategoryService
	Gradebook() GradebookService
	Aggregation() AggregationService
	Dispute() DisputeService
}

type serviceManager struct {
	curve       CurveService
	scale       ScaleService
	category    CategoryService
	gradebook   GradebookService
	aggregation AggregationService
	dispute     DisputeService
}

func NewServiceManager(
	repo repositories.Repository,
	summaryCache cache.GradeSummaryCache,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
	cfg config.GradingConfig,
) ServiceManager {
	curve := NewCurveService(repo, logger, validator)
	scale := NewScaleService(repo, summaryCache, logger, validator, cfg)
	category := NewCategoryService(repo, summaryCache, logger, validator)
	dispute := NewDisputeService(repo, publisher, logger, validator)
	gradebook := NewGradebookService(repo, curve, scale, summaryCache, publisher, logger, validator)
	aggregation := NewAggregationService(repo, scale, summaryCache, logger, cfg)

	return &serviceManager{
		curve:       curve,
		scale:       scale,
		category:    category,
		gradebook:   gradebook,
		aggregation: aggregation,
		dispute:     dispute,
	}
}

func (m *serviceManager) Curve() CurveService             { return m.curve }
func (m *serviceManager) Scale() ScaleService             { return m.scale }
func (m *serviceManager) Category() CategoryService       { return m.category }
func (m *serviceManager) Gradebook() GradebookService     { return m.gradebook }
func (m *serviceManager) Aggregation() AggregationService { return m.aggregation }
func (m *serviceManager) Dispute() DisputeService         { return m.dispute }
