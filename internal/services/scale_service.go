package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/config"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
	"gorm.io/datatypes"
)

type scaleService struct {
	repo         repositories.Repository
	summaryCache cache.GradeSummaryCache
	logger       *slog.Logger
	validator    *utils.Validator
	cfg          config.GradingConfig
}

func NewScaleService(repo repositories.Repository, summaryCache cache.GradeSummaryCache, logger *slog.Logger, validator *utils.Validator, cfg config.GradingConfig) ScaleService {
	return &scaleService{
		repo:         repo,
		summaryCache: summaryCache,
		logger:       logger,
		validator:    validator,
		cfg:          cfg,
	}
}

// invalidateScaleCourse drops cached summaries for a course-scoped
// scale's course. Default-scale changes touch every course; those rely
// on the summary TTL instead of a targeted invalidation.
func (s *scaleService) invalidateScaleCourse(ctx context.Context, scale *models.GradeScale) {
	if scale.CourseID == nil {
		return
	}
	if err := s.summaryCache.InvalidateCourse(ctx, *scale.CourseID); err != nil {
		s.logger.Warn("Failed to invalidate course grade summaries", "course_id", *scale.CourseID, "error", err)
	}
}

// ===== LOOKUP =====

// LetterFor scans the scale's entries for the range containing the
// percentage. Entries do not overlap, so the first match is the only
// match; an uncovered percentage resolves to models.NoLetterGrade.
func (s *scaleService) LetterFor(percentage float64, scale *models.GradeScale) (string, error) {
	letter, _, err := s.GradeFor(percentage, scale)
	return letter, err
}

func (s *scaleService) GradeFor(percentage float64, scale *models.GradeScale) (string, *float64, error) {
	entries, err := decodeScaleEntries(scale)
	if err != nil {
		return "", nil, err
	}

	for _, entry := range entries {
		if percentage >= entry.LowerBound && percentage <= entry.UpperBound {
			return entry.Letter, entry.GPAValue, nil
		}
	}
	return models.NoLetterGrade, nil, nil
}

// ===== VALIDATION =====

// ValidateEntries enforces the scale invariants: per-entry bounds
// within [0,100] with lower <= upper, and no two entries overlapping.
func (s *scaleService) ValidateEntries(entries []models.GradeScaleEntry) error {
	for _, e := range entries {
		if e.LowerBound > e.UpperBound || e.LowerBound < 0 || e.UpperBound > 100 {
			return &InvalidRangeError{
				Letter:     e.Letter,
				LowerBound: e.LowerBound,
				UpperBound: e.UpperBound,
			}
		}
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.LowerBound <= b.UpperBound && b.LowerBound <= a.UpperBound {
				return &OverlappingRangeError{A: a.Letter, B: b.Letter}
			}
		}
	}
	return nil
}

// ===== RESOLUTION =====

// Resolve picks the scale aggregation uses for a course. With
// course_first resolution a per-course scale wins and the system
// default is the fallback; default_only always uses the system
// default.
func (s *scaleService) Resolve(ctx context.Context, courseID uint) (*models.GradeScale, error) {
	if s.cfg.ScaleResolution == config.ScaleResolutionCourseFirst {
		scale, err := s.repo.Scale().GetByCourse(ctx, courseID)
		if err == nil {
			return scale, nil
		}
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to resolve course scale: %w", err)
		}
	}

	scale, err := s.repo.Scale().GetDefault(ctx)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoActiveScale
		}
		return nil, fmt.Errorf("failed to resolve default scale: %w", err)
	}
	return scale, nil
}

// ===== CRUD =====

func (s *scaleService) Create(ctx context.Context, req *CreateScaleRequest, actorID uint) (*models.GradeScale, error) {
	s.logger.Info("Creating grade scale", "name", req.Name, "actor_id", actorID, "is_default", req.IsDefault)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.ValidateEntries(req.Entries); err != nil {
		return nil, err
	}

	encoded, err := encodeScaleEntries(req.Entries)
	if err != nil {
		return nil, err
	}

	scale := &models.GradeScale{
		Name:      req.Name,
		CourseID:  req.CourseID,
		Entries:   encoded,
		IsDefault: req.IsDefault,
		IsActive:  true,
	}

	if err := s.repo.Scale().Create(ctx, scale); err != nil {
		return nil, fmt.Errorf("failed to create grade scale: %w", err)
	}

	s.logger.Info("Grade scale created", "scale_id", scale.ID)
	return scale, nil
}

func (s *scaleService) GetByID(ctx context.Context, id uint) (*models.GradeScale, error) {
	scale, err := s.repo.Scale().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScaleNotFound
		}
		return nil, fmt.Errorf("failed to get grade scale: %w", err)
	}
	return scale, nil
}

func (s *scaleService) Update(ctx context.Context, id uint, req *UpdateScaleRequest, actorID uint) (*models.GradeScale, error) {
	s.logger.Info("Updating grade scale", "scale_id", id, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	scale, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		scale.Name = *req.Name
	}
	if req.Entries != nil {
		if err := s.ValidateEntries(req.Entries); err != nil {
			return nil, err
		}
		encoded, err := encodeScaleEntries(req.Entries)
		if err != nil {
			return nil, err
		}
		scale.Entries = encoded
	}

	if err := s.repo.Scale().Update(ctx, scale); err != nil {
		return nil, fmt.Errorf("failed to update grade scale: %w", err)
	}

	s.invalidateScaleCourse(ctx, scale)
	return scale, nil
}

func (s *scaleService) SetDefault(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Setting default grade scale", "scale_id", id, "actor_id", actorID)

	if err := s.repo.Scale().SetDefault(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrScaleNotFound
		}
		return fmt.Errorf("failed to set default grade scale: %w", err)
	}
	return nil
}

func (s *scaleService) Deactivate(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deactivating grade scale", "scale_id", id, "actor_id", actorID)

	scale, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Scale().Deactivate(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrScaleNotFound
		}
		return fmt.Errorf("failed to deactivate grade scale: %w", err)
	}

	s.invalidateScaleCourse(ctx, scale)
	return nil
}

func (s *scaleService) List(ctx context.Context, filters repositories.ScaleFilters) ([]*models.GradeScale, int64, error) {
	return s.repo.Scale().List(ctx, filters)
}

// ===== HELPERS =====

func decodeScaleEntries(scale *models.GradeScale) ([]models.GradeScaleEntry, error) {
	if len(scale.Entries) == 0 {
		return nil, nil
	}
	var entries []models.GradeScaleEntry
	if err := json.Unmarshal(scale.Entries, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode scale entries: %w", err)
	}
	return entries, nil
}

func encodeScaleEntries(entries []models.GradeScaleEntry) (datatypes.JSON, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scale entries: %w", err)
	}
	return datatypes.JSON(data), nil
}
