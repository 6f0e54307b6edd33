package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
)

// weightSumTolerance absorbs float drift when checking that sibling
// weights sum to 100.
const weightSumTolerance = 0.01

type categoryService struct {
	repo         repositories.Repository
	summaryCache cache.GradeSummaryCache
	logger       *slog.Logger
	validator    *utils.Validator
}

func NewCategoryService(repo repositories.Repository, summaryCache cache.GradeSummaryCache, logger *slog.Logger, validator *utils.Validator) CategoryService {
	return &categoryService{
		repo:         repo,
		summaryCache: summaryCache,
		logger:       logger,
		validator:    validator,
	}
}

// invalidateCourse drops the course's cached grade summaries after a
// write that changes how entries aggregate. Best-effort; the TTL
// bounds staleness when it fails.
func (s *categoryService) invalidateCourse(ctx context.Context, courseID uint) {
	if err := s.summaryCache.InvalidateCourse(ctx, courseID); err != nil {
		s.logger.Warn("Failed to invalidate course grade summaries", "course_id", courseID, "error", err)
	}
}

func (s *categoryService) Create(ctx context.Context, req *CreateCategoryRequest, actorID uint) (*models.GradeCategory, error) {
	s.logger.Info("Creating grade category", "course_id", req.CourseID, "name", req.Name, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	category := &models.GradeCategory{
		CourseID:             req.CourseID,
		Name:                 req.Name,
		Weight:               req.Weight,
		ParentID:             req.ParentID,
		DisplayOrder:         req.DisplayOrder,
		DropLowest:           req.DropLowest,
		NumberOfLowestToDrop: req.NumberOfLowestToDrop,
		IsActive:             true,
	}

	if err := s.repo.Category().Create(ctx, category); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to create grade category: %w", err)
	}

	s.logger.Info("Grade category created", "category_id", category.ID)
	return category, nil
}

func (s *categoryService) GetByID(ctx context.Context, id uint) (*models.GradeCategory, error) {
	category, err := s.repo.Category().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get grade category: %w", err)
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, req *UpdateCategoryRequest, actorID uint) (*models.GradeCategory, error) {
	s.logger.Info("Updating grade category", "category_id", id, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Weight != nil {
		category.Weight = *req.Weight
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}
	if req.DropLowest != nil {
		category.DropLowest = *req.DropLowest
	}
	if req.NumberOfLowestToDrop != nil {
		category.NumberOfLowestToDrop = *req.NumberOfLowestToDrop
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := s.repo.Category().Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update grade category: %w", err)
	}

	s.invalidateCourse(ctx, category.CourseID)
	return category, nil
}

// Deactivate soft-disables a category. Categories holding gradebook
// entries cannot be deactivated; their entries would silently vanish
// from aggregation while staying on the student's record.
func (s *categoryService) Deactivate(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deactivating grade category", "category_id", id, "actor_id", actorID)

	category, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hasEntries, err := s.repo.Category().HasEntries(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check category entries: %w", err)
	}
	if hasEntries {
		return ErrCategoryHasEntries
	}

	if err := s.repo.Category().Deactivate(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to deactivate grade category: %w", err)
	}

	s.invalidateCourse(ctx, category.CourseID)
	return nil
}

// UpdateDisplayOrder moves a category within its sibling ordering
// without touching the grading fields.
func (s *categoryService) UpdateDisplayOrder(ctx context.Context, id uint, displayOrder int, actorID uint) error {
	s.logger.Info("Reordering grade category", "category_id", id, "display_order", displayOrder, "actor_id", actorID)

	if err := s.repo.Category().UpdateDisplayOrder(ctx, id, displayOrder); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update category display order: %w", err)
	}
	return nil
}

// GetTree returns the root categories of a course with Children
// populated recursively, ordered by display_order at every level.
func (s *categoryService) GetTree(ctx context.Context, courseID uint, activeOnly bool) ([]*models.GradeCategory, error) {
	categories, err := s.repo.Category().GetByCourse(ctx, courseID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list grade categories: %w", err)
	}

	byParent := make(map[uint][]models.GradeCategory)
	var roots []*models.GradeCategory
	for _, c := range categories {
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], *c)
		}
	}

	var attach func(node *models.GradeCategory)
	attach = func(node *models.GradeCategory) {
		node.Children = byParent[node.ID]
		for i := range node.Children {
			attach(&node.Children[i])
		}
	}
	for _, root := range roots {
		attach(root)
	}
	return roots, nil
}

// ValidateWeights sums the active sibling weights under one parent and
// reports whether they total 100 within tolerance. Advisory only;
// writes never enforce the sum because instructors build trees
// incrementally.
func (s *categoryService) ValidateWeights(ctx context.Context, courseID uint, parentID *uint) (*WeightValidationResult, error) {
	siblings, err := s.repo.Category().GetChildren(ctx, courseID, parentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling categories: %w", err)
	}

	var sum float64
	for _, c := range siblings {
		sum += c.Weight
	}

	return &WeightValidationResult{
		CourseID:  courseID,
		ParentID:  parentID,
		WeightSum: sum,
		Valid:     math.Abs(sum-100) <= weightSumTolerance,
	}, nil
}
