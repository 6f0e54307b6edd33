package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
)

type curveService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewCurveService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) CurveService {
	return &curveService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CURVE APPLICATION =====

// Apply transforms (rawScore, possiblePoints) into an adjusted
// percentage in [0,100]. The function is pure and total over
// possiblePoints > 0.
func (s *curveService) Apply(rawScore, possiblePoints float64, curve *models.GradeCurve) (float64, error) {
	if possiblePoints <= 0 {
		return 0, fmt.Errorf("%w: possible points must be greater than 0", ErrInvalidInput)
	}

	percentage := rawScore / possiblePoints * 100

	if curve == nil {
		return clampPercent(percentage), nil
	}

	switch curve.CurveType {
	case models.CurveLinear:
		return clampPercent(percentage + curve.Adjustment), nil

	case models.CurveNormal:
		if curve.StandardDeviation <= 0 {
			return 0, fmt.Errorf("%w: normal curve requires standard deviation > 0", ErrCurveInvalidParameters)
		}
		z := (percentage - curve.Mean) / curve.StandardDeviation
		return clampPercent(normalCDF(z) * 100), nil

	case models.CurveSquareRoot:
		return clampPercent(math.Sqrt(math.Max(percentage, 0))*10 + curve.Adjustment), nil

	case models.CurveCustom:
		// Formula evaluation is supplied by the caller; the default
		// behavior is pass-through plus adjustment.
		return clampPercent(percentage + curve.Adjustment), nil

	default:
		return 0, fmt.Errorf("%w: unknown curve type %q", ErrCurveInvalidParameters, curve.CurveType)
	}
}

// normalCDF approximates the standard normal cumulative distribution
// function with the Abramowitz & Stegun 26.2.17 rational polynomial
// (absolute error below 7.5e-8). Symmetry CDF(-z) = 1 - CDF(z) holds
// by construction.
func normalCDF(z float64) float64 {
	if z < 0 {
		return 1 - normalCDF(-z)
	}

	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)

	t := 1 / (1 + p*z)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	pdf := math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)

	return 1 - pdf*poly
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ===== CRUD =====

func (s *curveService) Create(ctx context.Context, req *CreateCurveRequest, actorID uint) (*models.GradeCurve, error) {
	s.logger.Info("Creating grade curve", "name", req.Name, "curve_type", req.CurveType, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := validateCurveParameters(req.CurveType, req.StandardDeviation); err != nil {
		return nil, err
	}

	curve := &models.GradeCurve{
		Name:               req.Name,
		CurveType:          req.CurveType,
		Adjustment:         req.Adjustment,
		Mean:               req.Mean,
		StandardDeviation:  req.StandardDeviation,
		CustomFormula:      req.CustomFormula,
		TargetAssessmentID: req.TargetAssessmentID,
		IsActive:           true,
	}

	if err := s.repo.Curve().Create(ctx, curve); err != nil {
		return nil, fmt.Errorf("failed to create grade curve: %w", err)
	}

	s.logger.Info("Grade curve created", "curve_id", curve.ID)
	return curve, nil
}

func (s *curveService) GetByID(ctx context.Context, id uint) (*models.GradeCurve, error) {
	curve, err := s.repo.Curve().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCurveNotFound
		}
		return nil, fmt.Errorf("failed to get grade curve: %w", err)
	}
	return curve, nil
}

func (s *curveService) Update(ctx context.Context, id uint, req *UpdateCurveRequest, actorID uint) (*models.GradeCurve, error) {
	s.logger.Info("Updating grade curve", "curve_id", id, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	curve, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		curve.Name = *req.Name
	}
	if req.Adjustment != nil {
		curve.Adjustment = *req.Adjustment
	}
	if req.Mean != nil {
		curve.Mean = *req.Mean
	}
	if req.StandardDeviation != nil {
		curve.StandardDeviation = *req.StandardDeviation
	}
	if req.CustomFormula != nil {
		curve.CustomFormula = req.CustomFormula
	}
	if req.IsActive != nil {
		curve.IsActive = *req.IsActive
	}

	if err := validateCurveParameters(curve.CurveType, curve.StandardDeviation); err != nil {
		return nil, err
	}

	if err := s.repo.Curve().Update(ctx, curve); err != nil {
		return nil, fmt.Errorf("failed to update grade curve: %w", err)
	}

	return curve, nil
}

func (s *curveService) Deactivate(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deactivating grade curve", "curve_id", id, "actor_id", actorID)

	if err := s.repo.Curve().Deactivate(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCurveNotFound
		}
		return fmt.Errorf("failed to deactivate grade curve: %w", err)
	}
	return nil
}

func (s *curveService) List(ctx context.Context, activeOnly bool) ([]*models.GradeCurve, error) {
	curves, err := s.repo.Curve().List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list grade curves: %w", err)
	}
	return curves, nil
}

// GetByAssessment lists the curves targeting one assessment so
// graders can see which adjustments apply before entering scores.
func (s *curveService) GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.GradeCurve, error) {
	curves, err := s.repo.Curve().GetByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list curves for assessment: %w", err)
	}
	return curves, nil
}

// validateCurveParameters rejects parameter combinations the transform
// cannot evaluate. Surfaced at create/update time, not deferred to
// application time.
func validateCurveParameters(curveType models.CurveType, stdDev float64) error {
	if curveType == models.CurveNormal && stdDev <= 0 {
		return fmt.Errorf("%w: normal curve requires standard deviation > 0", ErrCurveInvalidParameters)
	}
	return nil
}
