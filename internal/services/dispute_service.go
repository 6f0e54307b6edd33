package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusworks/gradebook-service/internal/events"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
)

type disputeService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewDisputeService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) DisputeService {
	return &disputeService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// Create opens a dispute on a gradebook entry. Only the entry's own
// student may open one, and an entry carries at most one active
// dispute at a time.
func (s *disputeService) Create(ctx context.Context, req *CreateDisputeRequest, actorID uint) (*models.GradeDispute, error) {
	s.logger.Info("Creating grade dispute", "entry_id", req.GradebookEntryID, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	entry, err := s.repo.Entry().GetByID(ctx, req.GradebookEntryID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to load gradebook entry: %w", err)
	}

	if entry.StudentID != actorID {
		return nil, ErrDisputeNotOwnEntry
	}

	if _, err := s.repo.Dispute().GetActiveByEntry(ctx, entry.ID); err == nil {
		return nil, ErrDisputeAlreadyActive
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active disputes: %w", err)
	}

	dispute := &models.GradeDispute{
		GradebookEntryID: entry.ID,
		StudentID:        actorID,
		Reason:           req.Reason,
		Evidence:         req.Evidence,
		Status:           models.DisputePending,
	}

	if err := s.repo.Dispute().Create(ctx, dispute); err != nil {
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}

	s.publish(ctx, events.NewGradeEvent(events.EventDisputeCreated, &events.DisputeCreatedEvent{
		DisputeID: dispute.ID,
		EntryID:   entry.ID,
		StudentID: actorID,
		Reason:    dispute.Reason,
	}))

	s.logger.Info("Grade dispute created", "dispute_id", dispute.ID)
	return dispute, nil
}

func (s *disputeService) GetByID(ctx context.Context, id uint) (*models.GradeDispute, error) {
	dispute, err := s.repo.Dispute().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return dispute, nil
}

// Update advances a dispute through its workflow. Status changes are
// validated against the state machine; the reviewer is recorded on
// the first reviewing action and the resolution fields only ever
// accumulate, they are never blanked by omission.
func (s *disputeService) Update(ctx context.Context, id uint, req *UpdateDisputeRequest, reviewerID uint) (*models.GradeDispute, error) {
	s.logger.Info("Updating grade dispute", "dispute_id", id, "reviewer_id", reviewerID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	dispute, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != dispute.Status {
		if !dispute.Status.CanTransitionTo(*req.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrDisputeInvalidTransition, dispute.Status, *req.Status)
		}
		dispute.Status = *req.Status
		if dispute.ReviewedBy == nil {
			dispute.ReviewedBy = &reviewerID
		}
	}

	if req.ReviewedBy != nil {
		dispute.ReviewedBy = req.ReviewedBy
	}
	if req.Resolution != nil {
		dispute.Resolution = req.Resolution
	}
	if req.ProposedScore != nil {
		dispute.ProposedScore = req.ProposedScore
	}
	if req.ProposedLetterGrade != nil {
		dispute.ProposedLetterGrade = req.ProposedLetterGrade
	}

	if err := s.repo.Dispute().Update(ctx, dispute); err != nil {
		return nil, fmt.Errorf("failed to update dispute: %w", err)
	}

	if req.Status != nil && dispute.Status.IsTerminal() {
		s.publish(ctx, events.NewGradeEvent(events.EventDisputeResolved, &events.DisputeResolvedEvent{
			DisputeID:     dispute.ID,
			EntryID:       dispute.GradebookEntryID,
			StudentID:     dispute.StudentID,
			Status:        string(dispute.Status),
			ReviewedBy:    dispute.ReviewedBy,
			Resolution:    dispute.Resolution,
			ProposedScore: dispute.ProposedScore,
		}))
	}

	return dispute, nil
}

func (s *disputeService) List(ctx context.Context, filters repositories.DisputeFilters) (*DisputeListResponse, error) {
	disputes, total, err := s.repo.Dispute().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}

	size := filters.Limit
	if size <= 0 {
		size = len(disputes)
	}
	page := 1
	if size > 0 {
		page = filters.Offset/size + 1
	}
	return &DisputeListResponse{
		Disputes: disputes,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

func (s *disputeService) GetStats(ctx context.Context, courseID *uint) (*repositories.DisputeStats, error) {
	return s.repo.Dispute().GetStats(ctx, courseID)
}

func (s *disputeService) publish(ctx context.Context, event *events.GradeEvent) {
	if err := s.publisher.PublishGradeEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish dispute event", "event_type", event.Type, "error", err)
	}
}
