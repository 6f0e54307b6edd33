package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/events"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
	"gorm.io/datatypes"
)

type gradebookService struct {
	repo         repositories.Repository
	curves       CurveService
	scales       ScaleService
	summaryCache cache.GradeSummaryCache
	publisher    events.EventPublisher
	logger       *slog.Logger
	validator    *utils.Validator
}

func NewGradebookService(
	repo repositories.Repository,
	curves CurveService,
	scales ScaleService,
	summaryCache cache.GradeSummaryCache,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) GradebookService {
	return &gradebookService{
		repo:         repo,
		curves:       curves,
		scales:       scales,
		summaryCache: summaryCache,
		publisher:    publisher,
		logger:       logger,
		validator:    validator,
	}
}

// UpsertEntry creates or mutates one gradebook entry. Derived fields
// (adjusted score, percentage, letter grade) are recomputed from the
// raw inputs on every write, and each write appends exactly one
// history record inside the same transaction.
func (s *gradebookService) UpsertEntry(ctx context.Context, req *UpsertEntryRequest, actorID uint) (*models.GradebookEntry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.PossiblePoints <= 0 {
		return nil, ErrEntryInvalidPoints
	}

	var (
		entry        *models.GradebookEntry
		created      bool
		wasPublished bool
	)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		category, err := tx.Category().GetByID(ctx, req.CategoryID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("failed to load category: %w", err)
		}
		if category.CourseID != req.CourseID {
			return NewBusinessRuleError("category_course_match",
				"category belongs to another course",
				map[string]interface{}{"category_id": category.ID, "course_id": req.CourseID})
		}

		var prev *models.GradebookEntry
		if req.EntryID == nil {
			created = true
			entry = &models.GradebookEntry{
				StudentID:    req.StudentID,
				CourseID:     req.CourseID,
				CategoryID:   req.CategoryID,
				AssessmentID: req.AssessmentID,
			}
		} else {
			existing, err := tx.Entry().GetByID(ctx, *req.EntryID)
			if err != nil {
				if repositories.IsNotFoundError(err) {
					return ErrEntryNotFound
				}
				return fmt.Errorf("failed to load gradebook entry: %w", err)
			}
			snapshot := *existing
			prev = &snapshot
			wasPublished = existing.IsPublished
			entry = existing
			entry.CategoryID = req.CategoryID
			entry.AssessmentID = req.AssessmentID
		}

		entry.RawScore = req.RawScore
		entry.PossiblePoints = req.PossiblePoints
		entry.AppliedCurveID = req.AppliedCurveID
		if req.IsExcused != nil {
			entry.IsExcused = *req.IsExcused
		}
		if req.IsExtraCredit != nil {
			entry.IsExtraCredit = *req.IsExtraCredit
		}
		if req.Comments != nil {
			entry.Comments = req.Comments
		}
		if req.IsPublished != nil {
			entry.IsPublished = *req.IsPublished
		}

		if err := s.derive(ctx, tx, entry); err != nil {
			return err
		}

		if created {
			if err := tx.Entry().Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to create gradebook entry: %w", err)
			}
		} else {
			if err := tx.Entry().Update(ctx, entry); err != nil {
				return fmt.Errorf("failed to update gradebook entry: %w", err)
			}
		}

		record := &models.GradeHistory{
			GradebookEntryID: entry.ID,
			NewRawScore:      entry.RawScore,
			NewAdjustedScore: entry.AdjustedScore,
			NewLetterGrade:   entry.LetterGrade,
			Reason:           req.Reason,
			ModifiedBy:       actorID,
		}
		if prev != nil {
			record.PreviousRawScore = &prev.RawScore
			record.PreviousAdjustedScore = &prev.AdjustedScore
			record.PreviousLetterGrade = prev.LetterGrade
			record.Changes = historyChanges(prev, entry)
		}
		if err := tx.History().Append(ctx, record); err != nil {
			return fmt.Errorf("failed to append grade history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, entry, req.Reason, actorID, created, wasPublished)
	return entry, nil
}

// historyChanges captures curve and flag transitions that the fixed
// before/after score columns cannot express.
func historyChanges(prev, entry *models.GradebookEntry) datatypes.JSON {
	changes := make(map[string]interface{})
	if !uintPtrEqual(prev.AppliedCurveID, entry.AppliedCurveID) {
		changes["applied_curve_id"] = map[string]interface{}{"from": prev.AppliedCurveID, "to": entry.AppliedCurveID}
	}
	if prev.IsPublished != entry.IsPublished {
		changes["is_published"] = map[string]interface{}{"from": prev.IsPublished, "to": entry.IsPublished}
	}
	if prev.IsExcused != entry.IsExcused {
		changes["is_excused"] = map[string]interface{}{"from": prev.IsExcused, "to": entry.IsExcused}
	}
	if prev.IsExtraCredit != entry.IsExtraCredit {
		changes["is_extra_credit"] = map[string]interface{}{"from": prev.IsExtraCredit, "to": entry.IsExtraCredit}
	}
	if len(changes) == 0 {
		return nil
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func uintPtrEqual(a, b *uint) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// derive recomputes the adjusted score, percentage and letter grade
// from the entry's raw inputs. The letter stays nil when no scale is
// resolvable for the course.
func (s *gradebookService) derive(ctx context.Context, tx repositories.Repository, entry *models.GradebookEntry) error {
	var curve *models.GradeCurve
	if entry.AppliedCurveID != nil {
		found, err := tx.Curve().GetByID(ctx, *entry.AppliedCurveID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCurveNotFound
			}
			return fmt.Errorf("failed to load curve: %w", err)
		}
		if !found.IsActive {
			return ErrCurveInactive
		}
		curve = found
	}

	percentage := entry.RawScore / entry.PossiblePoints * 100
	if curve != nil {
		adjusted, err := s.curves.Apply(entry.RawScore, entry.PossiblePoints, curve)
		if err != nil {
			return err
		}
		percentage = adjusted
	}

	entry.Percentage = percentage
	entry.AdjustedScore = percentage / 100 * entry.PossiblePoints

	scale, err := s.scales.Resolve(ctx, entry.CourseID)
	if err != nil {
		if errors.Is(err, ErrNoActiveScale) {
			entry.LetterGrade = nil
			return nil
		}
		return err
	}
	letter, err := s.scales.LetterFor(percentage, scale)
	if err != nil {
		return err
	}
	entry.LetterGrade = &letter
	return nil
}

// afterWrite handles cache invalidation and event publication. Both
// are best-effort; the transactional write already succeeded.
func (s *gradebookService) afterWrite(ctx context.Context, entry *models.GradebookEntry, reason string, actorID uint, created, wasPublished bool) {
	if err := s.summaryCache.Invalidate(ctx, entry.CourseID, entry.StudentID); err != nil {
		s.logger.Warn("Failed to invalidate grade summary cache",
			"course_id", entry.CourseID, "student_id", entry.StudentID, "error", err)
	}

	eventType := events.EventEntryUpdated
	if created {
		eventType = events.EventEntryCreated
	}
	s.publish(ctx, events.NewGradeEvent(eventType, &events.EntryChangedEvent{
		EntryID:     entry.ID,
		StudentID:   entry.StudentID,
		CourseID:    entry.CourseID,
		CategoryID:  entry.CategoryID,
		Percentage:  entry.Percentage,
		LetterGrade: entry.LetterGrade,
		Reason:      reason,
		ModifiedBy:  actorID,
	}))

	if entry.IsPublished && !wasPublished {
		s.publish(ctx, events.NewGradeEvent(events.EventGradePublished, &events.GradePublishedEvent{
			EntryID:     entry.ID,
			StudentID:   entry.StudentID,
			CourseID:    entry.CourseID,
			Percentage:  entry.Percentage,
			LetterGrade: entry.LetterGrade,
		}))
	}
}

func (s *gradebookService) publish(ctx context.Context, event *events.GradeEvent) {
	if err := s.publisher.PublishGradeEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish grade event", "event_type", event.Type, "error", err)
	}
}

func (s *gradebookService) GetEntry(ctx context.Context, id uint) (*models.GradebookEntry, error) {
	entry, err := s.repo.Entry().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get gradebook entry: %w", err)
	}
	return entry, nil
}

func (s *gradebookService) ListEntries(ctx context.Context, filters repositories.EntryFilters) (*EntryListResponse, error) {
	entries, total, err := s.repo.Entry().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list gradebook entries: %w", err)
	}

	size := filters.Limit
	if size <= 0 {
		size = len(entries)
	}
	page := 1
	if size > 0 {
		page = filters.Offset/size + 1
	}
	return &EntryListResponse{
		Entries: entries,
		Total:   total,
		Page:    page,
		Size:    size,
	}, nil
}

func (s *gradebookService) DeleteEntry(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deleting gradebook entry", "entry_id", id, "actor_id", actorID)

	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Entry().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete gradebook entry: %w", err)
	}

	if err := s.summaryCache.Invalidate(ctx, entry.CourseID, entry.StudentID); err != nil {
		s.logger.Warn("Failed to invalidate grade summary cache",
			"course_id", entry.CourseID, "student_id", entry.StudentID, "error", err)
	}
	return nil
}

// GetStats summarizes a course's entries, optionally narrowed to one
// category.
func (s *gradebookService) GetStats(ctx context.Context, courseID uint, categoryID *uint) (*repositories.GradebookStats, error) {
	stats, err := s.repo.Entry().GetStats(ctx, courseID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute gradebook stats: %w", err)
	}
	return stats, nil
}

func (s *gradebookService) GetHistory(ctx context.Context, entryID uint) ([]*models.GradeHistory, error) {
	if _, err := s.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.repo.History().ListByEntry(ctx, entryID)
}

// ApplyDisputeResolution pushes an approved dispute's proposed score
// through the normal upsert path so the change is curved, lettered and
// audited like any other write.
func (s *gradebookService) ApplyDisputeResolution(ctx context.Context, disputeID uint, actorID uint) (*models.GradebookEntry, error) {
	dispute, err := s.repo.Dispute().GetByID(ctx, disputeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}

	if dispute.Status != models.DisputeApproved {
		return nil, ErrDisputeNotApproved
	}
	if dispute.ProposedScore == nil {
		return nil, ErrDisputeNoProposedScore
	}

	entry, err := s.GetEntry(ctx, dispute.GradebookEntryID)
	if err != nil {
		return nil, err
	}

	req := &UpsertEntryRequest{
		EntryID:        &entry.ID,
		StudentID:      entry.StudentID,
		CourseID:       entry.CourseID,
		CategoryID:     entry.CategoryID,
		AssessmentID:   entry.AssessmentID,
		RawScore:       *dispute.ProposedScore,
		PossiblePoints: entry.PossiblePoints,
		AppliedCurveID: entry.AppliedCurveID,
		Reason:         models.HistoryReasonDisputeResolution,
	}
	return s.UpsertEntry(ctx, req, actorID)
}
