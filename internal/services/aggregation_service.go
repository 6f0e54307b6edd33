package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/config"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
)

// summaryCacheTTL bounds staleness when an invalidation is missed.
const summaryCacheTTL = 5 * time.Minute

type aggregationService struct {
	repo         repositories.Repository
	scales       ScaleService
	summaryCache cache.GradeSummaryCache
	logger       *slog.Logger
	cfg          config.GradingConfig
}

func NewAggregationService(
	repo repositories.Repository,
	scales ScaleService,
	summaryCache cache.GradeSummaryCache,
	logger *slog.Logger,
	cfg config.GradingConfig,
) AggregationService {
	return &aggregationService{
		repo:         repo,
		scales:       scales,
		summaryCache: summaryCache,
		logger:       logger,
		cfg:          cfg,
	}
}

// ComputeOverallGrade rolls the student's published, non-excused
// entries up through the course's category tree. The computation is
// pure over the stored data: repeated calls without intervening writes
// return identical reports.
func (s *aggregationService) ComputeOverallGrade(ctx context.Context, studentID, courseID uint) (*GradeReport, error) {
	var cached GradeReport
	if err := s.summaryCache.Get(ctx, courseID, studentID, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Grade summary cache read failed", "course_id", courseID, "student_id", studentID, "error", err)
	}

	entries, err := s.repo.Entry().GetForAggregation(ctx, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for aggregation: %w", err)
	}

	categories, err := s.repo.Category().GetByCourse(ctx, courseID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories for aggregation: %w", err)
	}

	byCategory := make(map[uint][]*models.GradebookEntry)
	for _, e := range entries {
		byCategory[e.CategoryID] = append(byCategory[e.CategoryID], e)
	}

	childIDs := make(map[uint][]uint)
	nodes := make(map[uint]*models.GradeCategory, len(categories))
	var rootIDs []uint
	for _, c := range categories {
		nodes[c.ID] = c
		if c.ParentID == nil {
			rootIDs = append(rootIDs, c.ID)
		} else {
			childIDs[*c.ParentID] = append(childIDs[*c.ParentID], c.ID)
		}
	}

	var breakdown []CategoryBreakdown
	for _, id := range rootIDs {
		breakdown = append(breakdown, s.rollup(id, nodes, childIDs, byCategory))
	}

	overall, scored := weightedMean(breakdown)

	report := &GradeReport{
		StudentID:   studentID,
		CourseID:    courseID,
		Breakdown:   breakdown,
		LetterGrade: models.NoLetterGrade,
		ComputedAt:  time.Now().UTC(),
	}

	if !scored {
		// Empty gradebook: nothing published yet, grade is defined as
		// zero with no letter.
		report.Percentage = 0
		s.store(ctx, courseID, studentID, report)
		return report, nil
	}

	report.Percentage = clampPercent(overall)

	scale, err := s.scales.Resolve(ctx, courseID)
	if err != nil {
		return nil, err
	}
	letter, gpa, err := s.scales.GradeFor(report.Percentage, scale)
	if err != nil {
		return nil, err
	}
	report.LetterGrade = letter
	report.GPAValue = gpa

	s.store(ctx, courseID, studentID, report)
	return report, nil
}

func (s *aggregationService) store(ctx context.Context, courseID, studentID uint, report *GradeReport) {
	if err := s.summaryCache.Set(ctx, courseID, studentID, report, summaryCacheTTL); err != nil {
		s.logger.Warn("Grade summary cache write failed", "course_id", courseID, "student_id", studentID, "error", err)
	}
}

// rollup computes one category node. A category whose children carry
// scores derives its own score from their weighted mean; direct
// entries define the score only when no child is scored. Scoreless
// nodes (no entries anywhere below) carry a nil Score and drop out of
// the parent's normalization.
func (s *aggregationService) rollup(
	id uint,
	nodes map[uint]*models.GradeCategory,
	childIDs map[uint][]uint,
	byCategory map[uint][]*models.GradebookEntry,
) CategoryBreakdown {
	node := nodes[id]
	result := CategoryBreakdown{
		CategoryID: node.ID,
		Name:       node.Name,
		Weight:     node.Weight,
	}

	for _, childID := range childIDs[id] {
		result.Children = append(result.Children, s.rollup(childID, nodes, childIDs, byCategory))
	}

	if mean, ok := weightedMean(result.Children); ok {
		result.Score = &mean
		return result
	}

	if entries := byCategory[id]; len(entries) > 0 {
		score, dropped, extra := s.scoreEntries(node, entries)
		result.EntryCount = len(entries)
		result.DroppedCount = dropped
		result.ExtraCredit = extra
		result.Score = score
	}
	return result
}

// scoreEntries turns a category's entries into a percentage. The
// drop-lowest policy removes the lowest percentages among the regular
// entries first; the remaining regular entries are averaged with equal
// weight regardless of their point values. Extra credit percentages
// join that average's numerator without widening its denominator, with
// the resulting boost capped at the configured maximum. The score is
// left unclamped here so extra credit can carry a category past 100
// before the overall clamp.
func (s *aggregationService) scoreEntries(node *models.GradeCategory, entries []*models.GradebookEntry) (*float64, int, float64) {
	var regular, extraCredit []*models.GradebookEntry
	for _, e := range entries {
		if e.IsExtraCredit {
			extraCredit = append(extraCredit, e)
		} else {
			regular = append(regular, e)
		}
	}

	dropped := 0
	if node.DropLowest && node.NumberOfLowestToDrop > 0 && len(regular) > node.NumberOfLowestToDrop {
		regular = dropLowest(regular, node.NumberOfLowestToDrop)
		dropped = node.NumberOfLowestToDrop
	}

	if len(regular) == 0 {
		// Only extra credit (or nothing) in this category; there is no
		// base to boost, so the category is scoreless.
		return nil, dropped, 0
	}

	var sum float64
	for _, e := range regular {
		sum += e.Percentage
	}
	base := sum / float64(len(regular))

	var extraSum float64
	for _, e := range extraCredit {
		extraSum += e.Percentage
	}
	boost := extraSum / float64(len(regular))
	if boost > s.cfg.MaxExtraCreditPercent {
		boost = s.cfg.MaxExtraCreditPercent
	}

	score := base + boost
	return &score, dropped, boost
}

// dropLowest removes the count lowest-percentage entries. Entries
// arrive ordered by creation time, and the sort is stable, so equal
// percentages drop the oldest entry first.
func dropLowest(entries []*models.GradebookEntry, count int) []*models.GradebookEntry {
	ranked := make([]*models.GradebookEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percentage < ranked[j].Percentage
	})

	drop := make(map[uint]bool, count)
	for _, e := range ranked[:count] {
		drop[e.ID] = true
	}

	kept := make([]*models.GradebookEntry, 0, len(entries)-count)
	for _, e := range entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	return kept
}

// weightedMean folds sibling scores by weight, excluding scoreless
// siblings from the denominator so a category no work has landed in
// does not pull the grade to zero.
func weightedMean(children []CategoryBreakdown) (float64, bool) {
	var weighted, totalWeight float64
	for _, c := range children {
		if c.Score == nil {
			continue
		}
		weighted += *c.Score * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight <= 0 {
		return 0, false
	}
	return weighted / totalWeight, true
}
