package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/utils"
	"gorm.io/gorm"
)

// memoryRepository is an in-memory repositories.Repository for service
// tests. Missing records surface as gorm.ErrRecordNotFound so the
// services' not-found mapping behaves exactly as against postgres.
type memoryRepository struct {
	mu         sync.Mutex
	nextID     uint
	categories map[uint]*models.GradeCategory
	curves     map[uint]*models.GradeCurve
	scales     map[uint]*models.GradeScale
	entries    map[uint]*models.GradebookEntry
	history    []*models.GradeHistory
	disputes   map[uint]*models.GradeDispute
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		nextID:     1,
		categories: make(map[uint]*models.GradeCategory),
		curves:     make(map[uint]*models.GradeCurve),
		scales:     make(map[uint]*models.GradeScale),
		entries:    make(map[uint]*models.GradebookEntry),
		disputes:   make(map[uint]*models.GradeDispute),
	}
}

func (r *memoryRepository) allocID() uint {
	id := r.nextID
	r.nextID++
	return id
}

func (r *memoryRepository) Category() repositories.CategoryRepository { return (*memCategories)(r) }
func (r *memoryRepository) Curve() repositories.CurveRepository       { return (*memCurves)(r) }
func (r *memoryRepository) Scale() repositories.ScaleRepository       { return (*memScales)(r) }
func (r *memoryRepository) Entry() repositories.EntryRepository       { return (*memEntries)(r) }
func (r *memoryRepository) History() repositories.HistoryRepository   { return (*memHistory)(r) }
func (r *memoryRepository) Dispute() repositories.DisputeRepository   { return (*memDisputes)(r) }

func (r *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

// ----- categories -----

type memCategories memoryRepository

func (m *memCategories) Create(ctx context.Context, category *models.GradeCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if category.ParentID != nil {
		parent, ok := m.categories[*category.ParentID]
		if !ok || parent.CourseID != category.CourseID {
			return gorm.ErrRecordNotFound
		}
	}
	category.ID = (*memoryRepository)(m).allocID()
	category.CreatedAt = time.Now()
	clone := *category
	m.categories[category.ID] = &clone
	return nil
}

func (m *memCategories) GetByID(ctx context.Context, id uint) (*models.GradeCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memCategories) Update(ctx context.Context, category *models.GradeCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[category.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *category
	m.categories[category.ID] = &clone
	return nil
}

func (m *memCategories) Deactivate(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	return nil
}

func (m *memCategories) GetByCourse(ctx context.Context, courseID uint, activeOnly bool) ([]*models.GradeCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeCategory
	for _, c := range m.categories {
		if c.CourseID != courseID {
			continue
		}
		if activeOnly && !c.IsActive {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	sortCategories(out)
	return out, nil
}

func (m *memCategories) GetChildren(ctx context.Context, courseID uint, parentID *uint, activeOnly bool) ([]*models.GradeCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeCategory
	for _, c := range m.categories {
		if c.CourseID != courseID {
			continue
		}
		if activeOnly && !c.IsActive {
			continue
		}
		if (parentID == nil) != (c.ParentID == nil) {
			continue
		}
		if parentID != nil && *c.ParentID != *parentID {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	sortCategories(out)
	return out, nil
}

func (m *memCategories) UpdateDisplayOrder(ctx context.Context, id uint, displayOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.DisplayOrder = displayOrder
	return nil
}

func (m *memCategories) HasEntries(ctx context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.CategoryID == id {
			return true, nil
		}
	}
	return false, nil
}

func sortCategories(categories []*models.GradeCategory) {
	for i := 1; i < len(categories); i++ {
		for j := i; j > 0; j-- {
			a, b := categories[j-1], categories[j]
			if a.DisplayOrder > b.DisplayOrder || (a.DisplayOrder == b.DisplayOrder && a.ID > b.ID) {
				categories[j-1], categories[j] = b, a
			}
		}
	}
}

// ----- curves -----

type memCurves memoryRepository

func (m *memCurves) Create(ctx context.Context, curve *models.GradeCurve) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	curve.ID = (*memoryRepository)(m).allocID()
	clone := *curve
	m.curves[curve.ID] = &clone
	return nil
}

func (m *memCurves) GetByID(ctx context.Context, id uint) (*models.GradeCurve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.curves[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memCurves) Update(ctx context.Context, curve *models.GradeCurve) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.curves[curve.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *curve
	m.curves[curve.ID] = &clone
	return nil
}

func (m *memCurves) Deactivate(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.curves[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	return nil
}

func (m *memCurves) List(ctx context.Context, activeOnly bool) ([]*models.GradeCurve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeCurve
	for _, c := range m.curves {
		if activeOnly && !c.IsActive {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memCurves) GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.GradeCurve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeCurve
	for _, c := range m.curves {
		if c.TargetAssessmentID != nil && *c.TargetAssessmentID == assessmentID {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

// ----- scales -----

type memScales memoryRepository

func (m *memScales) Create(ctx context.Context, scale *models.GradeScale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scale.ID = (*memoryRepository)(m).allocID()
	scale.IsActive = true
	if scale.IsDefault {
		for _, s := range m.scales {
			s.IsDefault = false
		}
	}
	clone := *scale
	m.scales[scale.ID] = &clone
	return nil
}

func (m *memScales) GetByID(ctx context.Context, id uint) (*models.GradeScale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memScales) Update(ctx context.Context, scale *models.GradeScale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scales[scale.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *scale
	m.scales[scale.ID] = &clone
	return nil
}

func (m *memScales) Deactivate(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scales[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.IsActive = false
	return nil
}

func (m *memScales) List(ctx context.Context, filters repositories.ScaleFilters) ([]*models.GradeScale, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeScale
	for _, s := range m.scales {
		if filters.ActiveOnly && !s.IsActive {
			continue
		}
		if filters.CourseID != nil && (s.CourseID == nil || *s.CourseID != *filters.CourseID) {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (m *memScales) GetDefault(ctx context.Context) (*models.GradeScale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scales {
		if s.IsDefault && s.IsActive {
			clone := *s
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memScales) GetByCourse(ctx context.Context, courseID uint) (*models.GradeScale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scales {
		if s.IsActive && s.CourseID != nil && *s.CourseID == courseID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memScales) SetDefault(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.scales[id]
	if !ok || !target.IsActive {
		return gorm.ErrRecordNotFound
	}
	for _, s := range m.scales {
		s.IsDefault = false
	}
	target.IsDefault = true
	return nil
}

// ----- entries -----

type memEntries memoryRepository

func (m *memEntries) Create(ctx context.Context, entry *models.GradebookEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = (*memoryRepository)(m).allocID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *memEntries) GetByID(ctx context.Context, id uint) (*models.GradebookEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *memEntries) Update(ctx context.Context, entry *models.GradebookEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *memEntries) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *memEntries) List(ctx context.Context, filters repositories.EntryFilters) ([]*models.GradebookEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradebookEntry
	for _, e := range m.entries {
		if filters.StudentID != nil && e.StudentID != *filters.StudentID {
			continue
		}
		if filters.CourseID != nil && e.CourseID != *filters.CourseID {
			continue
		}
		if filters.CategoryID != nil && e.CategoryID != *filters.CategoryID {
			continue
		}
		if filters.IsPublished != nil && e.IsPublished != *filters.IsPublished {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	sortEntriesByCreation(out)
	return out, int64(len(out)), nil
}

func (m *memEntries) GetForAggregation(ctx context.Context, studentID, courseID uint) ([]*models.GradebookEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradebookEntry
	for _, e := range m.entries {
		if e.StudentID != studentID || e.CourseID != courseID {
			continue
		}
		if !e.IsPublished || e.IsExcused {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	sortEntriesByCreation(out)
	return out, nil
}

func (m *memEntries) GetStats(ctx context.Context, courseID uint, categoryID *uint) (*repositories.GradebookStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repositories.GradebookStats{LowestPercent: 101}
	var sum float64
	for _, e := range m.entries {
		if e.CourseID != courseID {
			continue
		}
		if categoryID != nil && e.CategoryID != *categoryID {
			continue
		}
		stats.TotalEntries++
		if e.IsPublished {
			stats.PublishedEntries++
		}
		if e.IsExcused {
			stats.ExcusedEntries++
		}
		sum += e.Percentage
		if e.Percentage > stats.HighestPercent {
			stats.HighestPercent = e.Percentage
		}
		if e.Percentage < stats.LowestPercent {
			stats.LowestPercent = e.Percentage
		}
	}
	if stats.TotalEntries > 0 {
		stats.AveragePercent = sum / float64(stats.TotalEntries)
	} else {
		stats.LowestPercent = 0
	}
	return stats, nil
}

func sortEntriesByCreation(entries []*models.GradebookEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if a.CreatedAt.After(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID > b.ID) {
				entries[j-1], entries[j] = b, a
			}
		}
	}
}

// ----- history -----

type memHistory memoryRepository

func (m *memHistory) Append(ctx context.Context, record *models.GradeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = (*memoryRepository)(m).allocID()
	record.CreatedAt = time.Now()
	clone := *record
	m.history = append(m.history, &clone)
	return nil
}

func (m *memHistory) ListByEntry(ctx context.Context, entryID uint) ([]*models.GradeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeHistory
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].GradebookEntryID == entryID {
			clone := *m.history[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memHistory) List(ctx context.Context, filters repositories.HistoryFilters) ([]*models.GradeHistory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeHistory
	for _, h := range m.history {
		if filters.EntryID != nil && h.GradebookEntryID != *filters.EntryID {
			continue
		}
		if filters.ModifiedBy != nil && h.ModifiedBy != *filters.ModifiedBy {
			continue
		}
		clone := *h
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

// ----- disputes -----

type memDisputes memoryRepository

func (m *memDisputes) Create(ctx context.Context, dispute *models.GradeDispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dispute.ID = (*memoryRepository)(m).allocID()
	if dispute.Status == "" {
		dispute.Status = models.DisputePending
	}
	dispute.CreatedAt = time.Now()
	clone := *dispute
	m.disputes[dispute.ID] = &clone
	return nil
}

func (m *memDisputes) GetByID(ctx context.Context, id uint) (*models.GradeDispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *d
	return &clone, nil
}

func (m *memDisputes) Update(ctx context.Context, dispute *models.GradeDispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.disputes[dispute.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *dispute
	m.disputes[dispute.ID] = &clone
	return nil
}

func (m *memDisputes) List(ctx context.Context, filters repositories.DisputeFilters) ([]*models.GradeDispute, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GradeDispute
	for _, d := range m.disputes {
		if filters.Status != nil && d.Status != *filters.Status {
			continue
		}
		if filters.StudentID != nil && d.StudentID != *filters.StudentID {
			continue
		}
		if filters.EntryID != nil && d.GradebookEntryID != *filters.EntryID {
			continue
		}
		clone := *d
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (m *memDisputes) GetActiveByEntry(ctx context.Context, entryID uint) (*models.GradeDispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.disputes {
		if d.GradebookEntryID == entryID && d.Status.IsActive() {
			clone := *d
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memDisputes) GetStats(ctx context.Context, courseID *uint) (*repositories.DisputeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repositories.DisputeStats{StatusBreakdown: make(map[models.DisputeStatus]int)}
	for _, d := range m.disputes {
		if courseID != nil {
			entry, ok := m.entries[d.GradebookEntryID]
			if !ok || entry.CourseID != *courseID {
				continue
			}
		}
		stats.TotalDisputes++
		stats.StatusBreakdown[d.Status]++
		if d.Status.IsActive() {
			stats.ActiveDisputes++
		}
	}
	return stats, nil
}

// ----- cache -----

// memorySummaryCache records invalidations so tests can assert on the
// write path without Redis. Reads always miss so aggregation tests
// exercise the full computation.
type memorySummaryCache struct {
	mu                  sync.Mutex
	invalidations       int
	courseInvalidations int
}

func newMemorySummaryCache() *memorySummaryCache {
	return &memorySummaryCache{}
}

func (c *memorySummaryCache) Get(ctx context.Context, courseID, studentID uint, dest interface{}) error {
	return cache.ErrCacheMiss
}

func (c *memorySummaryCache) Set(ctx context.Context, courseID, studentID uint, value interface{}, ttl time.Duration) error {
	return nil
}

func (c *memorySummaryCache) Invalidate(ctx context.Context, courseID, studentID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

func (c *memorySummaryCache) InvalidateCourse(ctx context.Context, courseID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courseInvalidations++
	return nil
}

// ----- fixture helpers -----

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *utils.Validator {
	return utils.NewValidator()
}
