package services

import (
	"context"
	"testing"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCategoryService(t *testing.T) (CategoryService, *memoryRepository) {
	t.Helper()
	repo := newMemoryRepository()
	return NewCategoryService(repo, newMemorySummaryCache(), testLogger(), testValidator()), repo
}

func TestCategoryCreateAndGet(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1,
		Name:     "Homework",
		Weight:   30,
	}, 10)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Homework", got.Name)
	assert.InDelta(t, 30, got.Weight, 1e-9)
}

func TestCategoryCreateRejectsMissingParent(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	missing := uint(999)
	_, err := svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1,
		Name:     "Quizzes",
		Weight:   20,
		ParentID: &missing,
	}, 10)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryCreateRejectsCrossCourseParent(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1,
		Name:     "Exams",
		Weight:   70,
	}, 10)
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 2,
		Name:     "Midterm",
		Weight:   50,
		ParentID: &parent.ID,
	}, 10)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryGetTree(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	exams, err := svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1, Name: "Exams", Weight: 70, DisplayOrder: 2,
	}, 10)
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1, Name: "Homework", Weight: 30, DisplayOrder: 1,
	}, 10)
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1, Name: "Midterm", Weight: 40, ParentID: &exams.ID, DisplayOrder: 1,
	}, 10)
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateCategoryRequest{
		CourseID: 1, Name: "Final", Weight: 60, ParentID: &exams.ID, DisplayOrder: 2,
	}, 10)
	require.NoError(t, err)

	tree, err := svc.GetTree(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	// Roots ordered by display order.
	assert.Equal(t, "Homework", tree[0].Name)
	assert.Equal(t, "Exams", tree[1].Name)

	require.Len(t, tree[1].Children, 2)
	assert.Equal(t, "Midterm", tree[1].Children[0].Name)
	assert.Equal(t, "Final", tree[1].Children[1].Name)
	assert.Empty(t, tree[0].Children)
}

func TestCategoryValidateWeights(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Homework", Weight: 30}, 10)
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Exams", Weight: 60}, 10)
	require.NoError(t, err)

	result, err := svc.ValidateWeights(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.InDelta(t, 90, result.WeightSum, 1e-9)

	_, err = svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Participation", Weight: 10}, 10)
	require.NoError(t, err)

	result, err = svc.ValidateWeights(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.InDelta(t, 100, result.WeightSum, 1e-9)
}

func TestCategoryValidateWeightsTolerance(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	// Thirds cannot sum to exactly 100; the tolerance absorbs it.
	for _, name := range []string{"Unit 1", "Unit 2", "Unit 3"} {
		_, err := svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: name, Weight: 33.333}, 10)
		require.NoError(t, err)
	}

	result, err := svc.ValidateWeights(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestCategoryDeactivateExcludesFromWeights(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	hw, err := svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Homework", Weight: 30}, 10)
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Exams", Weight: 70}, 10)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, hw.ID, 10))

	result, err := svc.ValidateWeights(ctx, 1, nil)
	require.NoError(t, err)
	assert.InDelta(t, 70, result.WeightSum, 1e-9)
	assert.False(t, result.Valid)

	tree, err := svc.GetTree(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Exams", tree[0].Name)
}

func TestCategoryDeactivateBlockedByEntries(t *testing.T) {
	svc, repo := newTestCategoryService(t)
	ctx := context.Background()

	category, err := svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Quizzes", Weight: 100}, 10)
	require.NoError(t, err)

	require.NoError(t, repo.Entry().Create(ctx, &models.GradebookEntry{
		StudentID:      100,
		CourseID:       1,
		CategoryID:     category.ID,
		RawScore:       8,
		PossiblePoints: 10,
	}))

	err = svc.Deactivate(ctx, category.ID, 10)
	assert.ErrorIs(t, err, ErrCategoryHasEntries)
	assert.True(t, IsConflict(err))

	got, err := svc.GetByID(ctx, category.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestCategoryUpdateDisplayOrder(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Homework", Weight: 50, DisplayOrder: 1}, 10)
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateCategoryRequest{CourseID: 1, Name: "Exams", Weight: 50, DisplayOrder: 2}, 10)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateDisplayOrder(ctx, first.ID, 3, 10))

	tree, err := svc.GetTree(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Exams", tree[0].Name)
	assert.Equal(t, "Homework", tree[1].Name)

	assert.ErrorIs(t, svc.UpdateDisplayOrder(ctx, 999, 1, 10), ErrCategoryNotFound)
}
