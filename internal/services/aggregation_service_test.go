package services

import (
	"context"
	"testing"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addEntry publishes one graded entry via the normal upsert path.
func (env *testEnv) addEntry(t *testing.T, studentID, courseID, categoryID uint, raw, possible float64, extraCredit bool) *models.GradebookEntry {
	t.Helper()
	entry, err := env.gradebook.UpsertEntry(context.Background(), &UpsertEntryRequest{
		StudentID:      studentID,
		CourseID:       courseID,
		CategoryID:     categoryID,
		RawScore:       raw,
		PossiblePoints: possible,
		IsExtraCredit:  &extraCredit,
		IsPublished:    boolPtr(true),
		Reason:         "initial grading",
	}, 2)
	require.NoError(t, err)
	return entry
}

func (env *testEnv) addCategory(t *testing.T, courseID uint, name string, weight float64, parentID *uint, dropLowest bool, dropCount int) uint {
	t.Helper()
	category, err := env.category.Create(context.Background(), &CreateCategoryRequest{
		CourseID:             courseID,
		Name:                 name,
		Weight:               weight,
		ParentID:             parentID,
		DropLowest:           dropLowest,
		NumberOfLowestToDrop: dropCount,
	}, 1)
	require.NoError(t, err)
	return category.ID
}

func (env *testEnv) seedDefaultScale(t *testing.T) {
	t.Helper()
	_, err := env.scales.Create(context.Background(), &CreateScaleRequest{
		Name:      "Standard",
		Entries:   standardEntries(),
		IsDefault: true,
	}, 1)
	require.NoError(t, err)
}

func TestComputeOverallGradeSingleCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 85, 100, false)
	env.addEntry(t, 100, 1, categoryID, 90, 100, false)

	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 87.5, report.Percentage, 1e-9)
	assert.Equal(t, "B", report.LetterGrade)
	require.NotNil(t, report.GPAValue)
	assert.InDelta(t, 3.0, *report.GPAValue, 1e-9)
	require.Len(t, report.Breakdown, 1)
	assert.Equal(t, 2, report.Breakdown[0].EntryCount)
}

func TestComputeOverallGradeWeightedCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	homework := env.addCategory(t, 1, "Homework", 30, nil, false, 0)
	exams := env.addCategory(t, 1, "Exams", 70, nil, false, 0)

	env.addEntry(t, 100, 1, homework, 100, 100, false)
	env.addEntry(t, 100, 1, exams, 64, 80, false)

	// 100% * 0.3 + 80% * 0.7 = 86%.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 86, report.Percentage, 1e-9)
	assert.Equal(t, "B", report.LetterGrade)
}

func TestComputeOverallGradeAveragesUnequalPointValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 50, 100, false)
	env.addEntry(t, 100, 1, categoryID, 9, 10, false)

	// Each entry counts once regardless of its point value:
	// (50% + 90%) / 2 = 70%, not the pooled 59/110.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 70, report.Percentage, 1e-9)
	assert.Equal(t, "C", report.LetterGrade)
}

func TestComputeOverallGradeExtraCreditUnequalPointValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 60, 100, false)
	env.addEntry(t, 100, 1, categoryID, 80, 100, false)
	env.addEntry(t, 100, 1, categoryID, 2, 20, true)

	// The extra credit entry's 10% spreads over the two regular
	// entries: (60 + 80 + 10) / 2 = 75%.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 75, report.Percentage, 1e-9)
	assert.InDelta(t, 5, report.Breakdown[0].ExtraCredit, 1e-9)
}

func TestComputeOverallGradeDropLowest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Quizzes", 100, nil, true, 1)

	env.addEntry(t, 100, 1, categoryID, 60, 100, false)
	env.addEntry(t, 100, 1, categoryID, 70, 100, false)
	env.addEntry(t, 100, 1, categoryID, 90, 100, false)

	// Dropping the 60 leaves (70+90)/200 = 80%.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 80, report.Percentage, 1e-9)
	require.Len(t, report.Breakdown, 1)
	assert.Equal(t, 1, report.Breakdown[0].DroppedCount)
	assert.Equal(t, 3, report.Breakdown[0].EntryCount)
}

func TestComputeOverallGradeDropLowestNeverDropsAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Quizzes", 100, nil, true, 5)

	env.addEntry(t, 100, 1, categoryID, 60, 100, false)
	env.addEntry(t, 100, 1, categoryID, 80, 100, false)

	// Fewer entries than the drop count: nothing is dropped.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 70, report.Percentage, 1e-9)
	assert.Equal(t, 0, report.Breakdown[0].DroppedCount)
}

func TestComputeOverallGradeExtraCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 80, 100, false)
	env.addEntry(t, 100, 1, categoryID, 5, 100, true)

	// Extra credit adds percentage points without widening the
	// average's denominator: 80 + 5 = 85%.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 85, report.Percentage, 1e-9)
	assert.InDelta(t, 5, report.Breakdown[0].ExtraCredit, 1e-9)
}

func TestComputeOverallGradeExtraCreditCapped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 80, 100, false)
	env.addEntry(t, 100, 1, categoryID, 25, 100, true)

	// The boost is capped at the configured 10 points.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 90, report.Percentage, 1e-9)
	assert.InDelta(t, 10, report.Breakdown[0].ExtraCredit, 1e-9)
}

func TestComputeOverallGradeNestedCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)

	homework := env.addCategory(t, 1, "Homework", 30, nil, false, 0)
	exams := env.addCategory(t, 1, "Exams", 70, nil, false, 0)
	midterm := env.addCategory(t, 1, "Midterm", 40, &exams, false, 0)
	final := env.addCategory(t, 1, "Final", 60, &exams, false, 0)

	env.addEntry(t, 100, 1, homework, 90, 100, false)
	env.addEntry(t, 100, 1, midterm, 80, 100, false)
	env.addEntry(t, 100, 1, final, 70, 100, false)

	// Exams = 80*0.4 + 70*0.6 = 74; overall = 90*0.3 + 74*0.7 = 78.8.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 78.8, report.Percentage, 1e-9)
	assert.Equal(t, "C", report.LetterGrade)

	require.Len(t, report.Breakdown, 2)
	var examNode *CategoryBreakdown
	for i := range report.Breakdown {
		if report.Breakdown[i].Name == "Exams" {
			examNode = &report.Breakdown[i]
		}
	}
	require.NotNil(t, examNode)
	require.NotNil(t, examNode.Score)
	assert.InDelta(t, 74, *examNode.Score, 1e-9)
	assert.Len(t, examNode.Children, 2)
}

func TestComputeOverallGradeChildrenOverrideDirectEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)

	exams := env.addCategory(t, 1, "Exams", 100, nil, false, 0)
	quizzes := env.addCategory(t, 1, "Quizzes", 100, &exams, false, 0)

	env.addEntry(t, 100, 1, exams, 100, 100, false)
	env.addEntry(t, 100, 1, quizzes, 40, 100, false)
	env.addEntry(t, 100, 1, quizzes, 60, 100, false)

	// A category with scored children takes their weighted mean; its
	// own entries do not contribute.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 50, report.Percentage, 1e-9)

	require.Len(t, report.Breakdown, 1)
	examNode := report.Breakdown[0]
	require.NotNil(t, examNode.Score)
	assert.InDelta(t, 50, *examNode.Score, 1e-9)
	assert.Zero(t, examNode.EntryCount)
}

func TestComputeOverallGradeDirectEntriesWhenChildrenScoreless(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)

	exams := env.addCategory(t, 1, "Exams", 100, nil, false, 0)
	env.addCategory(t, 1, "Quizzes", 100, &exams, false, 0)

	env.addEntry(t, 100, 1, exams, 85, 100, false)

	// Children without any graded work do not mask the node's own
	// entries.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 85, report.Percentage, 1e-9)
	assert.Equal(t, 1, report.Breakdown[0].EntryCount)
}

func TestComputeOverallGradeSkipsScorelessCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)

	homework := env.addCategory(t, 1, "Homework", 30, nil, false, 0)
	env.addCategory(t, 1, "Exams", 70, nil, false, 0)

	env.addEntry(t, 100, 1, homework, 90, 100, false)

	// No exam grades yet: homework carries the full weight instead of
	// the exams pulling the grade toward zero.
	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 90, report.Percentage, 1e-9)
}

func TestComputeOverallGradeExcludesUnpublishedAndExcused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 90, 100, false)

	// Unpublished entry.
	_, err := env.gradebook.UpsertEntry(ctx, &UpsertEntryRequest{
		StudentID:      100,
		CourseID:       1,
		CategoryID:     categoryID,
		RawScore:       10,
		PossiblePoints: 100,
		Reason:         "draft grading",
	}, 2)
	require.NoError(t, err)

	// Excused entry.
	_, err = env.gradebook.UpsertEntry(ctx, &UpsertEntryRequest{
		StudentID:      100,
		CourseID:       1,
		CategoryID:     categoryID,
		RawScore:       0,
		PossiblePoints: 100,
		IsExcused:      boolPtr(true),
		IsPublished:    boolPtr(true),
		Reason:         "excused absence",
	}, 2)
	require.NoError(t, err)

	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 90, report.Percentage, 1e-9)
}

func TestComputeOverallGradeEmptyGradebook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	report, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	assert.Zero(t, report.Percentage)
	assert.Equal(t, models.NoLetterGrade, report.LetterGrade)
	assert.Nil(t, report.GPAValue)
}

func TestComputeOverallGradeNoActiveScale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Seed a scale only long enough to grade the entry, then drop it.
	scale, err := env.scales.Create(ctx, &CreateScaleRequest{
		Name:      "Temporary",
		Entries:   standardEntries(),
		IsDefault: true,
	}, 1)
	require.NoError(t, err)

	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)
	env.addEntry(t, 100, 1, categoryID, 85, 100, false)

	require.NoError(t, env.scales.Deactivate(ctx, scale.ID, 1))

	_, err = env.agg.ComputeOverallGrade(ctx, 100, 1)
	assert.ErrorIs(t, err, ErrNoActiveScale)
}

func TestComputeOverallGradeIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDefaultScale(t)
	categoryID := env.addCategory(t, 1, "Assignments", 100, nil, false, 0)

	env.addEntry(t, 100, 1, categoryID, 85, 100, false)
	env.addEntry(t, 100, 1, categoryID, 72, 100, false)

	first, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)
	second, err := env.agg.ComputeOverallGrade(ctx, 100, 1)
	require.NoError(t, err)

	assert.Equal(t, first.Percentage, second.Percentage)
	assert.Equal(t, first.LetterGrade, second.LetterGrade)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}
