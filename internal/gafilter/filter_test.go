package gafilter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
	"examtt/internal/problem"
)

func buildSmallProblem(t *testing.T) *problem.Problem {
	t.Helper()
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(2, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))

	room := &domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 100, HasComputers: false}
	require.NoError(t, p.AddRoom(room))

	courseA := domain.NewID()
	courseB := domain.NewID()

	examA := &domain.Exam{
		ID: domain.NewID(), CourseID: courseA, CourseCode: "CS101",
		ExpectedStudents: 30, DurationMinutes: 180, Weight: 1.0,
	}
	examB := &domain.Exam{
		ID: domain.NewID(), CourseID: courseB, CourseCode: "CS102",
		ExpectedStudents: 20, DurationMinutes: 180, Weight: 1.5,
	}
	require.NoError(t, p.AddExam(examA))
	require.NoError(t, p.AddExam(examB))

	for i := 0; i < 10; i++ {
		s := &domain.Student{ID: domain.NewID(), ProgrammeID: domain.NewID()}
		require.NoError(t, p.AddStudent(s))
		require.NoError(t, p.Register(s.ID, courseA))
		if i%2 == 0 {
			require.NoError(t, p.Register(s.ID, courseB))
		}
	}

	require.NoError(t, p.Seal())
	return p
}

func TestRunProducesNonEmptyViableSets(t *testing.T) {
	p := buildSmallProblem(t)
	cfg := DefaultConfig()
	cfg.PoolSize = 8
	cfg.Generations = 4

	result, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.ViableY)

	for _, e := range p.Exams() {
		found := false
		for yk := range result.ViableY {
			if yk.ExamID == e.ID {
				found = true
				break
			}
		}
		require.Truef(t, found, "exam %s retained no viable (room,slot)", e.CourseCode)
	}
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	p := buildSmallProblem(t)
	cfg := DefaultConfig()
	cfg.PoolSize = 8
	cfg.Generations = 4
	cfg.Seed = 99

	r1, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)
	r2, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)

	require.Equal(t, len(r1.ViableY), len(r2.ViableY))
	require.Equal(t, r1.SearchHints, r2.SearchHints)
}

func TestRetentionNeverDropsBelowRetentionThresholdFloor(t *testing.T) {
	p := buildSmallProblem(t)
	cfg := DefaultConfig()
	cfg.PoolSize = 6
	cfg.Generations = 3
	cfg.RetentionThreshold = 0.01 // aggressive pruning still must keep 1 per exam

	result, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)

	perExam := make(map[domain.ID]int)
	for yk := range result.ViableY {
		perExam[yk.ExamID]++
	}
	for _, e := range p.Exams() {
		require.GreaterOrEqual(t, perExam[e.ID], 1)
	}
}

// TestGenerationRetainedCountsAreMonotoneNonIncreasing exercises spec.md §8's
// "GA monotone pruning" property directly against the per-generation trace:
// |retained_y(g)| must never increase from one generation to the next.
func TestGenerationRetainedCountsAreMonotoneNonIncreasing(t *testing.T) {
	p := buildSmallProblem(t)
	cfg := DefaultConfig()
	cfg.PoolSize = 10
	cfg.Generations = 6
	cfg.ConvergenceWindow = 6
	cfg.Seed = 99

	result, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)

	require.Len(t, result.GenerationRetainedCounts, result.Generations+1)
	for g := 1; g < len(result.GenerationRetainedCounts); g++ {
		require.LessOrEqual(t, result.GenerationRetainedCounts[g], result.GenerationRetainedCounts[g-1],
			"retained count must not grow from generation %d to %d", g-1, g)
	}
}
