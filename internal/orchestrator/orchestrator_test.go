package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/backend/reference"
	"examtt/internal/constraints"
	"examtt/internal/domain"
	"examtt/internal/gafilter"
	"examtt/internal/model"
	"examtt/internal/problem"
	"examtt/internal/solution"
)

func smallProblem(t *testing.T) *problem.Problem {
	t.Helper()
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))

	room := &domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 50}
	require.NoError(t, p.AddRoom(room))

	inv := &domain.Invigilator{ID: domain.NewID(), CanInvigilate: true, MaxConcurrentExams: 1, MaxStudentsPerExam: 100}
	require.NoError(t, p.AddInvigilator(inv))

	exam := &domain.Exam{
		ID:               domain.NewID(),
		CourseID:         domain.NewID(),
		CourseCode:       "CS101",
		ExpectedStudents: 10,
		DurationMinutes:  180,
	}
	require.NoError(t, p.AddExam(exam))

	require.NoError(t, p.Seal())
	return p
}

func referenceFactory(seed int64) ModelFactory {
	return func() model.ConstraintModel { return reference.New(seed) }
}

func TestRunReturnsInfeasibleForEmptyProblem(t *testing.T) {
	o := New(constraints.NewRegistry(), referenceFactory(1), nil)
	p := problem.New()

	res, err := o.Run(context.Background(), p, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, Infeasible, res.TerminationReason)
	require.Equal(t, solution.StatusInfeasible, res.Solution.Status)
}

func TestRunSingleShotProducesAFeasibleSchedule(t *testing.T) {
	p := smallProblem(t)

	cfg := DefaultConfig()
	cfg.GAEnabled = false
	cfg.TimeLimit1 = 200 * time.Millisecond
	cfg.TimeLimit2 = 200 * time.Millisecond
	cfg.FilterConfig = gafilter.DefaultConfig()
	cfg.FilterConfig.PoolSize = 6
	cfg.FilterConfig.Generations = 2

	o := New(constraints.NewRegistry(), referenceFactory(7), nil)
	res, err := o.Run(context.Background(), p, cfg)
	require.NoError(t, err)
	require.Contains(t, []TerminationReason{OptimalFound, FeasibleTimeout}, res.TerminationReason)
	require.Len(t, res.Solution.Assignments, 1)
}

func TestRunGAPathKeepsBestObservedOutcome(t *testing.T) {
	p := smallProblem(t)

	cfg := DefaultConfig()
	cfg.GAEnabled = true
	cfg.GAGenerations = 2
	cfg.GAPoolSize = 4
	cfg.TimeLimit1 = 200 * time.Millisecond
	cfg.TimeLimit2 = 50 * time.Millisecond
	cfg.FilterConfig = gafilter.DefaultConfig()
	cfg.FilterConfig.PoolSize = 6
	cfg.FilterConfig.Generations = 2

	o := New(constraints.NewRegistry(), referenceFactory(11), nil)
	res, err := o.Run(context.Background(), p, cfg)
	require.NoError(t, err)
	require.Contains(t, []TerminationReason{OptimalFound, FeasibleTimeout}, res.TerminationReason)
	require.Len(t, res.Solution.Assignments, 1)
	require.NotNil(t, res.Solution.ObjectiveValue)
}
