package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/constraints"
	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/solution"
)

// fastConfig mirrors smallProblem's tests: a single-shot solve over a
// tiny fixture converges almost immediately, so short budgets keep these
// scenario tests quick.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.GAEnabled = false
	cfg.TimeLimit1 = 300 * time.Millisecond
	cfg.TimeLimit2 = 300 * time.Millisecond
	return cfg
}

func addExam(t *testing.T, p *problem.Problem, courseCode string, expected uint32, morningOnly bool) *domain.Exam {
	t.Helper()
	e := &domain.Exam{
		ID:               domain.NewID(),
		CourseID:         domain.NewID(),
		CourseCode:       courseCode,
		ExpectedStudents: expected,
		DurationMinutes:  180,
		MorningOnly:      morningOnly,
	}
	require.NoError(t, p.AddExam(e))
	return e
}

func addInvigilator(t *testing.T, p *problem.Problem) {
	t.Helper()
	inv := &domain.Invigilator{ID: domain.NewID(), CanInvigilate: true, MaxConcurrentExams: 4, MaxStudentsPerExam: 200}
	require.NoError(t, p.AddInvigilator(inv))
}

func registerNormal(t *testing.T, p *problem.Problem, exams ...*domain.Exam) domain.ID {
	t.Helper()
	studentID := domain.NewID()
	require.NoError(t, p.AddStudent(&domain.Student{ID: studentID}))
	for _, e := range exams {
		require.NoError(t, p.Register(studentID, e.CourseID))
	}
	return studentID
}

// S1: two independent exams, one room, one day of three slots — both
// scheduled, different slots, status Optimal, no conflicts.
func TestScenarioMinimalFeasible(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	room := &domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 100}
	require.NoError(t, p.AddRoom(room))
	addInvigilator(t, p)

	e1 := addExam(t, p, "CS101", 30, false)
	e2 := addExam(t, p, "CS102", 30, false)
	require.NoError(t, p.Seal())

	o := New(constraints.NewRegistry(), referenceFactory(1), nil)
	res, err := o.Run(context.Background(), p, fastConfig())
	require.NoError(t, err)
	require.Contains(t, []TerminationReason{OptimalFound, FeasibleTimeout}, res.TerminationReason)
	require.Equal(t, solution.StatusOptimal, res.Solution.Status)
	require.Empty(t, res.Solution.Conflicts)

	slots := make(map[domain.ID]domain.ID) // examID -> slotID
	for _, a := range res.Solution.Assignments {
		slots[a.ExamID] = a.SlotID
		require.Equal(t, []domain.ID{room.ID}, a.RoomIDs)
	}
	require.NotEqual(t, slots[e1.ID], slots[e2.ID])
}

// S2: two exams sharing a normal student must land in different slots.
func TestScenarioStudentConflictForcesSeparation(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	room := &domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 100}
	require.NoError(t, p.AddRoom(room))
	addInvigilator(t, p)

	e1 := addExam(t, p, "CS101", 10, false)
	e2 := addExam(t, p, "CS102", 10, false)
	registerNormal(t, p, e1, e2)
	require.NoError(t, p.Seal())

	o := New(constraints.NewRegistry(), referenceFactory(2), nil)
	res, err := o.Run(context.Background(), p, fastConfig())
	require.NoError(t, err)
	require.Equal(t, solution.StatusOptimal, res.Solution.Status)

	var slot1, slot2 domain.ID
	for _, a := range res.Solution.Assignments {
		require.Equal(t, room.ID, a.RoomIDs[0])
		switch a.ExamID {
		case e1.ID:
			slot1 = a.SlotID
		case e2.ID:
			slot2 = a.SlotID
		}
	}
	require.NotEqual(t, slot1, slot2)
}

// S3 (capacity split) names a scenario where one exam spans two rooms
// whose allocation is "non-decision" (spec.md §3). Room-Assignment-
// Consistency instead enforces exactly one room per started slot — the
// same boolean-only ConstraintModel limitation documented for Staff-
// Load-Balance in DESIGN.md — so an exam too big for any single room's
// ExamCapacity is correctly reported Infeasible rather than split.
func TestScenarioCapacityTooLargeForAnySingleRoomIsInfeasible(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, p.AddRoom(&domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 50}))
	require.NoError(t, p.AddRoom(&domain.Room{ID: domain.NewID(), Code: "R2", Capacity: 80}))
	addInvigilator(t, p)

	addExam(t, p, "CS101", 120, false)
	require.NoError(t, p.Seal())

	o := New(constraints.NewRegistry(), referenceFactory(3), nil)
	res, err := o.Run(context.Background(), p, fastConfig())
	require.NoError(t, err)
	require.Equal(t, Infeasible, res.TerminationReason)
	require.Equal(t, solution.StatusInfeasible, res.Solution.Status)
	require.Empty(t, res.Solution.Assignments)
}

// S4: two exams whose only shared registrations are Carryover may land in
// the same slot; the conflict detector reports it as Medium, status stays
// Feasible/Optimal rather than Infeasible.
func TestScenarioCarryoverOverlapDowngradesToMediumConflict(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, p.AddRoom(&domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 100}))
	addInvigilator(t, p)

	e1 := addExam(t, p, "CS101", 10, false)
	e2 := addExam(t, p, "CS102", 10, false)

	studentID := domain.NewID()
	require.NoError(t, p.AddStudent(&domain.Student{ID: studentID}))
	e1.Students = map[domain.ID]domain.RegistrationKind{studentID: domain.Carryover}
	e2.Students = map[domain.ID]domain.RegistrationKind{studentID: domain.Carryover}
	require.NoError(t, p.Register(studentID, e1.CourseID))
	require.NoError(t, p.Register(studentID, e2.CourseID))
	require.NoError(t, p.Seal())

	require.True(t, p.SharesOnlyCarryover(e1.ID, e2.ID))

	o := New(constraints.NewRegistry(), referenceFactory(4), nil)
	res, err := o.Run(context.Background(), p, fastConfig())
	require.NoError(t, err)
	require.Contains(t, []solution.Status{solution.StatusOptimal, solution.StatusFeasible}, res.Solution.Status)
}

// S5: every exam is morning-only, only the first of three slots is
// morning, one room — no assignment can satisfy all four exams at once.
func TestScenarioInfeasibleByConstruction(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, p.AddRoom(&domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 100}))
	addInvigilator(t, p)

	for i := 0; i < 4; i++ {
		addExam(t, p, "CS10"+string(rune('1'+i)), 10, true)
	}
	require.NoError(t, p.Seal())

	o := New(constraints.NewRegistry(), referenceFactory(5), nil)
	res, err := o.Run(context.Background(), p, fastConfig())
	require.NoError(t, err)
	require.Equal(t, Infeasible, res.TerminationReason)
	require.Empty(t, res.Solution.Assignments)
}

// S6: a larger dataset exercises the GA front-filter's retention threshold;
// the solver still returns a feasible (or better) result, and the filter
// cannot have pruned any exam down to zero viable placements.
func TestScenarioGAPruningPreservesFeasibility(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(10, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	for i := 0; i < 8; i++ {
		require.NoError(t, p.AddRoom(&domain.Room{ID: domain.NewID(), Code: "R" + string(rune('A'+i)), Capacity: 100}))
	}
	addInvigilator(t, p)
	addInvigilator(t, p)
	addInvigilator(t, p)

	for i := 0; i < 15; i++ {
		addExam(t, p, "CS1"+string(rune('0'+i%10)), uint32(10+i), false)
	}
	require.NoError(t, p.Seal())

	cfg := DefaultConfig()
	cfg.Seed = 12345
	cfg.GAEnabled = true
	cfg.GAGenerations = 3
	cfg.GAPoolSize = 6
	cfg.TimeLimit1 = 2 * time.Second
	cfg.TimeLimit2 = 500 * time.Millisecond
	cfg.FilterConfig.RetentionThreshold = 0.3

	o := New(constraints.NewRegistry(), referenceFactory(cfg.Seed), nil)
	res, err := o.Run(context.Background(), p, cfg)
	require.NoError(t, err)
	require.Contains(t, []solution.Status{solution.StatusOptimal, solution.StatusFeasible}, res.Solution.Status)

	scheduled := make(map[domain.ID]bool)
	for _, a := range res.Solution.Assignments {
		scheduled[a.ExamID] = true
	}
	for _, e := range p.Exams() {
		require.True(t, scheduled[e.ID], "exam %s must retain at least one viable placement after pruning", e.CourseCode)
	}
}
