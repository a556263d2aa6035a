package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/solution"
)

func buildProblem(t *testing.T) (*problem.Problem, *domain.Exam, *domain.Exam, *domain.Room) {
	t.Helper()
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)))

	room := &domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 100}
	require.NoError(t, p.AddRoom(room))

	courseA, courseB := domain.NewID(), domain.NewID()
	examA := &domain.Exam{ID: domain.NewID(), CourseID: courseA, CourseCode: "A", ExpectedStudents: 30, DurationMinutes: 120}
	examB := &domain.Exam{ID: domain.NewID(), CourseID: courseB, CourseCode: "B", ExpectedStudents: 20, DurationMinutes: 120}
	require.NoError(t, p.AddExam(examA))
	require.NoError(t, p.AddExam(examB))

	s := &domain.Student{ID: domain.NewID(), ProgrammeID: domain.NewID()}
	require.NoError(t, p.AddStudent(s))
	require.NoError(t, p.Register(s.ID, courseA))
	require.NoError(t, p.Seal())
	return p, examA, examB, room
}

func TestComputeFullyAssignedNoConflictsScoresHigh(t *testing.T) {
	p, examA, examB, room := buildProblem(t)
	slots := p.SlotsInChronologicalOrder()
	days := p.Days()

	sol := &solution.Solution{Assignments: []solution.Assignment{
		{ExamID: examA.ID, DayID: days[0].ID, SlotID: slots[0], RoomIDs: []domain.ID{room.ID}},
		{ExamID: examB.ID, DayID: days[0].ID, SlotID: slots[1], RoomIDs: []domain.ID{room.ID}},
	}}

	q := Compute(p, sol, nil, nil, DefaultWeights())
	require.Equal(t, 100.0, q.CompletionPercentage)
	require.Equal(t, 100.0, q.FeasibilityScore)
	require.InDelta(t, 100.0, q.TotalScore, 0.001)
}

func TestComputePartialAssignmentLowersCompletion(t *testing.T) {
	p, examA, _, room := buildProblem(t)
	slots := p.SlotsInChronologicalOrder()
	days := p.Days()

	sol := &solution.Solution{Assignments: []solution.Assignment{
		{ExamID: examA.ID, DayID: days[0].ID, SlotID: slots[0], RoomIDs: []domain.ID{room.ID}},
	}}

	q := Compute(p, sol, nil, nil, DefaultWeights())
	require.InDelta(t, 50.0, q.CompletionPercentage, 0.001)
}

func TestComputePenalizesDetectedConflicts(t *testing.T) {
	p, examA, examB, room := buildProblem(t)
	slots := p.SlotsInChronologicalOrder()
	days := p.Days()

	sol := &solution.Solution{Assignments: []solution.Assignment{
		{ExamID: examA.ID, DayID: days[0].ID, SlotID: slots[0], RoomIDs: []domain.ID{room.ID}},
		{ExamID: examB.ID, DayID: days[0].ID, SlotID: slots[1], RoomIDs: []domain.ID{room.ID}},
	}}
	conflicts := []solution.ConflictReport{
		{ConflictID: domain.NewID(), Kind: solution.ConflictRoomCapacity, Severity: solution.SeverityHigh},
	}

	withConflicts := Compute(p, sol, conflicts, nil, DefaultWeights())
	withoutConflicts := Compute(p, sol, nil, nil, DefaultWeights())
	require.Less(t, withConflicts.FeasibilityScore, withoutConflicts.FeasibilityScore)
	require.Less(t, withConflicts.TotalScore, withoutConflicts.TotalScore)
}
