package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/solution"
)

func TestCarryoverPriorityEvaluateFlagsCarryoverOnlyOverlap(t *testing.T) {
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)))

	courseA, courseB := domain.NewID(), domain.NewID()
	examA := &domain.Exam{ID: domain.NewID(), CourseID: courseA, CourseCode: "A", ExpectedStudents: 5, DurationMinutes: 60}
	examB := &domain.Exam{ID: domain.NewID(), CourseID: courseB, CourseCode: "B", ExpectedStudents: 5, DurationMinutes: 60}
	require.NoError(t, p.AddExam(examA))
	require.NoError(t, p.AddExam(examB))

	s := &domain.Student{ID: domain.NewID(), ProgrammeID: domain.NewID()}
	require.NoError(t, p.AddStudent(s))
	require.NoError(t, p.Register(s.ID, courseA))
	require.NoError(t, p.Register(s.ID, courseB))

	// Seal's PopulateExamStudents pass honors a kind already present in
	// Exam.Students, so setting Carryover here before sealing is what
	// makes the shared registration carryover-only.
	examA.Students[s.ID] = domain.Carryover
	examB.Students[s.ID] = domain.Carryover
	require.NoError(t, p.Seal())

	slots := p.SlotsInChronologicalOrder()
	sol := &solution.Solution{Assignments: []solution.Assignment{
		{ExamID: examA.ID, SlotID: slots[0]},
		{ExamID: examB.ID, SlotID: slots[0]},
	}}

	mod := &carryoverPriority{baseModule: baseModule{def: ConstraintDefinition{ID: "carryover-priority", Weight: 3}}}
	violations := mod.Evaluate(p, sol)
	require.Len(t, violations, 1)
	require.Equal(t, Medium, violations[0].Severity)
}

func TestStaffLoadBalanceEvaluateNoOverloadWithSingleInvigilator(t *testing.T) {
	p := buildFixture(t)
	inv := p.Invigilators()[0]

	sol := &solution.Solution{Assignments: []solution.Assignment{
		{ExamID: p.Exams()[0].ID, InvigilatorIDs: []domain.ID{inv.ID}},
	}}

	mod := &staffLoadBalance{baseModule{def: ConstraintDefinition{
		ID: "staff-load-balance", Weight: 1,
		Parameters: []ParameterDef{{Key: "slack", Value: 0}},
	}}}
	violations := mod.Evaluate(p, sol)
	// A single invigilator shared across the fixture's one assignment is
	// already the entire fair share: no overload with only one invigilator.
	require.Empty(t, violations)
}
