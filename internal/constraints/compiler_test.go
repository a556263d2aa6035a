package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/variables"
)

// buildFixture produces a small sealed Problem with two conflicting exams,
// one carryover-only pair, a single room, and a single invigilator.
func buildFixture(t *testing.T) *problem.Problem {
	t.Helper()
	p := problem.New()
	require.NoError(t, p.ConfigureExamDays(1, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)))

	room := &domain.Room{ID: domain.NewID(), Code: "R1", Capacity: 50, HasComputers: false}
	require.NoError(t, p.AddRoom(room))

	inv := &domain.Invigilator{ID: domain.NewID(), CanInvigilate: true, MaxConcurrentExams: 1}
	require.NoError(t, p.AddInvigilator(inv))

	courseA, courseB, courseC := domain.NewID(), domain.NewID(), domain.NewID()
	examA := &domain.Exam{ID: domain.NewID(), CourseID: courseA, CourseCode: "CS101", ExpectedStudents: 20, DurationMinutes: 120, Weight: 1}
	examB := &domain.Exam{ID: domain.NewID(), CourseID: courseB, CourseCode: "CS102", ExpectedStudents: 15, DurationMinutes: 120, Weight: 1}
	examC := &domain.Exam{ID: domain.NewID(), CourseID: courseC, CourseCode: "CS103", ExpectedStudents: 10, DurationMinutes: 120, Weight: 1}
	require.NoError(t, p.AddExam(examA))
	require.NoError(t, p.AddExam(examB))
	require.NoError(t, p.AddExam(examC))

	for i := 0; i < 6; i++ {
		s := &domain.Student{ID: domain.NewID(), ProgrammeID: domain.NewID()}
		require.NoError(t, p.AddStudent(s))
		require.NoError(t, p.Register(s.ID, courseA))
		if i < 3 {
			require.NoError(t, p.Register(s.ID, courseB)) // normal conflict A<->B
		}
	}

	require.NoError(t, p.Seal())
	return p
}

func fullyRetainedVars(t *testing.T, p *problem.Problem) *variables.SharedVariables {
	t.Helper()
	retainedY := make(map[variables.YKey]bool)
	retainedU := make(map[variables.UKey]bool)
	for _, e := range p.Exams() {
		for _, s := range variables.CandidateSlotsForExam(p, e) {
			for _, r := range p.Rooms() {
				retainedY[variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: s}] = true
				for _, inv := range p.Invigilators() {
					retainedU[variables.UKey{InvigilatorID: inv.ID, ExamID: e.ID, RoomID: r.ID, SlotID: s}] = true
				}
			}
		}
	}
	f := variables.NewFactory(0)
	sv, err := f.Encode(p, retainedY, retainedU)
	require.NoError(t, err)
	return sv
}

func TestCompileBuildsCoreAndDynamicConstraints(t *testing.T) {
	p := buildFixture(t)
	sv := fullyRetainedVars(t, p)
	reg := NewRegistry()
	m := &fakeModel{}

	result, err := Compile(p, sv, m, reg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Modules)

	for _, id := range []string{"start-uniqueness", "room-assignment-consistency", "invigilator-requirement"} {
		stats, ok := result.Stats[id]
		require.Truef(t, ok, "expected stats for %s", id)
		require.Greaterf(t, stats.ConstraintCount, 0, "expected %s to add constraints", id)
	}
	require.True(t, m.exactlyOne > 0, "expected AddExactlyOne calls from start-uniqueness")
	require.True(t, m.maximized, "expected the compiler to assemble an objective")
}

func TestCompileDisablingDynamicConstraintSkipsIt(t *testing.T) {
	p := buildFixture(t)
	sv := fullyRetainedVars(t, p)
	reg := NewRegistry()
	require.NoError(t, reg.SetEnabled("room-utilization", false))
	m := &fakeModel{}

	result, err := Compile(p, sv, m, reg, nil)
	require.NoError(t, err)
	_, found := result.Stats["room-utilization"]
	require.False(t, found)
}

func TestRegistryRejectsDisablingCoreConstraint(t *testing.T) {
	reg := NewRegistry()
	err := reg.SetEnabled("start-uniqueness", false)
	require.Error(t, err)
}

func TestRegistrySetWeightRejectsHardConstraint(t *testing.T) {
	reg := NewRegistry()
	err := reg.SetWeight("start-uniqueness", 5)
	require.Error(t, err)
}
