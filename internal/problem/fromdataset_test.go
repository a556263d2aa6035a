package problem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
)

func buildDataset() (*Dataset, domain.ID, domain.ID, domain.ID) {
	dayID := domain.NewID()
	slot0, slot1, slot2 := domain.NewID(), domain.NewID(), domain.NewID()
	roomID := domain.NewID()
	examID := domain.NewID()
	courseID := domain.NewID()
	studentID := domain.NewID()

	ds := &Dataset{
		Days: []DayRecord{{ID: dayID, Date: "2026-01-05"}},
		Timeslots: []TimeSlotRecord{
			{ID: slot0, ParentDayID: dayID, SlotIndex: 0, StartTime: "09:00", EndTime: "12:00", DurationMinutes: 180},
			{ID: slot1, ParentDayID: dayID, SlotIndex: 1, StartTime: "14:00", EndTime: "17:00", DurationMinutes: 180},
			{ID: slot2, ParentDayID: dayID, SlotIndex: 2, StartTime: "18:00", EndTime: "21:00", DurationMinutes: 180},
		},
		Rooms: []RoomRecord{{ID: roomID, Code: "R1", Capacity: 50}},
		Exams: []ExamRecord{{
			ID: examID, CourseID: courseID, CourseCode: "CS101",
			ExpectedStudents: 10, DurationMinutes: 180,
		}},
		Students: []StudentRecord{{ID: studentID, ProgrammeID: domain.NewID(), CurrentLevel: 2}},
		Registrations: []RegistrationRecord{
			{StudentID: studentID, CourseID: courseID, Kind: domain.Carryover},
		},
	}
	return ds, examID, studentID, roomID
}

func TestFromDatasetBuildsAnUnsealedProblem(t *testing.T) {
	ds, examID, studentID, roomID := buildDataset()

	p, dsErr := FromDataset(ds)
	require.Nil(t, dsErr)
	require.False(t, p.IsSealed())

	require.Len(t, p.Exams(), 1)
	require.Len(t, p.Rooms(), 1)
	_, ok := p.Room(roomID)
	require.True(t, ok)

	kind := p.StudentsPerExam(examID)[studentID]
	require.Equal(t, domain.Carryover, kind)
}

func TestFromDatasetRejectsEmptyDataset(t *testing.T) {
	_, dsErr := FromDataset(&Dataset{})
	require.NotNil(t, dsErr)
	require.NotEmpty(t, dsErr.Reasons)
}

func TestFromDatasetIsIdempotentUnderDoubleSeal(t *testing.T) {
	ds, _, _, _ := buildDataset()
	p, dsErr := FromDataset(ds)
	require.Nil(t, dsErr)

	require.NoError(t, p.Seal())
	require.NoError(t, p.Seal())
	require.True(t, p.IsSealed())
}
