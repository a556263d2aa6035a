package problem

import "examtt/internal/domain"

// Dataset is the flat, value-only payload produced by a DataSource. No
// record carries a back-pointer into the data source (spec.md §6.1).
type Dataset struct {
	Exams         []ExamRecord
	Rooms         []RoomRecord
	Students      []StudentRecord
	Invigilators  []InvigilatorRecord
	Registrations []RegistrationRecord
	Days          []DayRecord
	Timeslots     []TimeSlotRecord
}

type ExamRecord struct {
	ID                domain.ID
	CourseID          domain.ID
	CourseCode        string
	ExpectedStudents  uint32
	DurationMinutes   uint32
	IsPractical       bool
	MorningOnly       bool
	DepartmentID      *domain.ID
	AllowedRooms      []domain.ID // nil/empty means unrestricted
	PrerequisiteExams []domain.ID
	Weight            float32
}

type RoomRecord struct {
	ID                domain.ID
	Code              string
	Capacity          uint32
	HasComputers      bool
	AdjacentSeatPairs [][2]int
}

type StudentRecord struct {
	ID           domain.ID
	ProgrammeID  domain.ID
	CurrentLevel int
}

type InvigilatorRecord struct {
	ID                 domain.ID
	DepartmentID       *domain.ID
	CanInvigilate      bool
	MaxConcurrentExams uint32
	MaxStudentsPerExam uint32
	Unrestricted       bool
	Blocklist          []domain.BlockEntry
}

type RegistrationRecord struct {
	StudentID domain.ID
	CourseID  domain.ID
	Kind      domain.RegistrationKind
}

type DayRecord struct {
	ID   domain.ID
	Date string
}

type TimeSlotRecord struct {
	ID              domain.ID
	ParentDayID     domain.ID
	SlotIndex       int
	StartTime       string
	EndTime         string
	DurationMinutes uint32
}
