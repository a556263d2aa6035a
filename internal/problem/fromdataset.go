package problem

import (
	"examtt/internal/domain"
)

// FromDataset builds a fresh, unsealed Problem from a flat Dataset (spec.md
// §4.1 ingestion), the way the teacher's loader.LoadUniversity hands a flat
// loaded old-model state to a DomainBuilder that reconstructs the domain
// model's entity tables. Registrations are applied after every entity
// exists, then PopulateExamStudents computes the student and conflict
// indices; FromDataset does not call Seal.
func FromDataset(ds *Dataset) (*Problem, *DatasetError) {
	p := New()

	for _, d := range ds.Days {
		if err := p.AddDay(&domain.Day{ID: d.ID, Date: d.Date}); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
	}
	for _, s := range ds.Timeslots {
		if err := p.AddTimeSlot(&domain.TimeSlot{
			ID:              s.ID,
			ParentDayID:     s.ParentDayID,
			SlotIndex:       s.SlotIndex,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			DurationMinutes: s.DurationMinutes,
		}); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
	}
	linkTimeslotsToDays(p, ds)

	for _, r := range ds.Rooms {
		if err := p.AddRoom(&domain.Room{
			ID:                r.ID,
			Code:              r.Code,
			Capacity:          r.Capacity,
			HasComputers:      r.HasComputers,
			AdjacentSeatPairs: r.AdjacentSeatPairs,
		}); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
	}

	for _, e := range ds.Exams {
		exam := &domain.Exam{
			ID:               e.ID,
			CourseID:         e.CourseID,
			CourseCode:       e.CourseCode,
			ExpectedStudents: e.ExpectedStudents,
			DurationMinutes:  e.DurationMinutes,
			IsPractical:      e.IsPractical,
			MorningOnly:      e.MorningOnly,
			DepartmentID:     e.DepartmentID,
			Weight:           e.Weight,
		}
		if len(e.AllowedRooms) > 0 {
			exam.AllowedRooms = make(map[domain.ID]bool, len(e.AllowedRooms))
			for _, rid := range e.AllowedRooms {
				exam.AllowedRooms[rid] = true
			}
		}
		if len(e.PrerequisiteExams) > 0 {
			exam.PrerequisiteExams = make(map[domain.ID]bool, len(e.PrerequisiteExams))
			for _, pid := range e.PrerequisiteExams {
				exam.PrerequisiteExams[pid] = true
			}
		}
		if err := p.AddExam(exam); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
	}

	for _, s := range ds.Students {
		if err := p.AddStudent(&domain.Student{
			ID:           s.ID,
			ProgrammeID:  s.ProgrammeID,
			CurrentLevel: s.CurrentLevel,
		}); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
	}

	for _, inv := range ds.Invigilators {
		availability := domain.Availability{Kind: domain.AvailabilityUnrestricted}
		if !inv.Unrestricted && len(inv.Blocklist) > 0 {
			availability.Kind = domain.AvailabilityBlocklist
			availability.Blocklist = inv.Blocklist
		}
		if err := p.AddInvigilator(&domain.Invigilator{
			ID:                 inv.ID,
			DepartmentID:       inv.DepartmentID,
			CanInvigilate:      inv.CanInvigilate,
			MaxConcurrentExams: inv.MaxConcurrentExams,
			MaxStudentsPerExam: inv.MaxStudentsPerExam,
			Availability:       availability,
		}); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
	}

	for _, reg := range ds.Registrations {
		if err := p.Register(reg.StudentID, reg.CourseID); err != nil {
			return nil, &DatasetError{Reasons: []string{err.Error()}}
		}
		applyRegistrationKind(p, reg)
	}

	if err := p.PopulateExamStudents(); err != nil {
		return nil, &DatasetError{Reasons: []string{err.Error()}}
	}

	if dsErr := p.Validate(); dsErr != nil {
		return nil, dsErr
	}

	return p, nil
}

// linkTimeslotsToDays rebuilds each Day's Timeslots slice, since
// DayRecord/TimeSlotRecord relate by ParentDayID rather than carrying a
// nested list the way ConfigureExamDays' synthesized days do.
func linkTimeslotsToDays(p *Problem, ds *Dataset) {
	bySlotParent := make(map[domain.ID][]domain.ID, len(ds.Days))
	for _, s := range ds.Timeslots {
		bySlotParent[s.ParentDayID] = append(bySlotParent[s.ParentDayID], s.ID)
	}
	for _, d := range ds.Days {
		day, ok := p.days[d.ID]
		if !ok {
			continue
		}
		day.Timeslots = bySlotParent[d.ID]
	}
}

// applyRegistrationKind overrides the Normal default Register sets when a
// registration is explicitly Carryover, recording it directly on the
// affected exam(s) the way PopulateExamStudents later expects to find it.
func applyRegistrationKind(p *Problem, reg RegistrationRecord) {
	if reg.Kind != domain.Carryover {
		return
	}
	for _, e := range p.exams {
		if e.CourseID != reg.CourseID {
			continue
		}
		if e.Students == nil {
			e.Students = make(map[domain.ID]domain.RegistrationKind)
		}
		e.Students[reg.StudentID] = domain.Carryover
	}
}
