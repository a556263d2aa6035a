package problem

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"examtt/internal/domain"
)

// Problem owns the entity tables, the constraint-registry-visible derived
// indices, and the seal/validate lifecycle described in spec.md §3-§4.1.
// Cross-references between entities are identifier-valued; no node owns
// another (spec.md §9 "Cyclic object graphs").
type Problem struct {
	exams        map[domain.ID]*domain.Exam
	rooms        map[domain.ID]*domain.Room
	days         map[domain.ID]*domain.Day
	slots        map[domain.ID]*domain.TimeSlot
	students     map[domain.ID]*domain.Student
	invigilators map[domain.ID]*domain.Invigilator

	sealed bool

	// Derived indices, populated by seal(). Read-only thereafter.
	studentsPerExam map[domain.ID]map[domain.ID]domain.RegistrationKind
	conflictPairs   map[UnorderedPair]bool
	examNeighbors   map[domain.ID]map[domain.ID]bool
	slotOrder       map[domain.ID]uint32
	dayOrdinal      map[domain.ID]int
}

// UnorderedPair is a symmetric pair of exam IDs; (a,b) and (b,a) compare
// equal once normalized, giving conflict_pairs set semantics for free via a
// Go map (spec.md §8 "Conflict symmetry").
type UnorderedPair struct {
	A, B domain.ID
}

// NewUnorderedPair normalizes its arguments so map lookups are order
// independent.
func NewUnorderedPair(a, b domain.ID) UnorderedPair {
	if a.String() > b.String() {
		a, b = b, a
	}
	return UnorderedPair{A: a, B: b}
}

// New creates an empty, unsealed Problem.
func New() *Problem {
	return &Problem{
		exams:        make(map[domain.ID]*domain.Exam),
		rooms:        make(map[domain.ID]*domain.Room),
		days:         make(map[domain.ID]*domain.Day),
		slots:        make(map[domain.ID]*domain.TimeSlot),
		students:     make(map[domain.ID]*domain.Student),
		invigilators: make(map[domain.ID]*domain.Invigilator),
	}
}

// --- Pre-seal mutators -----------------------------------------------------

func (p *Problem) AddExam(e *domain.Exam) error {
	if p.sealed {
		return &SealError{Op: "AddExam"}
	}
	if e.Students == nil {
		e.Students = make(map[domain.ID]domain.RegistrationKind)
	}
	p.exams[e.ID] = e
	return nil
}

func (p *Problem) AddRoom(r *domain.Room) error {
	if p.sealed {
		return &SealError{Op: "AddRoom"}
	}
	p.rooms[r.ID] = r
	return nil
}

func (p *Problem) AddDay(d *domain.Day) error {
	if p.sealed {
		return &SealError{Op: "AddDay"}
	}
	p.days[d.ID] = d
	return nil
}

func (p *Problem) AddTimeSlot(s *domain.TimeSlot) error {
	if p.sealed {
		return &SealError{Op: "AddTimeSlot"}
	}
	p.slots[s.ID] = s
	return nil
}

func (p *Problem) AddStudent(s *domain.Student) error {
	if p.sealed {
		return &SealError{Op: "AddStudent"}
	}
	if s.RegisteredCourses == nil {
		s.RegisteredCourses = make(map[domain.ID]bool)
	}
	p.students[s.ID] = s
	return nil
}

func (p *Problem) AddInvigilator(i *domain.Invigilator) error {
	if p.sealed {
		return &SealError{Op: "AddInvigilator"}
	}
	p.invigilators[i.ID] = i
	return nil
}

// Register records that a student is registered for a course; the exam(s)
// for that course resolve the registration kind later via
// populate_exam_students, defaulting to Normal.
func (p *Problem) Register(studentID, courseID domain.ID) error {
	if p.sealed {
		return &SealError{Op: "Register"}
	}
	s, ok := p.students[studentID]
	if !ok {
		return nil
	}
	s.RegisteredCourses[courseID] = true
	return nil
}

// ConfigureExamDays synthesizes n days of three slots each (09-12, 14-17,
// 18-21) with contiguous dates, only if no days have been ingested yet
// (spec.md §4.1 configure_exam_days).
func (p *Problem) ConfigureExamDays(n int, start time.Time) error {
	if p.sealed {
		return &SealError{Op: "ConfigureExamDays"}
	}
	if len(p.days) > 0 {
		return nil
	}
	windows := [3][2]string{
		{"09:00", "12:00"},
		{"14:00", "17:00"},
		{"18:00", "21:00"},
	}
	for d := 0; d < n; d++ {
		date := start.AddDate(0, 0, d)
		day := &domain.Day{
			ID:      domain.NewID(),
			Date:    date.Format("2006-01-02"),
			Ordinal: d,
		}
		for idx, w := range windows {
			slot := &domain.TimeSlot{
				ID:              domain.NewID(),
				ParentDayID:     day.ID,
				SlotIndex:       idx,
				StartTime:       w[0],
				EndTime:         w[1],
				DurationMinutes: 180,
			}
			p.slots[slot.ID] = slot
			day.Timeslots = append(day.Timeslots, slot.ID)
		}
		p.days[day.ID] = day
	}
	return nil
}

// PopulateExamStudents fills students_per_exam from each student's
// registered courses and rebuilds conflict_pairs (spec.md §4.1).
// Must be called before seal(); seal() calls it if not already sealed.
func (p *Problem) PopulateExamStudents() error {
	if p.sealed {
		return &SealError{Op: "PopulateExamStudents"}
	}
	p.studentsPerExam = make(map[domain.ID]map[domain.ID]domain.RegistrationKind)

	examsByCourse := make(map[domain.ID][]*domain.Exam)
	for _, e := range p.exams {
		examsByCourse[e.CourseID] = append(examsByCourse[e.CourseID], e)
	}

	for _, s := range p.students {
		for courseID := range s.RegisteredCourses {
			kind := domain.Normal
			for _, e := range examsByCourse[courseID] {
				if e.Students != nil {
					if k, ok := e.Students[s.ID]; ok {
						kind = k
					}
				}
				if p.studentsPerExam[e.ID] == nil {
					p.studentsPerExam[e.ID] = make(map[domain.ID]domain.RegistrationKind)
				}
				p.studentsPerExam[e.ID][s.ID] = kind
				if e.Students == nil {
					e.Students = make(map[domain.ID]domain.RegistrationKind)
				}
				e.Students[s.ID] = kind
			}
		}
	}

	p.rebuildConflictPairs()
	return nil
}

func (p *Problem) rebuildConflictPairs() {
	p.conflictPairs = make(map[UnorderedPair]bool)
	p.examNeighbors = make(map[domain.ID]map[domain.ID]bool)

	examIDs := p.sortedExamIDs()
	for i, e1 := range examIDs {
		for j := i + 1; j < len(examIDs); j++ {
			e2 := examIDs[j]
			if p.sharesNormalStudent(e1, e2) {
				pair := NewUnorderedPair(e1, e2)
				p.conflictPairs[pair] = true
				if p.examNeighbors[e1] == nil {
					p.examNeighbors[e1] = make(map[domain.ID]bool)
				}
				if p.examNeighbors[e2] == nil {
					p.examNeighbors[e2] = make(map[domain.ID]bool)
				}
				p.examNeighbors[e1][e2] = true
				p.examNeighbors[e2][e1] = true
			}
		}
	}
}

// sharesNormalStudent reports whether two exams share >=1 normal-registered
// student, the exact definition of conflict_pairs (spec.md §3). Carryover-
// only overlaps are detected separately by SharesOnlyCarryover, since they
// are soft rather than hard and must not shrink the candidate slot set the
// same way a hard conflict does.
func (p *Problem) sharesNormalStudent(e1, e2 domain.ID) bool {
	s1 := p.studentsPerExam[e1]
	s2 := p.studentsPerExam[e2]
	if len(s1) == 0 || len(s2) == 0 {
		return false
	}
	small, big := s1, s2
	if len(s2) < len(s1) {
		small, big = s2, s1
	}
	for studentID, kind := range small {
		if kind != domain.Normal {
			continue
		}
		if bigKind, ok := big[studentID]; ok && bigKind == domain.Normal {
			return true
		}
	}
	return false
}

// SharesOnlyCarryover reports whether every student shared between e1 and e2
// is registered as Carryover in at least one of the two exams.
func (p *Problem) SharesOnlyCarryover(e1, e2 domain.ID) bool {
	s1 := p.studentsPerExam[e1]
	s2 := p.studentsPerExam[e2]
	sawAny := false
	for studentID, k1 := range s1 {
		k2, ok := s2[studentID]
		if !ok {
			continue
		}
		sawAny = true
		if k1 == domain.Normal && k2 == domain.Normal {
			return false
		}
	}
	return sawAny
}

func (p *Problem) sortedExamIDs() []domain.ID {
	ids := lo.Keys(p.exams)
	sort.Slice(ids, func(i, j int) bool {
		ei, ej := p.exams[ids[i]], p.exams[ids[j]]
		if ei.CourseCode != ej.CourseCode {
			return ei.CourseCode < ej.CourseCode
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// Validate checks all dataset/ingestion invariants and returns every
// violation found rather than stopping at the first (spec.md §4.1).
func (p *Problem) Validate() *DatasetError {
	var reasons []string

	if len(p.exams) == 0 {
		reasons = append(reasons, "no exams ingested")
	}
	if len(p.rooms) == 0 {
		reasons = append(reasons, "no rooms ingested")
	}
	if len(p.slots) == 0 {
		reasons = append(reasons, "no timeslots ingested")
	}

	for _, d := range p.days {
		if len(d.Timeslots) != 3 {
			reasons = append(reasons, "day "+d.ID.String()+" does not have exactly 3 slots")
		}
	}

	for pair := range p.conflictPairs {
		if _, ok := p.exams[pair.A]; !ok {
			reasons = append(reasons, "conflict_pairs references unknown exam "+pair.A.String())
		}
		if _, ok := p.exams[pair.B]; !ok {
			reasons = append(reasons, "conflict_pairs references unknown exam "+pair.B.String())
		}
	}

	for _, inv := range p.invigilators {
		for _, b := range inv.Availability.Blocklist {
			if _, ok := p.days[b.DayID]; !ok {
				reasons = append(reasons, "invigilator "+inv.ID.String()+" blocklist references unknown day")
				continue
			}
			if b.SlotID != nil {
				if _, ok := p.slots[*b.SlotID]; !ok {
					reasons = append(reasons, "invigilator "+inv.ID.String()+" blocklist references unknown slot")
				}
			}
		}
	}

	for _, e := range p.exams {
		for prereq := range e.PrerequisiteExams {
			if _, ok := p.exams[prereq]; !ok {
				reasons = append(reasons, "exam "+e.ID.String()+" references unknown prerequisite "+prereq.String())
			}
		}
	}

	if len(reasons) > 0 {
		return &DatasetError{Reasons: reasons}
	}
	return nil
}

// Seal locks mutation and computes the derived indices. Calling it twice is
// a no-op (spec.md §8 "Idempotent ingestion").
func (p *Problem) Seal() error {
	if p.sealed {
		return nil
	}
	if p.studentsPerExam == nil {
		if err := p.PopulateExamStudents(); err != nil {
			return err
		}
	}
	p.buildSlotOrder()
	p.sealed = true
	return nil
}

func (p *Problem) buildSlotOrder() {
	p.slotOrder = make(map[domain.ID]uint32)
	p.dayOrdinal = make(map[domain.ID]int)

	days := lo.Values(p.days)
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	for ordinal, d := range days {
		p.dayOrdinal[d.ID] = ordinal
		for slotIdx, slotID := range d.Timeslots {
			p.slotOrder[slotID] = uint32(ordinal*3 + slotIdx)
		}
	}
}

func (p *Problem) IsSealed() bool { return p.sealed }

// --- Read-only accessors (valid pre- or post-seal) -------------------------

func (p *Problem) Exam(id domain.ID) (*domain.Exam, bool)               { e, ok := p.exams[id]; return e, ok }
func (p *Problem) Room(id domain.ID) (*domain.Room, bool)               { r, ok := p.rooms[id]; return r, ok }
func (p *Problem) Day(id domain.ID) (*domain.Day, bool)                 { d, ok := p.days[id]; return d, ok }
func (p *Problem) TimeSlot(id domain.ID) (*domain.TimeSlot, bool)       { s, ok := p.slots[id]; return s, ok }
func (p *Problem) Invigilator(id domain.ID) (*domain.Invigilator, bool) { i, ok := p.invigilators[id]; return i, ok }

func (p *Problem) Exams() []*domain.Exam {
	out := lo.Values(p.exams)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseCode != out[j].CourseCode {
			return out[i].CourseCode < out[j].CourseCode
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (p *Problem) Rooms() []*domain.Room {
	out := lo.Values(p.rooms)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (p *Problem) Days() []*domain.Day {
	out := lo.Values(p.days)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (p *Problem) Invigilators() []*domain.Invigilator {
	out := lo.Values(p.invigilators)
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// SlotOrder is the global chronological index (day_ordinal*3 + slot_index).
func (p *Problem) SlotOrder(slotID domain.ID) uint32 { return p.slotOrder[slotID] }

// StudentsPerExam returns the read-only set of students registered to exam e.
func (p *Problem) StudentsPerExam(examID domain.ID) map[domain.ID]domain.RegistrationKind {
	return p.studentsPerExam[examID]
}

// ConflictPairs returns the read-only derived conflict_pairs set.
func (p *Problem) ConflictPairs() map[UnorderedPair]bool { return p.conflictPairs }

// ExamNeighbors returns the exams conflicting with examID.
func (p *Problem) ExamNeighbors(examID domain.ID) map[domain.ID]bool { return p.examNeighbors[examID] }

// DaySlots returns the (ordered) slot IDs for a day, the
// "day_slot_groupings" precomputed data of spec.md §4.2.
func (p *Problem) DaySlots(dayID domain.ID) []domain.ID {
	d, ok := p.days[dayID]
	if !ok {
		return nil
	}
	return d.Timeslots
}

// SlotsInChronologicalOrder returns every timeslot ID, ordered by
// day then slot_index - the deterministic variable-creation order basis.
func (p *Problem) SlotsInChronologicalOrder() []domain.ID {
	var ids []domain.ID
	for _, d := range p.Days() {
		ids = append(ids, d.Timeslots...)
	}
	return ids
}
