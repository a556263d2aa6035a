package variables

import (
	"sort"

	"examtt/internal/domain"
	"examtt/internal/problem"
)

// SharedVariables is the frozen, indexed output of Factory.Encode. It is
// read-only after construction and shared by immutable reference (spec.md
// §5). For every y[e,r,s] created, x[e,s] and z[e,s] also exist; for every
// u[i,e,r,s], y[e,r,s] also exists (spec.md §4.2 output invariant).
type SharedVariables struct {
	X *Indexer[XKey]
	Z *Indexer[ZKey]
	Y *Indexer[YKey]
	U *Indexer[UKey]

	// Precomputed data exposed to constraint modules (spec.md §4.2).
	DaySlotGroupings map[domain.ID][]domain.ID
	ConflictPairs    map[problem.UnorderedPair]bool
	SlotOrder        map[domain.ID]uint32
	StudentsPerExam  map[domain.ID]map[domain.ID]domain.RegistrationKind

	// CandidateSlots is the pruned per-exam slot domain used to build x/z.
	CandidateSlots map[domain.ID][]domain.ID
}

// Factory builds SharedVariables from a sealed Problem plus GA-retained
// tuple sets for y and u.
type Factory struct {
	Ceiling int
}

func NewFactory(ceiling int) *Factory {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Factory{Ceiling: ceiling}
}

// Encode materializes x, z, y, u following the candidate-slot, room- and
// invigilator-compatibility rules of spec.md §4.2.
func (f *Factory) Encode(
	p *problem.Problem,
	retainedY map[YKey]bool,
	retainedU map[UKey]bool,
) (*SharedVariables, error) {
	if !p.IsSealed() {
		if err := p.Seal(); err != nil {
			return nil, err
		}
	}

	sv := &SharedVariables{
		X:                NewIndexer[XKey](),
		Z:                NewIndexer[ZKey](),
		Y:                NewIndexer[YKey](),
		U:                NewIndexer[UKey](),
		DaySlotGroupings: make(map[domain.ID][]domain.ID),
		ConflictPairs:    p.ConflictPairs(),
		SlotOrder:        make(map[domain.ID]uint32),
		StudentsPerExam:  make(map[domain.ID]map[domain.ID]domain.RegistrationKind),
		CandidateSlots:   make(map[domain.ID][]domain.ID),
	}

	for _, d := range p.Days() {
		sv.DaySlotGroupings[d.ID] = d.Timeslots
	}
	for _, slotID := range p.SlotsInChronologicalOrder() {
		sv.SlotOrder[slotID] = p.SlotOrder(slotID)
	}
	for _, e := range p.Exams() {
		sv.StudentsPerExam[e.ID] = p.StudentsPerExam(e.ID)
	}

	// Deterministic creation order: exams by (course_code, id), rooms by
	// (code, id), days by date, slots by slot_order (spec.md §5).
	exams := p.Exams()
	rooms := p.Rooms()

	for _, e := range exams {
		candidates := f.candidateSlots(p, e)
		sv.CandidateSlots[e.ID] = candidates

		for _, slotID := range candidates {
			sv.X.Add(XKey{ExamID: e.ID, SlotID: slotID})
			needed := e.DurationSlots(slotDuration(p, slotID))
			for _, occ := range occupancyWindow(p, slotID, needed) {
				sv.Z.Add(ZKey{ExamID: e.ID, SlotID: occ})
			}
		}

		for _, slotID := range candidates {
			for _, r := range rooms {
				yk := YKey{ExamID: e.ID, RoomID: r.ID, SlotID: slotID}
				if !retainedY[yk] {
					continue
				}
				if !roomCompatible(e, r) {
					continue
				}
				sv.Y.Add(yk)

				for _, inv := range p.Invigilators() {
					uk := UKey{InvigilatorID: inv.ID, ExamID: e.ID, RoomID: r.ID, SlotID: slotID}
					if !retainedU[uk] {
						continue
					}
					if !invigilatorCompatible(p, inv, slotID) {
						continue
					}
					sv.U.Add(uk)
				}
			}
		}

		if err := f.checkCeiling(sv); err != nil {
			return nil, err
		}
	}

	return sv, nil
}

func (f *Factory) checkCeiling(sv *SharedVariables) error {
	total := sv.X.Len() + sv.Z.Len() + sv.Y.Len() + sv.U.Len()
	if total > f.Ceiling {
		return &ErrVariableExplosion{Requested: total, Ceiling: f.Ceiling}
	}
	return nil
}

// candidateSlots excludes slots whose day lacks a room compatible with the
// exam, slots that violate morning_only, and slots whose occupancy window
// would spill past the end of the day (spec.md §4.2).
func (f *Factory) candidateSlots(p *problem.Problem, e *domain.Exam) []domain.ID {
	return CandidateSlotsForExam(p, e)
}

// CandidateSlotsForExam is the exported form of the factory's candidate-slot
// rule, reused by internal/gafilter to score (e,r,s) tuples without needing
// retained-tuple sets yet (it is what produces them).
func CandidateSlotsForExam(p *problem.Problem, e *domain.Exam) []domain.ID {
	var out []domain.ID
	for _, d := range p.Days() {
		slots := d.Timeslots
		for idx, slotID := range slots {
			slot, ok := p.TimeSlot(slotID)
			if !ok {
				continue
			}
			if e.MorningOnly && !slot.IsMorning() {
				continue
			}
			needed := e.DurationSlots(slot.DurationMinutes)
			if idx+needed > len(slots) {
				continue // would spill past end of day
			}
			if !anyRoomCompatible(p, e) {
				continue
			}
			out = append(out, slotID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return p.SlotOrder(out[i]) < p.SlotOrder(out[j]) })
	return out
}

func anyRoomCompatible(p *problem.Problem, e *domain.Exam) bool {
	for _, r := range p.Rooms() {
		if RoomCompatible(e, r) {
			return true
		}
	}
	return false
}

// RoomCompatible reports whether room r may host exam e: non-zero exam
// capacity, computers present iff the exam is practical, and membership in
// the exam's allowed-room set when one is configured.
func RoomCompatible(e *domain.Exam, r *domain.Room) bool {
	if r.ExamCapacity() == 0 {
		return false
	}
	if e.IsPractical && !r.HasComputers {
		return false
	}
	if len(e.AllowedRooms) > 0 && !e.AllowedRooms[r.ID] {
		return false
	}
	return true
}

func invigilatorCompatible(p *problem.Problem, inv *domain.Invigilator, slotID domain.ID) bool {
	return InvigilatorCompatible(p, inv, slotID)
}

// InvigilatorCompatible reports whether inv may supervise during slotID:
// willing to invigilate at all, and not blocked by their availability for
// that slot's day.
func InvigilatorCompatible(p *problem.Problem, inv *domain.Invigilator, slotID domain.ID) bool {
	if !inv.CanInvigilate {
		return false
	}
	slot, ok := p.TimeSlot(slotID)
	if !ok {
		return false
	}
	if inv.Availability.Blocks(slot.ParentDayID, slotID) {
		return false
	}
	return true
}

func slotDuration(p *problem.Problem, slotID domain.ID) uint32 {
	if s, ok := p.TimeSlot(slotID); ok {
		return s.DurationMinutes
	}
	return 0
}

// occupancyWindow returns the slots occupied starting at startSlot for
// `needed` consecutive slots in the same day.
func occupancyWindow(p *problem.Problem, startSlot domain.ID, needed int) []domain.ID {
	return OccupancyWindow(p, startSlot, needed)
}

// OccupancyWindow is the exported form of the factory's multi-slot
// occupancy rule, reused by internal/constraints to link x/z/y/u across an
// exam's full duration window (spec.md §4.4 Occupancy-Definition,
// Room-Continuity, Invigilator-Continuity).
func OccupancyWindow(p *problem.Problem, startSlot domain.ID, needed int) []domain.ID {
	slot, ok := p.TimeSlot(startSlot)
	if !ok {
		return nil
	}
	day, ok := p.Day(slot.ParentDayID)
	if !ok {
		return []domain.ID{startSlot}
	}
	startIdx := slot.SlotIndex
	var out []domain.ID
	for i := 0; i < needed && startIdx+i < len(day.Timeslots); i++ {
		out = append(out, day.Timeslots[startIdx+i])
	}
	return out
}
