// Package conflict implements the post-solve conflict detector and
// solution validator (spec.md §4.5): given a raw Solution, it finds
// student, room, invigilator, and precedence collisions, classifies
// their severity, and marks every affected Assignment's status.
package conflict

import (
	"sort"

	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/solution"
)

// Detect scans sol against p and returns every conflict found, in a
// deterministic order (by kind, then by the affected exams' IDs). It also
// mutates sol.Assignments in place, setting Status to Conflict on every
// assignment named by a returned report.
func Detect(p *problem.Problem, sol *solution.Solution) []solution.ConflictReport {
	var reports []solution.ConflictReport
	reports = append(reports, studentTemporalConflicts(p, sol)...)
	reports = append(reports, roomCapacityConflicts(p, sol)...)
	reports = append(reports, invigilatorConflicts(p, sol)...)
	reports = append(reports, precedenceViolations(p, sol)...)

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Kind != reports[j].Kind {
			return reports[i].Kind < reports[j].Kind
		}
		a, b := reports[i].AffectedExams, reports[j].AffectedExams
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k].String() < b[k].String()
			}
		}
		return len(a) < len(b)
	})

	affected := make(map[domain.ID]bool)
	for _, r := range reports {
		for _, e := range r.AffectedExams {
			affected[e] = true
		}
	}
	for i := range sol.Assignments {
		if affected[sol.Assignments[i].ExamID] {
			sol.Assignments[i].Status = solution.AssignmentConflict
		} else {
			sol.Assignments[i].Status = solution.AssignmentOK
		}
	}
	return reports
}

func newReport(kind solution.ConflictKind, sev solution.Severity, desc string, exams, resources []domain.ID) solution.ConflictReport {
	return solution.ConflictReport{
		ConflictID:        domain.NewID(),
		Kind:              kind,
		Severity:          sev,
		AffectedExams:     exams,
		AffectedResources: resources,
		Description:       desc,
	}
}

// studentTemporalConflicts finds exam pairs sharing a slot and at least
// one student. Severity is Critical if any shared registration is
// Normal, Medium if every shared registration is Carryover (spec.md
// §4.5, resolving the Open Question in favor of the detector's policy).
func studentTemporalConflicts(p *problem.Problem, sol *solution.Solution) []solution.ConflictReport {
	slotOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	for _, a := range sol.Assignments {
		slotOf[a.ExamID] = a.SlotID
	}

	var out []solution.ConflictReport
	exams := p.Exams()
	for i, e1 := range exams {
		for j := i + 1; j < len(exams); j++ {
			e2 := exams[j]
			s1, ok1 := slotOf[e1.ID]
			s2, ok2 := slotOf[e2.ID]
			if !ok1 || !ok2 || s1 != s2 {
				continue
			}
			normalConflict := p.ConflictPairs()[problem.NewUnorderedPair(e1.ID, e2.ID)]
			carryoverOnly := p.SharesOnlyCarryover(e1.ID, e2.ID)
			if !normalConflict && !carryoverOnly {
				continue
			}
			sev := solution.SeverityCritical
			desc := "exams share a normal-registered student and were scheduled in the same slot"
			if !normalConflict && carryoverOnly {
				sev = solution.SeverityMedium
				desc = "exams share only carryover students and were scheduled in the same slot"
			}
			out = append(out, newReport(solution.ConflictStudentTemporal, sev, desc,
				[]domain.ID{e1.ID, e2.ID}, nil))
		}
	}
	return out
}

// roomCapacityConflicts finds (room,slot) pairs whose assigned exams'
// combined expected enrollment exceeds the room's exam capacity.
func roomCapacityConflicts(p *problem.Problem, sol *solution.Solution) []solution.ConflictReport {
	type roomSlot struct{ RoomID, SlotID domain.ID }
	load := make(map[roomSlot]uint32)
	examsByRoomSlot := make(map[roomSlot][]domain.ID)

	examByID := make(map[domain.ID]*domain.Exam)
	for _, e := range p.Exams() {
		examByID[e.ID] = e
	}
	for _, a := range sol.Assignments {
		e, ok := examByID[a.ExamID]
		if !ok {
			continue
		}
		for _, r := range a.RoomIDs {
			key := roomSlot{RoomID: r, SlotID: a.SlotID}
			load[key] += e.ExpectedStudents
			examsByRoomSlot[key] = append(examsByRoomSlot[key], a.ExamID)
		}
	}

	var out []solution.ConflictReport
	for key, total := range load {
		room, ok := p.Room(key.RoomID)
		if !ok || total <= room.ExamCapacity() {
			continue
		}
		out = append(out, newReport(solution.ConflictRoomCapacity, solution.SeverityHigh,
			"assigned exams exceed the room's exam capacity in this slot",
			examsByRoomSlot[key], []domain.ID{key.RoomID}))
	}
	return out
}

// invigilatorConflicts finds an invigilator assigned to more (e,r,s)
// tuples in the same slot than their max_concurrent_exams allows.
func invigilatorConflicts(p *problem.Problem, sol *solution.Solution) []solution.ConflictReport {
	type invSlot struct{ InvigilatorID, SlotID domain.ID }
	tuples := make(map[invSlot][]domain.ID)

	for _, a := range sol.Assignments {
		for _, invID := range a.InvigilatorIDs {
			key := invSlot{InvigilatorID: invID, SlotID: a.SlotID}
			tuples[key] = append(tuples[key], a.ExamID)
		}
	}

	var out []solution.ConflictReport
	for key, exams := range tuples {
		inv, ok := p.Invigilator(key.InvigilatorID)
		limit := 1
		if ok && inv.MaxConcurrentExams > 0 {
			limit = int(inv.MaxConcurrentExams)
		}
		if len(exams) <= limit {
			continue
		}
		out = append(out, newReport(solution.ConflictInvigilator, solution.SeverityHigh,
			"invigilator assigned beyond their concurrent-exam limit in this slot",
			exams, []domain.ID{key.InvigilatorID}))
	}
	return out
}

// precedenceViolations finds a prerequisite exam that starts no earlier
// than its dependent, using slot_order to compare start times.
func precedenceViolations(p *problem.Problem, sol *solution.Solution) []solution.ConflictReport {
	slotOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	for _, a := range sol.Assignments {
		slotOf[a.ExamID] = a.SlotID
	}

	var out []solution.ConflictReport
	for _, e := range p.Exams() {
		dependentSlot, ok := slotOf[e.ID]
		if !ok {
			continue
		}
		for prereqID := range e.PrerequisiteExams {
			prereqSlot, ok := slotOf[prereqID]
			if !ok {
				continue
			}
			if p.SlotOrder(prereqSlot) >= p.SlotOrder(dependentSlot) {
				out = append(out, newReport(solution.ConflictPrecedence, solution.SeverityCritical,
					"prerequisite exam does not start before its dependent",
					[]domain.ID{prereqID, e.ID}, nil))
			}
		}
	}
	return out
}
