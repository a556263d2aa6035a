package constraints

import (
	"examtt/internal/domain"
	"examtt/internal/model"
	"examtt/internal/problem"
	"examtt/internal/solution"
	"examtt/internal/variables"
)

// NewCoreDefinitions returns the eleven always-applied constraints in
// spec.md §4.4's phase order: phase 1 (timetabling) first, phase 2
// (packing) second. Core constraints are never disabled and carry no
// weight, since they never contribute to the objective.
func NewCoreDefinitions() []ConstraintDefinition {
	defs := []ConstraintDefinition{
		{ID: "start-uniqueness", Name: "Start Uniqueness", Type: Hard, Category: CategoryCore, Enabled: true, Mutability: ReadOnly,
			Description: "Every exam starts at exactly one candidate slot."},
		{ID: "start-feasibility", Name: "Start Feasibility", Type: Hard, Category: CategoryCore, Enabled: true, Mutability: ReadOnly,
			Description: "Starting an exam occupies every slot in its duration window."},
		{ID: "occupancy-definition", Name: "Occupancy Definition", Type: Hard, Category: CategoryCore, Enabled: true, Mutability: ReadOnly,
			Description: "A slot is occupied by an exam only if some compatible start selects it."},
		{ID: "aggregate-capacity", Name: "Aggregate Capacity", Type: Hard, Category: CategoryCore, Enabled: true, Mutability: ReadOnly,
			Description: "Total enrollment occupying a slot never exceeds total room capacity available that slot."},
		{ID: "unified-student-conflict", Name: "Unified Student Conflict", Type: Hard, Category: CategoryStudent, Enabled: true, Mutability: ReadOnly,
			Description: "Two exams sharing a normal-registered student never occupy the same slot."},
		{ID: "room-assignment-consistency", Name: "Room Assignment Consistency", Type: Hard, Category: CategoryResource, Enabled: true, Mutability: ReadOnly,
			Description: "A started exam is assigned to exactly one room at that slot."},
		{ID: "room-capacity-hard", Name: "Room Capacity", Type: Hard, Category: CategoryResource, Enabled: true, Mutability: ReadOnly,
			Description: "A room's assigned exams never exceed its exam capacity."},
		{ID: "room-continuity", Name: "Room Continuity", Type: Hard, Category: CategoryResource, Enabled: true, Mutability: ReadOnly,
			Description: "A multi-slot exam keeps the same room for its entire duration."},
		{ID: "invigilator-requirement", Name: "Invigilator Requirement", Type: Hard, Category: CategoryInvigilator, Enabled: true, Mutability: ReadOnly,
			Description: "A used (exam,room,slot) is staffed by exactly its required invigilator count."},
		{ID: "invigilator-single-presence", Name: "Invigilator Single Presence", Type: Hard, Category: CategoryInvigilator, Enabled: true, Mutability: ReadOnly,
			Description: "An invigilator supervises at most their concurrency limit at any one slot."},
		{ID: "invigilator-continuity", Name: "Invigilator Continuity", Type: Hard, Category: CategoryInvigilator, Enabled: true, Mutability: ReadOnly,
			Description: "An invigilator assigned to a multi-slot exam stays for its entire duration."},
	}
	factories := map[string]func(ConstraintDefinition) Module{
		"start-uniqueness":             func(d ConstraintDefinition) Module { return &startUniqueness{baseModule{def: d}} },
		"start-feasibility":            func(d ConstraintDefinition) Module { return &startFeasibility{baseModule{def: d}} },
		"occupancy-definition":         func(d ConstraintDefinition) Module { return &occupancyDefinition{baseModule{def: d}} },
		"aggregate-capacity":           func(d ConstraintDefinition) Module { return &aggregateCapacity{baseModule{def: d}} },
		"unified-student-conflict":     func(d ConstraintDefinition) Module { return &unifiedStudentConflict{baseModule{def: d}} },
		"room-assignment-consistency":  func(d ConstraintDefinition) Module { return &roomAssignmentConsistency{baseModule{def: d}} },
		"room-capacity-hard":           func(d ConstraintDefinition) Module { return &roomCapacityHard{baseModule{def: d}} },
		"room-continuity":              func(d ConstraintDefinition) Module { return &roomContinuity{baseModule{def: d}} },
		"invigilator-requirement":      func(d ConstraintDefinition) Module { return &invigilatorRequirement{baseModule{def: d}} },
		"invigilator-single-presence":  func(d ConstraintDefinition) Module { return &invigilatorSinglePresence{baseModule{def: d}} },
		"invigilator-continuity":       func(d ConstraintDefinition) Module { return &invigilatorContinuity{baseModule{def: d}} },
	}
	for i := range defs {
		defs[i].factory = factories[defs[i].ID]
	}
	return defs
}

func examWindow(p *problem.Problem, examID, startSlot domain.ID) []domain.ID {
	e, ok := p.Exam(examID)
	if !ok {
		return []domain.ID{startSlot}
	}
	slot, ok := p.TimeSlot(startSlot)
	if !ok {
		return []domain.ID{startSlot}
	}
	return variables.OccupancyWindow(p, startSlot, e.DurationSlots(slot.DurationMinutes))
}

// --- 1. Start-Uniqueness ----------------------------------------------------

type startUniqueness struct{ baseModule }

func (c *startUniqueness) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		var vars []model.VarID
		for _, s := range sv.CandidateSlots[e.ID] {
			if v, ok := mv.X[variables.XKey{ExamID: e.ID, SlotID: s}]; ok {
				vars = append(vars, v)
			}
		}
		if len(vars) == 0 {
			continue
		}
		m.AddExactlyOne(vars)
		count++
	}
	return c.record(count), nil
}

func (c *startUniqueness) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *startUniqueness) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	seen := make(map[domain.ID]bool)
	var out []Violation
	for _, a := range sol.Assignments {
		if seen[a.ExamID] {
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: Critical,
				AffectedExams: []domain.ID{a.ExamID},
				Description:   "exam has more than one start assignment",
				Penalty:       1,
			})
		}
		seen[a.ExamID] = true
	}
	return out
}

// --- 2. Start-Feasibility ----------------------------------------------------

// startFeasibility links x[e,s] to z[e,o] for every slot o in the exam's
// duration window: starting forces the whole window occupied.
type startFeasibility struct{ baseModule }

func (c *startFeasibility) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		for _, s := range sv.CandidateSlots[e.ID] {
			xv, ok := mv.X[variables.XKey{ExamID: e.ID, SlotID: s}]
			if !ok {
				continue
			}
			for _, o := range examWindow(p, e.ID, s) {
				zv, ok := mv.Z[variables.XKey{ExamID: e.ID, SlotID: o}]
				if !ok {
					continue
				}
				m.AddImplication(model.Lit(xv), model.Lit(zv))
				count++
			}
		}
	}
	return c.record(count), nil
}

func (c *startFeasibility) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *startFeasibility) Evaluate(*problem.Problem, *solution.Solution) []Violation { return nil }

// --- 3. Occupancy-Definition -------------------------------------------------

// occupancyDefinition forbids z[e,o] from being true without at least one
// covering start having fired: NOT z OR start1 OR start2 OR ...
type occupancyDefinition struct{ baseModule }

func (c *occupancyDefinition) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		coveringStarts := make(map[domain.ID][]domain.ID) // occupied slot -> covering starts
		for _, s := range sv.CandidateSlots[e.ID] {
			for _, o := range examWindow(p, e.ID, s) {
				coveringStarts[o] = append(coveringStarts[o], s)
			}
		}
		for o, starts := range coveringStarts {
			zv, ok := mv.Z[variables.XKey{ExamID: e.ID, SlotID: o}]
			if !ok {
				continue
			}
			lits := []model.Literal{model.Not(zv)}
			for _, s := range starts {
				if xv, ok := mv.X[variables.XKey{ExamID: e.ID, SlotID: s}]; ok {
					lits = append(lits, model.Lit(xv))
				}
			}
			m.AddBoolOr(lits)
			count++
		}
	}
	return c.record(count), nil
}

func (c *occupancyDefinition) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *occupancyDefinition) Evaluate(*problem.Problem, *solution.Solution) []Violation { return nil }

// --- 4. Aggregate-Capacity ---------------------------------------------------

// aggregateCapacity bounds, per slot, the total enrollment of exams
// occupying it by the total exam capacity summed across every room
// available that slot — a cheap upper bound ahead of room assignment.
type aggregateCapacity struct{ baseModule }

func (c *aggregateCapacity) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	var totalCapacity int64
	for _, r := range p.Rooms() {
		totalCapacity += int64(r.ExamCapacity())
	}

	count := 0
	for _, slotID := range p.SlotsInChronologicalOrder() {
		var terms []model.LinearTerm
		for _, e := range p.Exams() {
			zv, ok := mv.Z[variables.XKey{ExamID: e.ID, SlotID: slotID}]
			if !ok {
				continue
			}
			terms = append(terms, model.LinearTerm{Var: zv, Coefficient: int64(e.ExpectedStudents)})
		}
		if len(terms) == 0 {
			continue
		}
		m.AddLinearLE(terms, totalCapacity)
		count++
	}
	return c.record(count), nil
}

func (c *aggregateCapacity) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *aggregateCapacity) Evaluate(*problem.Problem, *solution.Solution) []Violation { return nil }

// --- 5. Unified-Student-Conflict ---------------------------------------------

type unifiedStudentConflict struct{ baseModule }

func (c *unifiedStudentConflict) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for pair := range sv.ConflictPairs {
		for _, slotID := range p.SlotsInChronologicalOrder() {
			z1, ok1 := mv.Z[variables.XKey{ExamID: pair.A, SlotID: slotID}]
			z2, ok2 := mv.Z[variables.XKey{ExamID: pair.B, SlotID: slotID}]
			if !ok1 || !ok2 {
				continue
			}
			m.AddBoolOr([]model.Literal{model.Not(z1), model.Not(z2)})
			count++
		}
	}
	return c.record(count), nil
}

func (c *unifiedStudentConflict) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return nil
}

func (c *unifiedStudentConflict) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	slotOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	for _, a := range sol.Assignments {
		slotOf[a.ExamID] = a.SlotID
	}
	var out []Violation
	for pair := range p.ConflictPairs() {
		s1, ok1 := slotOf[pair.A]
		s2, ok2 := slotOf[pair.B]
		if !ok1 || !ok2 || s1 != s2 {
			continue
		}
		out = append(out, Violation{
			ConstraintID:  c.def.ID,
			Severity:      Critical,
			AffectedExams: []domain.ID{pair.A, pair.B},
			Description:   "exams sharing a normal-registered student were scheduled in the same slot",
			Penalty:       2,
		})
	}
	return out
}

// --- 6. Room-Assignment-Consistency ------------------------------------------

// roomAssignmentConsistency forces sum_r y[e,r,s] == x[e,s]: exactly one
// room is assigned at a started slot, none at an unstarted one.
type roomAssignmentConsistency struct{ baseModule }

func (c *roomAssignmentConsistency) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		for _, s := range sv.CandidateSlots[e.ID] {
			xv, ok := mv.X[variables.XKey{ExamID: e.ID, SlotID: s}]
			if !ok {
				continue
			}
			var terms []model.LinearTerm
			for _, r := range p.Rooms() {
				if yv, ok := mv.Y[variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: s}]; ok {
					terms = append(terms, model.LinearTerm{Var: yv, Coefficient: 1})
				}
			}
			terms = append(terms, model.LinearTerm{Var: xv, Coefficient: -1})
			m.AddLinearEQ(terms, 0)
			count++
		}
	}
	return c.record(count), nil
}

func (c *roomAssignmentConsistency) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return nil
}

func (c *roomAssignmentConsistency) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	var out []Violation
	for _, a := range sol.Assignments {
		if len(a.RoomIDs) != 1 {
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: Critical,
				AffectedExams: []domain.ID{a.ExamID},
				Description:   "started exam does not have exactly one assigned room",
				Penalty:       1,
			})
		}
	}
	return out
}

// --- 7. Room-Capacity-Hard ---------------------------------------------------

type roomCapacityHard struct{ baseModule }

func (c *roomCapacityHard) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, r := range p.Rooms() {
		roomCap := int64(r.ExamCapacity())
		for _, slotID := range p.SlotsInChronologicalOrder() {
			var terms []model.LinearTerm
			for _, e := range p.Exams() {
				yv, ok := mv.Y[variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: slotID}]
				if !ok {
					continue
				}
				terms = append(terms, model.LinearTerm{Var: yv, Coefficient: int64(e.ExpectedStudents)})
			}
			if len(terms) == 0 {
				continue
			}
			m.AddLinearLE(terms, roomCap)
			count++
		}
	}
	return c.record(count), nil
}

func (c *roomCapacityHard) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *roomCapacityHard) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	type roomSlot struct{ RoomID, SlotID domain.ID }
	load := make(map[roomSlot]uint32)
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
			load[roomSlot{RoomID: r, SlotID: a.SlotID}] += e.ExpectedStudents
		}
	}
	var out []Violation
	for rs, l := range load {
		room, ok := p.Room(rs.RoomID)
		if !ok || l <= room.ExamCapacity() {
			continue
		}
		out = append(out, Violation{
			ConstraintID: c.def.ID, Severity: High,
			AffectedResources: []domain.ID{rs.RoomID},
			Description:       "room capacity exceeded",
			Penalty:           float64(l - room.ExamCapacity()),
		})
	}
	return out
}

// --- 8. Room-Continuity ------------------------------------------------------

// roomContinuity links consecutive occupied slots of the same room choice:
// whichever room covers one occupied slot of a multi-slot exam must cover
// every other occupied slot too.
type roomContinuity struct{ baseModule }

func (c *roomContinuity) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		for _, s := range sv.CandidateSlots[e.ID] {
			window := examWindow(p, e.ID, s)
			if len(window) < 2 {
				continue
			}
			for i := 0; i < len(window)-1; i++ {
				o1, o2 := window[i], window[i+1]
				for _, r := range p.Rooms() {
					y1, ok1 := mv.Y[variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: o1}]
					y2, ok2 := mv.Y[variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: o2}]
					if !ok1 || !ok2 {
						continue
					}
					m.AddImplication(model.Lit(y1), model.Lit(y2))
					m.AddImplication(model.Lit(y2), model.Lit(y1))
					count += 2
				}
			}
		}
	}
	return c.record(count), nil
}

func (c *roomContinuity) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *roomContinuity) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation { return nil }

// --- 9. Invigilator-Requirement ----------------------------------------------

// invigilatorRequirement forces sum_i u[i,e,r,s] == required(e) * y[e,r,s].
type invigilatorRequirement struct{ baseModule }

func (c *invigilatorRequirement) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		required := int64(e.RequiredInvigilators())
		for _, s := range sv.CandidateSlots[e.ID] {
			for _, r := range p.Rooms() {
				yv, ok := mv.Y[variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: s}]
				if !ok {
					continue
				}
				var terms []model.LinearTerm
				for _, inv := range p.Invigilators() {
					if uv, ok := mv.U[variables.UKey{InvigilatorID: inv.ID, ExamID: e.ID, RoomID: r.ID, SlotID: s}]; ok {
						terms = append(terms, model.LinearTerm{Var: uv, Coefficient: 1})
					}
				}
				terms = append(terms, model.LinearTerm{Var: yv, Coefficient: -required})
				m.AddLinearEQ(terms, 0)
				count++
			}
		}
	}
	return c.record(count), nil
}

func (c *invigilatorRequirement) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return nil
}

func (c *invigilatorRequirement) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	examByID := make(map[domain.ID]*domain.Exam)
	for _, e := range p.Exams() {
		examByID[e.ID] = e
	}
	var out []Violation
	for _, a := range sol.Assignments {
		e, ok := examByID[a.ExamID]
		if !ok {
			continue
		}
		if len(a.InvigilatorIDs) != e.RequiredInvigilators() {
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: High,
				AffectedExams: []domain.ID{a.ExamID},
				Description:   "assigned invigilator count does not match requirement",
				Penalty:       1,
			})
		}
	}
	return out
}

// --- 10. Invigilator-Single-Presence -----------------------------------------

type invigilatorSinglePresence struct{ baseModule }

func (c *invigilatorSinglePresence) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, inv := range p.Invigilators() {
		limit := int64(inv.MaxConcurrentExams)
		if limit <= 0 {
			limit = 1
		}
		for _, slotID := range p.SlotsInChronologicalOrder() {
			var terms []model.LinearTerm
			for _, e := range p.Exams() {
				for _, r := range p.Rooms() {
					uv, ok := mv.U[variables.UKey{InvigilatorID: inv.ID, ExamID: e.ID, RoomID: r.ID, SlotID: slotID}]
					if !ok {
						continue
					}
					terms = append(terms, model.LinearTerm{Var: uv, Coefficient: 1})
				}
			}
			if len(terms) == 0 {
				continue
			}
			m.AddLinearLE(terms, limit)
			count++
		}
	}
	return c.record(count), nil
}

func (c *invigilatorSinglePresence) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return nil
}

func (c *invigilatorSinglePresence) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	type invSlot struct {
		InvigilatorID, SlotID domain.ID
	}
	count := make(map[invSlot]int)
	invByID := make(map[domain.ID]*domain.Invigilator)
	for _, inv := range p.Invigilators() {
		invByID[inv.ID] = inv
	}
	for _, a := range sol.Assignments {
		for _, invID := range a.InvigilatorIDs {
			count[invSlot{InvigilatorID: invID, SlotID: a.SlotID}]++
		}
	}
	var out []Violation
	for is, n := range count {
		inv, ok := invByID[is.InvigilatorID]
		limit := 1
		if ok && inv.MaxConcurrentExams > 0 {
			limit = int(inv.MaxConcurrentExams)
		}
		if n > limit {
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: High,
				AffectedResources: []domain.ID{is.InvigilatorID},
				Description:       "invigilator exceeds concurrent-exam limit",
				Penalty:           float64(n - limit),
			})
		}
	}
	return out
}

// --- 11. Invigilator-Continuity ----------------------------------------------

type invigilatorContinuity struct{ baseModule }

func (c *invigilatorContinuity) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	count := 0
	for _, e := range p.Exams() {
		for _, s := range sv.CandidateSlots[e.ID] {
			window := examWindow(p, e.ID, s)
			if len(window) < 2 {
				continue
			}
			for i := 0; i < len(window)-1; i++ {
				o1, o2 := window[i], window[i+1]
				for _, r := range p.Rooms() {
					for _, inv := range p.Invigilators() {
						u1, ok1 := mv.U[variables.UKey{InvigilatorID: inv.ID, ExamID: e.ID, RoomID: r.ID, SlotID: o1}]
						u2, ok2 := mv.U[variables.UKey{InvigilatorID: inv.ID, ExamID: e.ID, RoomID: r.ID, SlotID: o2}]
						if !ok1 || !ok2 {
							continue
						}
						m.AddImplication(model.Lit(u1), model.Lit(u2))
						m.AddImplication(model.Lit(u2), model.Lit(u1))
						count += 2
					}
				}
			}
		}
	}
	return c.record(count), nil
}

func (c *invigilatorContinuity) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return nil
}

func (c *invigilatorContinuity) Evaluate(*problem.Problem, *solution.Solution) []Violation { return nil }
