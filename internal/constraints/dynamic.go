package constraints

import (
	"fmt"

	"examtt/internal/domain"
	"examtt/internal/model"
	"examtt/internal/problem"
	"examtt/internal/solution"
	"examtt/internal/variables"
)

// NewDynamicDefinitions returns the five HITL-configurable soft constraints
// (spec.md §4.4). Each carries an editable weight and, where noted, an
// editable parameter; an admin may disable any of them without affecting
// the core eleven.
func NewDynamicDefinitions() []ConstraintDefinition {
	defs := []ConstraintDefinition{
		{ID: "carryover-priority", Name: "Carryover Priority", Type: Soft, Category: CategoryAcademic, Enabled: true, Mutability: Editable, Weight: 3.0,
			Description: "Discourages, without forbidding, scheduling two exams that share only carryover students in the same slot."},
		{ID: "exam-distribution", Name: "Exam Distribution", Type: Soft, Category: CategoryTemporal, Enabled: true, Mutability: Editable, Weight: 2.0,
			Description: "Discourages scheduling a student's exams on the same day when they could be spread out."},
		{ID: "room-utilization", Name: "Room Utilization", Type: Soft, Category: CategoryOptimization, Enabled: true, Mutability: Editable, Weight: 1.0,
			Description: "Rewards matching exam size to room size, reducing wasted capacity."},
		{ID: "staff-load-balance", Name: "Staff Load Balance", Type: Soft, Category: CategoryWorkloadBalance, Enabled: true, Mutability: Editable, Weight: 1.0,
			Parameters: []ParameterDef{
				{Key: "slack", Type: "int", Value: 2, Default: 2, Description: "Slots an invigilator may exceed fair share by before being capped."},
			},
			Description: "Bounds how far any one invigilator's total load may exceed an equal split of demand."},
		{ID: "preference-slots", Name: "Preference Slots", Type: Soft, Category: CategoryOptimization, Enabled: true, Mutability: Editable, Weight: 1.0,
			Description: "Rewards scheduling exams toward the earlier end of their candidate window, leaving slack later in the session."},
	}
	factories := map[string]func(ConstraintDefinition) Module{
		"carryover-priority": func(d ConstraintDefinition) Module { return &carryoverPriority{baseModule: baseModule{def: d}} },
		"exam-distribution":  func(d ConstraintDefinition) Module { return &examDistribution{baseModule: baseModule{def: d}} },
		"room-utilization":   func(d ConstraintDefinition) Module { return &roomUtilization{baseModule: baseModule{def: d}} },
		"staff-load-balance": func(d ConstraintDefinition) Module { return &staffLoadBalance{baseModule: baseModule{def: d}} },
		"preference-slots":   func(d ConstraintDefinition) Module { return &preferenceSlots{baseModule: baseModule{def: d}} },
	}
	for i := range defs {
		defs[i].factory = factories[defs[i].ID]
	}
	return defs
}

// reifyAnd creates a fresh boolean forced to 1 whenever both a and b are 1
// (and free to fall to 0 otherwise, which the objective will prefer when
// penalized). Shared by the soft constraints below that need the AND of
// two existing booleans as a single objective term.
func reifyAnd(m model.ConstraintModel, name string, a, b model.VarID) model.VarID {
	v := m.NewBoolVar(name)
	m.AddImplication(model.Lit(v), model.Lit(a))
	m.AddImplication(model.Lit(v), model.Lit(b))
	m.AddBoolOr([]model.Literal{model.Not(a), model.Not(b), model.Lit(v)})
	return v
}

// --- Carryover-Priority -------------------------------------------------

type carryoverPriority struct {
	baseModule
	terms []model.LinearTerm
}

func (c *carryoverPriority) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	if !c.def.Enabled {
		return c.record(0), nil
	}
	count := 0
	exams := p.Exams()
	for i, e1 := range exams {
		for j := i + 1; j < len(exams); j++ {
			e2 := exams[j]
			if !p.SharesOnlyCarryover(e1.ID, e2.ID) {
				continue
			}
			for _, slotID := range p.SlotsInChronologicalOrder() {
				z1, ok1 := mv.Z[variables.XKey{ExamID: e1.ID, SlotID: slotID}]
				z2, ok2 := mv.Z[variables.XKey{ExamID: e2.ID, SlotID: slotID}]
				if !ok1 || !ok2 {
					continue
				}
				v := reifyAnd(m, fmt.Sprintf("carryover_overlap[%s,%s,%s]", e1.ID, e2.ID, slotID), z1, z2)
				c.terms = append(c.terms, model.LinearTerm{Var: v, Coefficient: -1})
				count++
			}
		}
	}
	return c.record(count), nil
}

func (c *carryoverPriority) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return scaleTerms(c.terms, c.def.Weight)
}

func (c *carryoverPriority) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	slotOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	for _, a := range sol.Assignments {
		slotOf[a.ExamID] = a.SlotID
	}
	var out []Violation
	exams := p.Exams()
	for i, e1 := range exams {
		for j := i + 1; j < len(exams); j++ {
			e2 := exams[j]
			if !p.SharesOnlyCarryover(e1.ID, e2.ID) {
				continue
			}
			s1, ok1 := slotOf[e1.ID]
			s2, ok2 := slotOf[e2.ID]
			if !ok1 || !ok2 || s1 != s2 {
				continue
			}
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: Medium,
				AffectedExams: []domain.ID{e1.ID, e2.ID},
				Description:   "exams sharing only carryover students were scheduled in the same slot",
				Penalty:       c.def.Weight,
			})
		}
	}
	return out
}

// --- Exam-Distribution ----------------------------------------------------

// examDistribution discourages spreading a student's (normal-conflicting)
// exam pairs across the same day even when they land in different slots,
// so students rarely sit two exams in one day.
type examDistribution struct {
	baseModule
	terms []model.LinearTerm
}

func dayOccupancy(m model.ConstraintModel, name string, zVars []model.VarID) model.VarID {
	v := m.NewBoolVar(name)
	lits := []model.Literal{model.Not(v)}
	for _, z := range zVars {
		m.AddImplication(model.Lit(z), model.Lit(v))
		lits = append(lits, model.Lit(z))
	}
	m.AddBoolOr(lits)
	return v
}

func (c *examDistribution) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	if !c.def.Enabled {
		return c.record(0), nil
	}
	count := 0
	dayOf := make(map[compositeKey]model.VarID)
	examDayVar := func(examID, dayID domain.ID) (model.VarID, bool) {
		key := compositeKey(examID.String() + "|" + dayID.String())
		if v, ok := dayOf[key]; ok {
			return v, true
		}
		var zVars []model.VarID
		for _, slotID := range sv.DaySlotGroupings[dayID] {
			if z, ok := mv.Z[variables.XKey{ExamID: examID, SlotID: slotID}]; ok {
				zVars = append(zVars, z)
			}
		}
		if len(zVars) == 0 {
			return 0, false
		}
		v := dayOccupancy(m, fmt.Sprintf("occupies_day[%s,%s]", examID, dayID), zVars)
		dayOf[key] = v
		return v, true
	}

	for _, e1 := range p.Exams() {
		for e2ID := range p.ExamNeighbors(e1.ID) {
			if e1.ID.String() >= e2ID.String() {
				continue // each pair considered once
			}
			for _, d := range p.Days() {
				v1, ok1 := examDayVar(e1.ID, d.ID)
				v2, ok2 := examDayVar(e2ID, d.ID)
				if !ok1 || !ok2 {
					continue
				}
				pairVar := reifyAnd(m, fmt.Sprintf("same_day[%s,%s,%s]", e1.ID, e2ID, d.ID), v1, v2)
				c.terms = append(c.terms, model.LinearTerm{Var: pairVar, Coefficient: -1})
				count++
			}
		}
	}
	return c.record(count), nil
}

func (c *examDistribution) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return scaleTerms(c.terms, c.def.Weight)
}

func (c *examDistribution) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	dayOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	for _, a := range sol.Assignments {
		dayOf[a.ExamID] = a.DayID
	}
	var out []Violation
	for _, e1 := range p.Exams() {
		for e2ID := range p.ExamNeighbors(e1.ID) {
			if e1.ID.String() >= e2ID.String() {
				continue
			}
			d1, ok1 := dayOf[e1.ID]
			d2, ok2 := dayOf[e2ID]
			if !ok1 || !ok2 || d1 != d2 {
				continue
			}
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: Low,
				AffectedExams: []domain.ID{e1.ID, e2ID},
				Description:   "student has two exams scheduled on the same day",
				Penalty:       c.def.Weight,
			})
		}
	}
	return out
}

// --- Room-Utilization ------------------------------------------------------

// roomUtilization rewards placing an exam in a room whose capacity closely
// matches its expected enrollment, discouraging a small exam from
// monopolizing a large room.
type roomUtilization struct {
	baseModule
	terms []model.LinearTerm
}

// fitScore scales to an integer so it composes with LinearTerm's int64
// coefficients; 100 keeps two decimal digits of precision on the ratio.
func fitScore(expected, roomCapacity uint32) int64 {
	if roomCapacity == 0 {
		return 0
	}
	ratio := float64(expected) / float64(roomCapacity)
	if ratio > 1 {
		ratio = 1
	}
	return int64(ratio * 100)
}

func (c *roomUtilization) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	if !c.def.Enabled {
		return c.record(0), nil
	}
	examByID := make(map[domain.ID]*domain.Exam)
	for _, e := range p.Exams() {
		examByID[e.ID] = e
	}
	count := 0
	for k, v := range mv.Y {
		e, ok := examByID[k.ExamID]
		if !ok {
			continue
		}
		room, ok := p.Room(k.RoomID)
		if !ok {
			continue
		}
		c.terms = append(c.terms, model.LinearTerm{Var: v, Coefficient: fitScore(e.ExpectedStudents, room.ExamCapacity())})
		count++
	}
	return c.record(count), nil
}

func (c *roomUtilization) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm {
	return scaleTerms(c.terms, c.def.Weight)
}

func (c *roomUtilization) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
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
		for _, rID := range a.RoomIDs {
			r, ok := p.Room(rID)
			if !ok || r.ExamCapacity() == 0 {
				continue
			}
			fit := float64(e.ExpectedStudents) / float64(r.ExamCapacity())
			if fit < 0.5 {
				out = append(out, Violation{
					ConstraintID: c.def.ID, Severity: Low,
					AffectedExams:     []domain.ID{a.ExamID},
					AffectedResources: []domain.ID{rID},
					Description:       "exam uses less than half of its assigned room's capacity",
					Penalty:           c.def.Weight * (1 - fit),
				})
			}
		}
	}
	return out
}

// --- Staff-Load-Balance -----------------------------------------------------

// staffLoadBalance caps each invigilator's total assigned slots at a fair
// share of total demand plus a configurable slack, so load spreads evenly
// rather than piling onto whichever invigilator the solver reaches first.
type staffLoadBalance struct{ baseModule }

func (c *staffLoadBalance) AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error) {
	if !c.def.Enabled {
		return c.record(0), nil
	}
	invigilators := p.Invigilators()
	if len(invigilators) == 0 {
		return c.record(0), nil
	}

	var totalDemand int64
	for _, e := range p.Exams() {
		totalDemand += int64(e.RequiredInvigilators()) * int64(len(sv.CandidateSlots[e.ID]))
	}
	fairShare := totalDemand / int64(len(invigilators))
	slack := int64(c.def.GetParameter("slack", 2).(int))

	count := 0
	for _, inv := range invigilators {
		var terms []model.LinearTerm
		for k, v := range mv.U {
			if k.InvigilatorID != inv.ID {
				continue
			}
			terms = append(terms, model.LinearTerm{Var: v, Coefficient: 1})
		}
		if len(terms) == 0 {
			continue
		}
		m.AddLinearLE(terms, fairShare+slack)
		count++
	}
	return c.record(count), nil
}

func (c *staffLoadBalance) ObjectiveTerms(*variables.SharedVariables, *ModelVars) []model.LinearTerm { return nil }

func (c *staffLoadBalance) Evaluate(p *problem.Problem, sol *solution.Solution) []Violation {
	load := make(map[domain.ID]int)
	for _, a := range sol.Assignments {
		for _, invID := range a.InvigilatorIDs {
			load[invID]++
		}
	}
	invigilators := p.Invigilators()
	if len(invigilators) == 0 {
		return nil
	}
	total := 0
	for _, n := range load {
		total += n
	}
	fairShare := float64(total) / float64(len(invigilators))
	slack := c.def.GetParameter("slack", 2).(int)

	var out []Violation
	for _, inv := range invigilators {
		n := load[inv.ID]
		if float64(n) > fairShare+float64(slack) {
			out = append(out, Violation{
				ConstraintID: c.def.ID, Severity: Low,
				AffectedResources: []domain.ID{inv.ID},
				Description:       "invigilator load exceeds fair share by more than the configured slack",
				Penalty:           c.def.Weight * (float64(n) - fairShare),
			})
		}
	}
	return out
}

// --- Preference-Slots --------------------------------------------------------

// preferenceSlots rewards scheduling an exam toward the earlier end of its
// candidate window, leaving later slots free for contingency rescheduling.
type preferenceSlots struct{ baseModule }

func (c *preferenceSlots) AddConstraints(*problem.Problem, *variables.SharedVariables, *ModelVars, model.ConstraintModel) (int, error) {
	return c.record(0), nil
}

func (c *preferenceSlots) ObjectiveTerms(sv *variables.SharedVariables, mv *ModelVars) []model.LinearTerm {
	if !c.def.Enabled {
		return nil
	}
	var terms []model.LinearTerm
	for examID, candidates := range sv.CandidateSlots {
		n := len(candidates)
		if n == 0 {
			continue
		}
		for rank, slotID := range candidates {
			xv, ok := mv.X[variables.XKey{ExamID: examID, SlotID: slotID}]
			if !ok {
				continue
			}
			// Earlier ranks score higher; scaled to keep coefficients small
			// integers since LinearTerm coefficients are int64.
			score := int64(n - rank)
			terms = append(terms, model.LinearTerm{Var: xv, Coefficient: int64(c.def.Weight) * score})
		}
	}
	return terms
}

func (c *preferenceSlots) Evaluate(*problem.Problem, *solution.Solution) []Violation { return nil }

// scaleTerms applies weight to every term's coefficient, rounding toward
// zero; callers build unweighted +/-1 terms and this applies the
// constraint's configured weight once, in one place.
func scaleTerms(terms []model.LinearTerm, weight float64) []model.LinearTerm {
	if len(terms) == 0 {
		return nil
	}
	out := make([]model.LinearTerm, len(terms))
	for i, t := range terms {
		out[i] = model.LinearTerm{Var: t.Var, Coefficient: int64(float64(t.Coefficient) * weight)}
	}
	return out
}

// compositeKey lets examDistribution use a single string-keyed map for
// (exam,day) pairs without a dedicated struct.
type compositeKey string
