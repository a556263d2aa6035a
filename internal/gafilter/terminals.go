package gafilter

import (
	"examtt/internal/domain"
	"examtt/internal/gafilter/gptree"
	"examtt/internal/problem"
	"examtt/internal/variables"
)

// ExamTerminals holds the precomputed, per-exam scalar inputs a priority
// tree reads as leaves (spec.md §4.3's terminal set). Computed once per
// Problem and reused across the whole GA run, since none of them depend on
// the current population.
type ExamTerminals struct {
	CandidateSlots map[domain.ID][]domain.ID
	Values         map[domain.ID]gptree.Context
}

// BuildTerminals derives ES/PT/W/DD/WL/maxWL/NPREC/NSUC/WLPREC/WLSUC for
// every exam in p. ES and DD come from the candidate-slot window computed
// by internal/variables (earliest and latest feasible slot); WL is modeled
// as expected enrollment, since that is what actually drives resource
// pressure in an exam-scheduling problem (as opposed to a job-shop's
// machine-time workload, which the GP terminal set is otherwise borrowed
// from); NPREC/NSUC/WLPREC/WLSUC walk the prerequisite DAG rather than the
// (undirected) conflict graph, since only prerequisites impose an ordering.
func BuildTerminals(p *problem.Problem) *ExamTerminals {
	exams := p.Exams()
	candidateSlots := make(map[domain.ID][]domain.ID, len(exams))
	for _, e := range exams {
		candidateSlots[e.ID] = variables.CandidateSlotsForExam(p, e)
	}

	successors := make(map[domain.ID]map[domain.ID]bool)
	for _, e := range exams {
		for predID := range e.PrerequisiteExams {
			if successors[predID] == nil {
				successors[predID] = make(map[domain.ID]bool)
			}
			successors[predID][e.ID] = true
		}
	}

	workload := make(map[domain.ID]float64, len(exams))
	var maxWL float64
	for _, e := range exams {
		w := float64(e.ExpectedStudents)
		workload[e.ID] = w
		if w > maxWL {
			maxWL = w
		}
	}

	values := make(map[domain.ID]gptree.Context, len(exams))
	for _, e := range exams {
		slots := candidateSlots[e.ID]
		var es, dd float64
		if len(slots) > 0 {
			es = float64(p.SlotOrder(slots[0]))
			dd = float64(p.SlotOrder(slots[len(slots)-1]))
		}

		var wlprec, wlsucc float64
		for predID := range e.PrerequisiteExams {
			wlprec += workload[predID]
		}
		for succID := range successors[e.ID] {
			wlsucc += workload[succID]
		}

		values[e.ID] = gptree.Context{
			gptree.ES:     es,
			gptree.PT:     float64(e.DurationMinutes),
			gptree.W:      float64(e.Weight),
			gptree.DD:     dd,
			gptree.WL:     workload[e.ID],
			gptree.MaxWL:  maxWL,
			gptree.NPrec:  float64(len(e.PrerequisiteExams)),
			gptree.NSucc:  float64(len(successors[e.ID])),
			gptree.WLPrec: wlprec,
			gptree.WLSucc: wlsucc,
		}
	}

	return &ExamTerminals{CandidateSlots: candidateSlots, Values: values}
}
