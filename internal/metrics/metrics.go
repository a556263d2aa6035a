// Package metrics implements the quality and performance scoring spec.md
// §4.6 names, supplemented with the richer breakdown
// scheduling_engine/core/metrics.py tracked before distillation.
package metrics

import (
	"time"

	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/solution"
)

// severityWeight maps a detected conflict's severity to the penalty
// weight spec.md §4.6's "violations_weighted" term sums over.
func severityWeight(sev solution.Severity) float64 {
	switch sev {
	case solution.SeverityCritical:
		return 10
	case solution.SeverityHigh:
		return 5
	case solution.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// QualityScore is spec.md §4.6's total_score/feasibility/completion
// triple, extended with the non-breaking breakdown fields
// scheduling_engine/core/metrics.py's QualityScore tracked (spec.md §10
// supplement): constraint-satisfaction and resource-utilization scores, a
// conflict count, and per-soft-constraint penalties. The original's
// rolling evaluation history is not carried over.
type QualityScore struct {
	TotalScore           float64
	FeasibilityScore     float64
	CompletionPercentage float64
	RoomUtilization      float64
	StudentSatisfaction  float64

	ConstraintSatisfactionScore float64
	ResourceUtilizationScore    float64
	ConflictCount               int
	SoftConstraintPenalties     map[string]float64
}

// Weights lets a caller override spec.md §4.6's default 0.7/0.3 total-
// score blend.
type Weights struct {
	Completion  float64
	Feasibility float64
}

// DefaultWeights returns spec.md §4.6's named default.
func DefaultWeights() Weights { return Weights{Completion: 0.7, Feasibility: 0.3} }

// Compute evaluates a solution against its problem. conflicts should come
// from internal/conflict.Detect; softPenalties maps each enabled soft
// constraint's ID to the total penalty its Evaluate reported, letting the
// compiler stay decoupled from this package.
func Compute(p *problem.Problem, sol *solution.Solution, conflicts []solution.ConflictReport, softPenalties map[string]float64, w Weights) QualityScore {
	q := QualityScore{SoftConstraintPenalties: softPenalties, ConflictCount: len(conflicts)}

	q.CompletionPercentage = completionPercentage(p, sol)
	q.FeasibilityScore = feasibilityScore(p, conflicts)
	q.RoomUtilization = roomUtilization(p, sol)
	q.StudentSatisfaction = studentSatisfaction(p, sol)
	q.ConstraintSatisfactionScore = constraintSatisfactionScore(p, conflicts)
	q.ResourceUtilizationScore = resourceUtilizationScore(q.RoomUtilization)

	q.TotalScore = w.Completion*q.CompletionPercentage + w.Feasibility*q.FeasibilityScore
	return q
}

func completionPercentage(p *problem.Problem, sol *solution.Solution) float64 {
	total := len(p.Exams())
	if total == 0 {
		return 100
	}
	assigned := make(map[domain.ID]bool, len(sol.Assignments))
	for _, a := range sol.Assignments {
		assigned[a.ExamID] = true
	}
	return float64(len(assigned)) / float64(total) * 100
}

func feasibilityScore(p *problem.Problem, conflicts []solution.ConflictReport) float64 {
	maxViolations := float64(len(p.Exams()))
	if maxViolations == 0 {
		return 100
	}
	var weighted float64
	for _, c := range conflicts {
		weighted += severityWeight(c.Severity)
	}
	ratio := weighted / maxViolations
	if ratio > 1 {
		ratio = 1
	}
	return 100 * (1 - ratio)
}

func roomUtilization(p *problem.Problem, sol *solution.Solution) float64 {
	var totalCapacity float64
	for _, r := range p.Rooms() {
		totalCapacity += float64(r.ExamCapacity())
	}
	if totalCapacity == 0 {
		return 0
	}
	examByID := make(map[domain.ID]*domain.Exam)
	for _, e := range p.Exams() {
		examByID[e.ID] = e
	}
	var used float64
	for _, a := range sol.Assignments {
		e, ok := examByID[a.ExamID]
		if !ok {
			continue
		}
		used += float64(e.ExpectedStudents) * float64(len(a.RoomIDs))
	}
	return used / totalCapacity
}

// studentSatisfaction follows spec.md §4.6's
// `1 − 0.5×same_day_exam_pairs − 0.2×(1−preferred_slot_fraction)`, with
// preferred_slot_fraction read as the fraction of the student's exams
// scheduled in one of the first two chronological slots of the whole exam
// period, since the domain model carries no explicit student slot
// preference.
func studentSatisfaction(p *problem.Problem, sol *solution.Solution) float64 {
	dayOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	slotOf := make(map[domain.ID]domain.ID, len(sol.Assignments))
	for _, a := range sol.Assignments {
		dayOf[a.ExamID] = a.DayID
		slotOf[a.ExamID] = a.SlotID
	}

	examsByStudent := make(map[domain.ID][]domain.ID)
	for _, e := range p.Exams() {
		for studentID := range e.Students {
			examsByStudent[studentID] = append(examsByStudent[studentID], e.ID)
		}
	}
	if len(examsByStudent) == 0 {
		return 1
	}
	allSlots := p.SlotsInChronologicalOrder()
	var earlyThreshold uint32
	if len(allSlots) > 0 {
		earlyThreshold = p.SlotOrder(allSlots[0]) + 1
	}

	var total float64
	for _, exams := range examsByStudent {
		sat := 1.0
		sameDayPairs := 0
		for i := 0; i < len(exams); i++ {
			for j := i + 1; j < len(exams); j++ {
				d1, ok1 := dayOf[exams[i]]
				d2, ok2 := dayOf[exams[j]]
				if ok1 && ok2 && d1 == d2 {
					sameDayPairs++
				}
			}
		}
		sat -= 0.5 * float64(sameDayPairs)

		var earlySlots int
		for _, examID := range exams {
			s, ok := slotOf[examID]
			if !ok {
				continue
			}
			if p.SlotOrder(s) <= earlyThreshold {
				earlySlots++
			}
		}
		preferredFraction := 0.0
		if len(exams) > 0 {
			preferredFraction = float64(earlySlots) / float64(len(exams))
		}
		sat -= 0.2 * (1 - preferredFraction)

		if sat < 0 {
			sat = 0
		}
		total += sat
	}
	return total / float64(len(examsByStudent))
}

func constraintSatisfactionScore(p *problem.Problem, conflicts []solution.ConflictReport) float64 {
	if len(conflicts) == 0 {
		return 1
	}
	var totalPenalty float64
	for _, c := range conflicts {
		totalPenalty += severityWeight(c.Severity)
	}
	maxPenalty := float64(len(p.Exams())) * 10
	if maxPenalty == 0 {
		return 1
	}
	score := 1 - totalPenalty/maxPenalty
	if score < 0 {
		return 0
	}
	return score
}

// resourceUtilizationScore rewards room utilization near a fixed 0.8
// target rather than maximal packing, matching the original's
// "distance from an 0.8 target" shape.
func resourceUtilizationScore(roomUtil float64) float64 {
	const target = 0.8
	diff := roomUtil - target
	if diff < 0 {
		diff = -diff
	}
	score := 1 - diff
	if score < 0 {
		return 0
	}
	return score
}

// PerformanceMetrics is the per-phase runtime/convergence telemetry
// scheduling_engine/core/metrics.py's PerformanceMetrics tracked (spec.md
// §10 supplement), reexpressed with time.Duration instead of float
// seconds. internal/telemetry exports these as Prometheus gauges.
type PerformanceMetrics struct {
	Phase1Runtime        time.Duration
	Phase2Runtime        time.Duration
	TotalRuntime         time.Duration
	GenerationsToBest    int
	TotalGenerations     int
	ConvergenceStability float64
	InitialQuality       float64
	FinalQuality         float64
}

// QualityImprovement is the delta FinalQuality made over InitialQuality.
func (pm PerformanceMetrics) QualityImprovement() float64 {
	return pm.FinalQuality - pm.InitialQuality
}
