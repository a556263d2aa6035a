package gafilter

import (
	"sort"

	"examtt/internal/domain"
	"examtt/internal/problem"
	"examtt/internal/variables"
)

// roomSlotTuple identifies one (exam, room, slot) candidate the filter can
// score and retain or drop.
type roomSlotTuple struct {
	ExamID domain.ID
	RoomID domain.ID
	SlotID domain.ID
}

type scoredTuple struct {
	tuple roomSlotTuple
	score float64
}

// roomFit is 1.0 when the room comfortably seats the exam, degrading
// linearly as the room's exam capacity falls short of expected enrollment,
// and 0 when the room is outright incompatible (spec.md §4.3's "1.0 for
// unconstrained, 0.0 for disallowed, linear-interpolated otherwise").
func roomFit(e *domain.Exam, r *domain.Room) float64 {
	if !variables.RoomCompatible(e, r) {
		return 0
	}
	roomCap := float64(r.ExamCapacity())
	need := float64(e.ExpectedStudents)
	if need <= 0 || roomCap >= need {
		return 1.0
	}
	return roomCap / need
}

// slotFit is 1.0 for an exam's earliest candidate slot, degrading linearly
// to 0.5 at its latest candidate slot (a mild preference for scheduling
// exams earlier in the session, to leave slack for makeups), and 0 for a
// slot outside the exam's candidate set entirely.
func slotFit(candidates []domain.ID, slotID domain.ID) float64 {
	idx := -1
	for i, s := range candidates {
		if s == slotID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0
	}
	if len(candidates) <= 1 {
		return 1.0
	}
	frac := float64(idx) / float64(len(candidates)-1)
	return 1.0 - 0.5*frac
}

// scoreAllTuples evaluates every candidate (e,r,s) tuple under chromosome c,
// per spec.md §4.3.2.a: tree[e].eval(terminals[e]) × room_fit × slot_fit.
func scoreAllTuples(p *problem.Problem, terminals *ExamTerminals, rooms []*domain.Room, c Chromosome) []scoredTuple {
	var out []scoredTuple
	for _, e := range p.Exams() {
		tree, ok := c.Trees[e.ID]
		if !ok {
			continue
		}
		priority := tree.Eval(terminals.Values[e.ID])
		candidates := terminals.CandidateSlots[e.ID]
		for _, r := range rooms {
			rf := roomFit(e, r)
			if rf == 0 {
				continue
			}
			for _, s := range candidates {
				sf := slotFit(candidates, s)
				if sf == 0 {
					continue
				}
				out = append(out, scoredTuple{
					tuple: roomSlotTuple{ExamID: e.ID, RoomID: r.ID, SlotID: s},
					score: priority * rf * sf,
				})
			}
		}
	}
	return out
}

// retainTop keeps the highest-scoring floor(threshold*len(scored)) tuples,
// then restores any exam that lost every one of its tuples by re-adding its
// single best-scoring tuple (spec.md §4.3's "the filter never removes an
// exam's last viable room/slot").
func retainTop(p *problem.Problem, scored []scoredTuple, threshold float64) map[roomSlotTuple]bool {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	k := int(float64(len(scored)) * threshold)
	if k < 0 {
		k = 0
	}
	if k > len(scored) {
		k = len(scored)
	}

	retained := make(map[roomSlotTuple]bool, k)
	for i := 0; i < k; i++ {
		retained[scored[i].tuple] = true
	}

	bestPerExam := make(map[domain.ID]roomSlotTuple)
	bestScorePerExam := make(map[domain.ID]float64)
	coveredExams := make(map[domain.ID]bool)
	for _, st := range scored {
		ex := st.tuple.ExamID
		if retained[st.tuple] {
			coveredExams[ex] = true
		}
		if prev, ok := bestScorePerExam[ex]; !ok || st.score > prev {
			bestScorePerExam[ex] = st.score
			bestPerExam[ex] = st.tuple
		}
	}
	for _, e := range p.Exams() {
		if coveredExams[e.ID] {
			continue
		}
		if t, ok := bestPerExam[e.ID]; ok {
			retained[t] = true
		}
	}
	return retained
}

// intersectTuples returns the tuples present in both sets, the accumulator
// step behind GenerationRetainedCounts: intersecting into a running set can
// only shrink or preserve its size, never grow it.
func intersectTuples(a, b map[roomSlotTuple]bool) map[roomSlotTuple]bool {
	out := make(map[roomSlotTuple]bool)
	for t := range a {
		if b[t] {
			out[t] = true
		}
	}
	return out
}

// coverageFraction measures the natural (pre-floor) fraction of exams that
// retained at least one tuple, used as a fitness term (spec.md §4.3.2.d.ii).
func coverageFraction(p *problem.Problem, scored []scoredTuple, threshold float64) float64 {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	k := int(float64(len(scored)) * threshold)
	if k > len(scored) {
		k = len(scored)
	}
	covered := make(map[domain.ID]bool)
	for i := 0; i < k; i++ {
		covered[scored[i].tuple.ExamID] = true
	}
	total := len(p.Exams())
	if total == 0 {
		return 1.0
	}
	return float64(len(covered)) / float64(total)
}

// feasibilityEstimate is a cheap proxy for "would a real solve likely
// succeed over this retained set": the fraction of (room,slot) pairs in the
// retained set whose cumulative expected enrollment does not exceed the
// room's exam capacity (spec.md §4.3.2.d.i).
func feasibilityEstimate(p *problem.Problem, retained map[roomSlotTuple]bool) float64 {
	type roomSlot struct {
		RoomID domain.ID
		SlotID domain.ID
	}
	load := make(map[roomSlot]float64)
	capacity := make(map[domain.ID]float64)
	for _, r := range p.Rooms() {
		capacity[r.ID] = float64(r.ExamCapacity())
	}
	examByID := make(map[domain.ID]*domain.Exam)
	for _, e := range p.Exams() {
		examByID[e.ID] = e
	}

	overflow := 0
	total := 0
	for t := range retained {
		rs := roomSlot{RoomID: t.RoomID, SlotID: t.SlotID}
		if e, ok := examByID[t.ExamID]; ok {
			load[rs] += float64(e.ExpectedStudents)
		}
	}
	for rs, l := range load {
		total++
		if l > capacity[rs.RoomID] {
			overflow++
		}
	}
	if total == 0 {
		return 1.0
	}
	return 1.0 - float64(overflow)/float64(total)
}

// diversityScore penalizes a chromosome whose priority trees have collapsed
// to duplicates of one another, which would rank every exam identically.
func diversityScore(c Chromosome) float64 {
	if len(c.Trees) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(c.Trees))
	for _, t := range c.Trees {
		seen[t.String()] = true
	}
	return float64(len(seen)) / float64(len(c.Trees))
}

const (
	weightFeasibility = 0.5
	weightCoverage    = 0.3
	weightDiversity   = 0.2
)

// fitness combines the three terms spec.md §4.3.2.d names, weighted as
// documented in DESIGN.md's Open Question decisions.
func fitness(p *problem.Problem, terminals *ExamTerminals, rooms []*domain.Room, retentionThreshold float64, c Chromosome) float64 {
	scored := scoreAllTuples(p, terminals, rooms, c)
	retained := retainTop(p, scored, retentionThreshold)
	return weightFeasibility*feasibilityEstimate(p, retained) +
		weightCoverage*coverageFraction(p, scored, retentionThreshold) +
		weightDiversity*diversityScore(c)
}
