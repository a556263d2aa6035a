// Package gafilter implements the GA front-filter (spec.md §4.3): it
// shrinks the y/u variable Cartesian product to a retained subset and
// produces ranked search hints for phase 1 of the orchestrator, instantiating
// the shared internal/ga engine over a per-exam-priority-tree chromosome.
package gafilter

import (
	"context"
	"math"
	"sort"

	"examtt/internal/domain"
	"examtt/internal/ga"
	"examtt/internal/problem"
	"examtt/internal/variables"
)

// Config mirrors spec.md §4.3's tunables, with the defaults it names.
type Config struct {
	PoolSize          int     // P, default 25-50
	Generations       int     // G, default 8-20
	MinTreeDepth      int     // ramped half-and-half lower bound
	MaxTreeDepth      int     // D, default 5-7
	RetentionThreshold float64 // default 0.3-0.5
	TournamentSize    int     // default 3-5
	CrossoverRate     float64 // default 0.8-0.9
	MutationRate      float64 // default 0.1-0.2
	EliteFraction     float64 // E, default 0.1-0.15
	ConvergenceWindow int     // generations of near-flat best-fitness to stop early
	ConvergenceEps    float64
	Seed              int64
}

// DefaultConfig returns the mid-range defaults spec.md §4.3 names.
func DefaultConfig() Config {
	return Config{
		PoolSize:           35,
		Generations:        14,
		MinTreeDepth:       2,
		MaxTreeDepth:       6,
		RetentionThreshold: 0.4,
		TournamentSize:     4,
		CrossoverRate:      0.85,
		MutationRate:       0.15,
		EliteFraction:      0.12,
		ConvergenceWindow:  5,
		ConvergenceEps:     1e-4,
		Seed:               1,
	}
}

// SearchHint is one (variable, preferred value, confidence) triple the
// orchestrator feeds to the backend as a solve hint (spec.md §4.3).
type SearchHint struct {
	Key        variables.YKey
	Value      int
	Confidence float64
}

// Result is everything the front-filter hands to internal/variables.Factory
// and the orchestrator.
type Result struct {
	ViableY      map[variables.YKey]bool
	ViableU      map[variables.UKey]bool
	SearchHints  []SearchHint
	BypassedExams []domain.ID // exams whose full candidate set was kept (retention bypass)
	Generations  int
	History      []ga.PoolStats[float64]

	// GenerationRetainedCounts is |retained_y(g)| for g = 0..Generations,
	// where retained_y(g) is the running intersection of each generation's
	// best individual's top-k retained tuples (spec.md §8 "GA monotone
	// pruning": non-increasing by construction, since intersecting a set
	// into an accumulator can only shrink or preserve it).
	GenerationRetainedCounts []int
}

// Run executes the exploration loop of spec.md §4.3 and derives its three
// outputs. p must already be sealed.
func Run(ctx context.Context, p *problem.Problem, cfg Config) (*Result, error) {
	if !p.IsSealed() {
		if err := p.Seal(); err != nil {
			return nil, err
		}
	}

	terminals := BuildTerminals(p)
	rooms := p.Rooms()

	examOrder := make([]domain.ID, 0, len(p.Exams()))
	for _, e := range p.Exams() {
		examOrder = append(examOrder, e.ID)
	}
	sort.Slice(examOrder, func(i, j int) bool { return examOrder[i].String() < examOrder[j].String() })

	evaluate := func(c Chromosome) float64 {
		return fitness(p, terminals, rooms, cfg.RetentionThreshold, c)
	}
	initialize := newChromosomeInitializer(examOrder, cfg.MinTreeDepth, cfg.MaxTreeDepth)

	engineCfg := ga.EngineConfig{
		PoolSize:       cfg.PoolSize,
		EliteFraction:  cfg.EliteFraction,
		MaxGenerations: cfg.Generations,
		MutationRate:   cfg.MutationRate,
		CrossoverRate:  cfg.CrossoverRate,
		Seed:           cfg.Seed,
	}

	engine := ga.NewEngine[Chromosome, float64](
		evaluate,
		initialize,
		ga.TournamentSelector[Chromosome, float64]{K: cfg.TournamentSize},
		chromosomeCombiner{},
		chromosomePerturbator{maxDepth: cfg.MaxTreeDepth},
		engineCfg,
	)
	engine.SetTerminator(convergenceTerminator(cfg.ConvergenceWindow, cfg.ConvergenceEps))

	var cumulativeRetained map[roomSlotTuple]bool
	var generationCounts []int
	engine.SetObserver(func(gen *ga.Pool[Chromosome, float64], _ int) {
		genScored := scoreAllTuples(p, terminals, rooms, gen.Members[0].Data)
		genRetained := retainTop(p, genScored, cfg.RetentionThreshold)
		if cumulativeRetained == nil {
			cumulativeRetained = genRetained
		} else {
			cumulativeRetained = intersectTuples(cumulativeRetained, genRetained)
		}
		generationCounts = append(generationCounts, len(cumulativeRetained))
	})

	pool, runErr := engine.Run(ctx)
	if pool == nil {
		return nil, runErr
	}
	// runErr is non-nil only on context cancellation; the pool up to that
	// point is still usable, so the filter returns its best-so-far result
	// alongside the error rather than discarding partial work.

	best := pool.Members[0].Data

	scored := scoreAllTuples(p, terminals, rooms, best)
	retained := retainTop(p, scored, cfg.RetentionThreshold)

	usage := make(map[roomSlotTuple]int)
	for _, member := range pool.Members {
		memberScored := scoreAllTuples(p, terminals, rooms, member.Data)
		memberRetained := retainTop(p, memberScored, cfg.RetentionThreshold)
		for t := range memberRetained {
			usage[t]++
		}
	}
	popSize := float64(len(pool.Members))

	result := &Result{
		ViableY:                  make(map[variables.YKey]bool, len(retained)),
		ViableU:                  make(map[variables.UKey]bool),
		Generations:              pool.Generation,
		History:                  engine.GetHistory(),
		GenerationRetainedCounts: generationCounts,
	}

	hints := make([]SearchHint, 0, len(retained))
	for t := range retained {
		yk := variables.YKey{ExamID: t.ExamID, RoomID: t.RoomID, SlotID: t.SlotID}
		result.ViableY[yk] = true
		hints = append(hints, SearchHint{
			Key:        yk,
			Value:      1,
			Confidence: float64(usage[t]) / math.Max(1, popSize),
		})
	}
	sort.Slice(hints, func(i, j int) bool {
		if hints[i].Confidence != hints[j].Confidence {
			return hints[i].Confidence > hints[j].Confidence
		}
		return hints[i].Key.ExamID.String() < hints[j].Key.ExamID.String()
	})
	result.SearchHints = hints

	for _, e := range p.Exams() {
		if coversExam(retained, e.ID) {
			continue
		}
		result.BypassedExams = append(result.BypassedExams, e.ID)
		for _, s := range terminals.CandidateSlots[e.ID] {
			for _, r := range rooms {
				if !variables.RoomCompatible(e, r) {
					continue
				}
				yk := variables.YKey{ExamID: e.ID, RoomID: r.ID, SlotID: s}
				result.ViableY[yk] = true
			}
		}
	}

	deriveViableU(p, result)

	return result, runErr
}

func coversExam(retained map[roomSlotTuple]bool, examID domain.ID) bool {
	for t := range retained {
		if t.ExamID == examID {
			return true
		}
	}
	return false
}

// deriveViableU pairs each viable y tuple with invigilators ranked by
// availability and department compatibility, keeping a bounded top slice
// per tuple equal to twice the exam's required invigilator count (spec.md
// §4.3: "derived by taking each (e,r,s) ∈ viable_y_vars and pairing with
// invigilators ranked by availability and dept-compatibility").
func deriveViableU(p *problem.Problem, result *Result) {
	examByID := make(map[domain.ID]*domain.Exam)
	for _, e := range p.Exams() {
		examByID[e.ID] = e
	}
	invigilators := p.Invigilators()

	for yk := range result.ViableY {
		e, ok := examByID[yk.ExamID]
		if !ok {
			continue
		}
		type ranked struct {
			inv   *domain.Invigilator
			score int
		}
		var candidates []ranked
		for _, inv := range invigilators {
			if !variables.InvigilatorCompatible(p, inv, yk.SlotID) {
				continue
			}
			score := 0
			if e.DepartmentID != nil && inv.DepartmentID != nil && *e.DepartmentID == *inv.DepartmentID {
				score += 2
			}
			if inv.Availability.Kind == domain.AvailabilityUnrestricted {
				score += 1
			}
			candidates = append(candidates, ranked{inv: inv, score: score})
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

		limit := 2 * e.RequiredInvigilators()
		if limit > len(candidates) {
			limit = len(candidates)
		}
		for i := 0; i < limit; i++ {
			uk := variables.UKey{InvigilatorID: candidates[i].inv.ID, ExamID: yk.ExamID, RoomID: yk.RoomID, SlotID: yk.SlotID}
			result.ViableU[uk] = true
		}
	}
}

// convergenceTerminator stops the loop early once the best score's variance
// over the trailing window generations drops below eps (spec.md §4.3 step 3).
func convergenceTerminator(window int, eps float64) ga.TerminationFunc[Chromosome, float64] {
	var bestHistory []float64
	return func(pool *ga.Pool[Chromosome, float64], generation int) bool {
		bestHistory = append(bestHistory, float64(pool.Stats.BestScore))
		if len(bestHistory) < window {
			return false
		}
		tail := bestHistory[len(bestHistory)-window:]
		var mean float64
		for _, v := range tail {
			mean += v
		}
		mean /= float64(len(tail))
		var variance float64
		for _, v := range tail {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(tail))
		return variance < eps
	}
}
