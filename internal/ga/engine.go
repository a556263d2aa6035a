package ga

import (
	"context"
	"math"
	"math/rand"
	"sort"
)

// Engine runs a single-threaded generational loop over a chromosome type S
// with fitness type F. It is deliberately sequential: both reuse sites
// (gafilter's front-filter ranking and the orchestrator's phase-2
// variable-ordering evolution) require a reproducible trace for a given
// seed (spec.md §5, §8), and a goroutine pool scheduling order is not
// reproducible without extra bookkeeping this domain does not need.
type Engine[S Solution, F Numeric] struct {
	cfg         EngineConfig
	evaluate    EvaluatorFunc[S, F]
	initialize  InitializerFunc[S]
	selector    Selector[S, F]
	combiner    Combiner[S, F]
	perturbator Perturbator[S]
	terminate   TerminationFunc[S, F]
	rng         *rand.Rand
	history     []PoolStats[F]
	observer    func(pool *Pool[S, F], generation int)
}

func NewEngine[S Solution, F Numeric](
	evaluate EvaluatorFunc[S, F],
	initialize InitializerFunc[S],
	selector Selector[S, F],
	combiner Combiner[S, F],
	perturbator Perturbator[S],
	cfg EngineConfig,
) *Engine[S, F] {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	return &Engine[S, F]{
		cfg:         cfg,
		evaluate:    evaluate,
		initialize:  initialize,
		selector:    selector,
		combiner:    combiner,
		perturbator: perturbator,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}
}

// SetTerminator installs an early-stop predicate evaluated after every
// generation, in addition to the MaxGenerations bound.
func (e *Engine[S, F]) SetTerminator(fn TerminationFunc[S, F]) { e.terminate = fn }

// SetObserver installs a callback invoked with every generation's pool,
// including the initial (generation 0) population, in evaluation order.
// Callers use this to trace per-generation state (e.g. a derived retained-
// variable set) without the engine itself needing to know what they track.
func (e *Engine[S, F]) SetObserver(fn func(pool *Pool[S, F], generation int)) { e.observer = fn }

// GetHistory returns the per-generation statistics recorded by the last Run.
func (e *Engine[S, F]) GetHistory() []PoolStats[F] { return e.history }

// Run evolves the population for up to cfg.MaxGenerations generations,
// stopping early if ctx is cancelled or the terminator fires. It returns
// the final Pool, sorted best-first.
func (e *Engine[S, F]) Run(ctx context.Context) (*Pool[S, F], error) {
	pool := e.initializePool()
	e.history = append(e.history[:0], pool.Stats)
	if e.observer != nil {
		e.observer(pool, 0)
	}

	for gen := 1; gen <= e.cfg.MaxGenerations; gen++ {
		select {
		case <-ctx.Done():
			return pool, ctx.Err()
		default:
		}

		pool = e.evolveGeneration(pool, gen)
		e.history = append(e.history, pool.Stats)
		if e.observer != nil {
			e.observer(pool, gen)
		}

		if e.terminate != nil && e.terminate(pool, gen) {
			break
		}
	}
	return pool, nil
}

func (e *Engine[S, F]) initializePool() *Pool[S, F] {
	members := make([]Candidate[S, F], e.cfg.PoolSize)
	for i := 0; i < e.cfg.PoolSize; i++ {
		data := e.initialize(e.rng, i)
		members[i] = Candidate[S, F]{
			Data:  data,
			Score: e.evaluate(data),
			ID:    candidateID(0, i),
		}
	}
	sortByScoreDesc(members)
	return &Pool[S, F]{
		Members:    members,
		Generation: 0,
		Stats:      e.calculateStats(members),
	}
}

func (e *Engine[S, F]) evolveGeneration(prev *Pool[S, F], gen int) *Pool[S, F] {
	eliteCount := int(math.Round(float64(e.cfg.PoolSize) * e.cfg.EliteFraction))
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount > e.cfg.PoolSize {
		eliteCount = e.cfg.PoolSize
	}

	next := make([]Candidate[S, F], 0, e.cfg.PoolSize)
	next = append(next, e.selectElite(prev, eliteCount)...)

	for len(next) < e.cfg.PoolSize {
		parents := e.selector.Select(prev, 2, e.rng)
		var offspring []S
		if e.rng.Float64() < e.cfg.CrossoverRate && len(parents) >= 2 {
			offspring = e.combiner.Combine(parents, e.rng)
		} else {
			offspring = []S{parents[0].Data.Copy().(S)}
		}
		for _, child := range offspring {
			if len(next) >= e.cfg.PoolSize {
				break
			}
			if e.rng.Float64() < e.cfg.MutationRate {
				e.perturbator.Perturb(&child, e.cfg.MutationRate, e.rng)
			}
			next = append(next, Candidate[S, F]{
				Data:  child,
				Score: e.evaluate(child),
				ID:    candidateID(gen, len(next)),
			})
		}
	}

	sortByScoreDesc(next)
	return &Pool[S, F]{
		Members:    next,
		Generation: gen,
		Stats:      e.calculateStats(next),
	}
}

func (e *Engine[S, F]) selectElite(pool *Pool[S, F], n int) []Candidate[S, F] {
	if n > len(pool.Members) {
		n = len(pool.Members)
	}
	out := make([]Candidate[S, F], n)
	copy(out, pool.Members[:n])
	return out
}

func (e *Engine[S, F]) calculateStats(members []Candidate[S, F]) PoolStats[F] {
	if len(members) == 0 {
		return PoolStats[F]{}
	}
	var sum, best, worst F
	best = members[0].Score
	worst = members[0].Score
	for _, m := range members {
		sum += m.Score
		if m.Score > best {
			best = m.Score
		}
		if m.Score < worst {
			worst = m.Score
		}
	}
	avg := sum / F(len(members))

	var variance float64
	for _, m := range members {
		d := float64(m.Score) - float64(avg)
		variance += d * d
	}
	variance /= float64(len(members))

	return PoolStats[F]{
		BestScore:    best,
		WorstScore:   worst,
		AverageScore: avg,
		Variance:     variance,
	}
}

func sortByScoreDesc[S Solution, F Numeric](members []Candidate[S, F]) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].ID < members[j].ID // deterministic tie-break
	})
}

func candidateID(gen, idx int) string {
	return itoa(gen) + "-" + itoa(idx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
