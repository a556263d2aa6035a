// Package orchestrator implements the two-phase solve loop (spec.md §4.7):
// phase 1 builds the full constraint model and solves for a feasibility
// incumbent; phase 2 either re-solves once with a tighter time budget (GA
// disabled) or evolves variable-ordering hints across a population of
// individuals, each re-invoking the backend with its own hint set and a
// short per-individual time budget, keeping the best solution observed.
package orchestrator

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"examtt/internal/conflict"
	"examtt/internal/constraints"
	"examtt/internal/domain"
	"examtt/internal/ga"
	"examtt/internal/gafilter"
	"examtt/internal/metrics"
	"examtt/internal/model"
	"examtt/internal/problem"
	"examtt/internal/solution"
	"examtt/internal/variables"
)

// TerminationReason is the user-visible outcome spec.md §4.7 names.
type TerminationReason string

const (
	OptimalFound    TerminationReason = "OptimalFound"
	FeasibleTimeout TerminationReason = "FeasibleTimeout"
	Infeasible      TerminationReason = "Infeasible"
	BudgetExhausted TerminationReason = "BudgetExhausted"
	ErrorReason     TerminationReason = "Error"
)

// Config holds the orchestrator's tunables, with spec.md §4.7's defaults.
type Config struct {
	TimeLimit1      time.Duration // phase-1 feasibility budget, default 300s
	TimeLimit2      time.Duration // phase-2 per-individual budget, default 30s
	GAEnabled       bool
	GAGenerations   int // G_2
	GAPoolSize      int
	Seed            int64
	VariableCeiling int
	FilterConfig    gafilter.Config
	Weights         metrics.Weights
}

// DefaultConfig returns spec.md §4.7 and §5's named defaults.
func DefaultConfig() Config {
	return Config{
		TimeLimit1:      300 * time.Second,
		TimeLimit2:      30 * time.Second,
		GAEnabled:       true,
		GAGenerations:   10,
		GAPoolSize:      12,
		Seed:            1,
		VariableCeiling: variables.DefaultCeiling,
		FilterConfig:    gafilter.DefaultConfig(),
		Weights:         metrics.DefaultWeights(),
	}
}

// Result is everything the CLI entry point needs to persist and report.
type Result struct {
	Solution          *solution.Solution
	Quality           metrics.QualityScore
	Performance       metrics.PerformanceMetrics
	TerminationReason TerminationReason
	ErrorMessage      string
}

// ModelFactory builds a fresh, empty backend instance. The orchestrator
// calls it once per phase/individual, since a ConstraintModel is consumed
// by exactly one compile-then-solve cycle (spec.md §5: "owned exclusively
// by the orchestrator for the duration of a phase").
type ModelFactory func() model.ConstraintModel

// Orchestrator wires the front-filter, constraint compiler, and backend
// behind spec.md §4.7's phase structure. It holds no per-run state and is
// safe to reuse across sessions.
type Orchestrator struct {
	reg      *constraints.Registry
	newModel ModelFactory
	log      *zap.Logger
}

func New(reg *constraints.Registry, newModel ModelFactory, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{reg: reg, newModel: newModel, log: log}
}

// Run executes the full pipeline for a sealed (or sealable) Problem.
func (o *Orchestrator) Run(ctx context.Context, p *problem.Problem, cfg Config) (*Result, error) {
	start := time.Now()
	var perf metrics.PerformanceMetrics

	if len(p.Exams()) == 0 {
		return infeasibleResult(Infeasible, "no exams in problem"), nil
	}
	if !p.IsSealed() {
		if err := p.Seal(); err != nil {
			return errorResult(err.Error()), err
		}
	}

	sv, filterResult, err := o.buildVariables(ctx, p, cfg)
	if err != nil {
		return errorResult(err.Error()), err
	}

	phase1Start := time.Now()
	m1 := o.newModel()
	compiled1, err := constraints.Compile(p, sv, m1, o.reg, o.log)
	if err != nil {
		return errorResult(err.Error()), err
	}
	applySearchHints(m1, compiled1.Vars, filterResult.SearchHints)

	res1, err := m1.Solve(ctx, cfg.TimeLimit1)
	perf.Phase1Runtime = time.Since(phase1Start)
	if err != nil {
		return errorResult(err.Error()), err
	}

	if !hasIncumbent(res1.Status) {
		perf.TotalRuntime = time.Since(start)
		return &Result{
			Solution:          emptySolution(solution.StatusInfeasible),
			Performance:       perf,
			TerminationReason: Infeasible,
		}, nil
	}

	incumbent := keyedAssignment{
		x: keysFromX(compiled1.Vars.X, res1.Values),
		y: keysFromY(compiled1.Vars.Y, res1.Values),
		u: keysFromU(compiled1.Vars.U, res1.Values),
	}
	best := solveOutcome{status: res1.Status, values: res1.Values, mv: compiled1.Vars, objective: res1.ObjectiveVal}
	perf.InitialQuality = res1.ObjectiveVal

	phase2Start := time.Now()
	if cfg.GAEnabled && cfg.GAGenerations > 0 {
		evolved, gens, history := o.runPhase2GA(ctx, p, sv, cfg, incumbent)
		perf.TotalGenerations = gens
		perf.ConvergenceStability = convergenceStability(history)
		if evolved.values != nil && better(evolved, best) {
			best = evolved
			for i, h := range history {
				if h.BestScore == float64(evolved.objective) {
					perf.GenerationsToBest = i
					break
				}
			}
		}
	} else {
		evolved := o.runPhase2SingleShot(ctx, p, sv, cfg, incumbent)
		if evolved.values != nil && better(evolved, best) {
			best = evolved
		}
	}
	perf.Phase2Runtime = time.Since(phase2Start)
	perf.FinalQuality = best.objective
	perf.TotalRuntime = time.Since(start)

	sol := buildSolution(p, sv, best.mv, best.values, best.status, best.objective)
	conflicts := detectConflicts(p, sol)
	sol.Conflicts = conflicts
	soft := softPenalties(compiled1.Modules, p, sol)
	quality := metrics.Compute(p, sol, conflicts, soft, cfg.Weights)
	sol.Quality = solution.QualitySummary{
		TotalScore:  quality.TotalScore,
		Feasibility: quality.FeasibilityScore,
		Completion:  quality.CompletionPercentage,
	}

	reason := OptimalFound
	if best.status != model.StatusOptimal {
		reason = FeasibleTimeout
	}

	return &Result{
		Solution:          sol,
		Quality:           quality,
		Performance:       perf,
		TerminationReason: reason,
	}, nil
}

// buildVariables runs the GA front-filter and encodes SharedVariables,
// retrying once with tighter retention on a variable-count overflow
// (spec.md §5, §7: VariableExplosion is recoverable exactly once).
func (o *Orchestrator) buildVariables(ctx context.Context, p *problem.Problem, cfg Config) (*variables.SharedVariables, *gafilter.Result, error) {
	filterResult, err := gafilter.Run(ctx, p, cfg.FilterConfig)
	if err != nil && filterResult == nil {
		return nil, nil, err
	}

	factory := variables.NewFactory(cfg.VariableCeiling)
	sv, err := factory.Encode(p, filterResult.ViableY, filterResult.ViableU)
	if err == nil {
		return sv, filterResult, nil
	}
	if _, overflow := err.(*variables.ErrVariableExplosion); !overflow {
		return nil, nil, err
	}

	o.log.Warn("variable ceiling exceeded, retrying with tighter retention",
		zap.Float64("previous_threshold", cfg.FilterConfig.RetentionThreshold))
	tighter := cfg.FilterConfig
	tighter.RetentionThreshold *= 0.5
	filterResult, err = gafilter.Run(ctx, p, tighter)
	if err != nil && filterResult == nil {
		return nil, nil, err
	}
	sv, err = factory.Encode(p, filterResult.ViableY, filterResult.ViableU)
	if err != nil {
		return nil, nil, err
	}
	return sv, filterResult, nil
}

func applySearchHints(m model.ConstraintModel, mv *constraints.ModelVars, hints []gafilter.SearchHint) {
	for _, h := range hints {
		if v, ok := mv.Y[h.Key]; ok {
			m.SetHint(v, h.Value)
		}
	}
}

func hasIncumbent(s model.Status) bool {
	return s == model.StatusOptimal || s == model.StatusFeasible
}

type solveOutcome struct {
	status    model.Status
	values    map[model.VarID]bool
	mv        *constraints.ModelVars
	objective float64
}

// better prefers a if it is at least as feasible as b and its objective is
// strictly higher; phase 2 never regresses on the incumbent's feasibility.
func better(a, b solveOutcome) bool {
	if !hasIncumbent(a.status) {
		return false
	}
	if !hasIncumbent(b.status) {
		return true
	}
	return a.objective > b.objective
}

type keyedAssignment struct {
	x map[variables.XKey]bool
	y map[variables.YKey]bool
	u map[variables.UKey]bool
}

func keysFromX(vars map[variables.XKey]model.VarID, values map[model.VarID]bool) map[variables.XKey]bool {
	out := make(map[variables.XKey]bool, len(vars))
	for k, v := range vars {
		out[k] = values[v]
	}
	return out
}

func keysFromY(vars map[variables.YKey]model.VarID, values map[model.VarID]bool) map[variables.YKey]bool {
	out := make(map[variables.YKey]bool, len(vars))
	for k, v := range vars {
		out[k] = values[v]
	}
	return out
}

func keysFromU(vars map[variables.UKey]model.VarID, values map[model.VarID]bool) map[variables.UKey]bool {
	out := make(map[variables.UKey]bool, len(vars))
	for k, v := range vars {
		out[k] = values[v]
	}
	return out
}

// applyKeyedHints sets a hint on every variable the new compile produced
// that is also named, true, in prior.
func applyKeyedHints(m model.ConstraintModel, mv *constraints.ModelVars, prior keyedAssignment) {
	for k, v := range mv.X {
		if prior.x[k] {
			m.SetHint(v, 1)
		}
	}
	for k, v := range mv.Y {
		if prior.y[k] {
			m.SetHint(v, 1)
		}
	}
	for k, v := range mv.U {
		if prior.u[k] {
			m.SetHint(v, 1)
		}
	}
}

// runPhase2SingleShot re-solves once with the phase-1 solution as hint and
// a tighter time budget, spec.md §4.7's GA-disabled path.
func (o *Orchestrator) runPhase2SingleShot(ctx context.Context, p *problem.Problem, sv *variables.SharedVariables, cfg Config, prior keyedAssignment) solveOutcome {
	m := o.newModel()
	compiled, err := constraints.Compile(p, sv, m, o.reg, o.log)
	if err != nil {
		return solveOutcome{}
	}
	applyKeyedHints(m, compiled.Vars, prior)
	res, err := m.Solve(ctx, cfg.TimeLimit2)
	if err != nil {
		return solveOutcome{}
	}
	return solveOutcome{status: res.Status, values: res.Values, mv: compiled.Vars, objective: res.ObjectiveVal}
}

// orderingChromosome is an exam-priority permutation: the exam at position
// i is hinted toward its i-th-mod-len candidate start slot, giving each
// individual a distinct variable ordering to re-solve with.
type orderingChromosome struct {
	order []domain.ID
}

func (c orderingChromosome) Copy() any {
	cp := make([]domain.ID, len(c.order))
	copy(cp, c.order)
	return orderingChromosome{order: cp}
}

type orderingCombiner struct{}

// Combine performs order crossover (OX): offspring inherit a contiguous
// slice from one parent and fill the remaining positions from the other
// parent's relative order, preserving permutation validity.
func (orderingCombiner) Combine(parents []ga.Candidate[orderingChromosome, float64], rng *rand.Rand) []orderingChromosome {
	if len(parents) < 2 {
		return []orderingChromosome{parents[0].Data}
	}
	a, b := parents[0].Data.order, parents[1].Data.order
	n := len(a)
	if n == 0 {
		return []orderingChromosome{{order: nil}}
	}
	i, j := rng.Intn(n), rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	child := make([]domain.ID, n)
	taken := make(map[domain.ID]bool, n)
	for k := i; k <= j; k++ {
		child[k] = a[k]
		taken[a[k]] = true
	}
	pos := (j + 1) % n
	for _, id := range b {
		if taken[id] {
			continue
		}
		child[pos] = id
		pos = (pos + 1) % n
	}
	return []orderingChromosome{{order: child}}
}

type orderingPerturbator struct{}

// Perturb swaps two random positions, the standard mutation operator for
// permutation chromosomes.
func (orderingPerturbator) Perturb(c *orderingChromosome, strength float64, rng *rand.Rand) {
	n := len(c.order)
	if n < 2 {
		return
	}
	swaps := 1 + int(strength*float64(n))
	for s := 0; s < swaps; s++ {
		i, j := rng.Intn(n), rng.Intn(n)
		c.order[i], c.order[j] = c.order[j], c.order[i]
	}
}

// runPhase2GA evolves exam-priority orderings, re-solving the compiled
// model once per individual with that ordering's hints plus the phase-1
// incumbent's assignment, and returns the best feasible outcome observed
// across the whole run (spec.md §4.7).
func (o *Orchestrator) runPhase2GA(ctx context.Context, p *problem.Problem, sv *variables.SharedVariables, cfg Config, prior keyedAssignment) (solveOutcome, int, []ga.PoolStats[float64]) {
	baseOrder := make([]domain.ID, 0, len(p.Exams()))
	for _, e := range p.Exams() {
		baseOrder = append(baseOrder, e.ID)
	}
	sort.Slice(baseOrder, func(i, j int) bool { return baseOrder[i].String() < baseOrder[j].String() })

	var best solveOutcome
	best.objective = math.Inf(-1)

	evaluate := func(c orderingChromosome) float64 {
		outcome := o.evaluateOrdering(ctx, p, sv, cfg, prior, c)
		score := outcomeScore(outcome)
		if better(outcome, best) {
			best = outcome
		}
		return score
	}
	initialize := func(rng *rand.Rand, _ int) orderingChromosome {
		perm := append([]domain.ID(nil), baseOrder...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		return orderingChromosome{order: perm}
	}

	engineCfg := ga.EngineConfig{
		PoolSize:       cfg.GAPoolSize,
		EliteFraction:  0.15,
		MaxGenerations: cfg.GAGenerations,
		MutationRate:   0.2,
		CrossoverRate:  0.8,
		Seed:           cfg.Seed,
	}
	engine := ga.NewEngine[orderingChromosome, float64](
		evaluate,
		initialize,
		ga.TournamentSelector[orderingChromosome, float64]{K: 3},
		orderingCombiner{},
		orderingPerturbator{},
		engineCfg,
	)

	pool, _ := engine.Run(ctx)
	generations := 0
	if pool != nil {
		generations = pool.Generation
	}
	return best, generations, engine.GetHistory()
}

func (o *Orchestrator) evaluateOrdering(ctx context.Context, p *problem.Problem, sv *variables.SharedVariables, cfg Config, prior keyedAssignment, c orderingChromosome) solveOutcome {
	m := o.newModel()
	compiled, err := constraints.Compile(p, sv, m, o.reg, o.log)
	if err != nil {
		return solveOutcome{}
	}
	applyKeyedHints(m, compiled.Vars, prior)
	for rank, examID := range c.order {
		candidates := sv.CandidateSlots[examID]
		if len(candidates) == 0 {
			continue
		}
		slot := candidates[rank%len(candidates)]
		if v, ok := compiled.Vars.X[variables.XKey{ExamID: examID, SlotID: slot}]; ok {
			m.SetHint(v, 1)
		}
	}
	res, err := m.Solve(ctx, cfg.TimeLimit2)
	if err != nil {
		return solveOutcome{}
	}
	return solveOutcome{status: res.Status, values: res.Values, mv: compiled.Vars, objective: res.ObjectiveVal}
}

func outcomeScore(o solveOutcome) float64 {
	if !hasIncumbent(o.status) {
		return math.Inf(-1)
	}
	return o.objective
}

func convergenceStability(history []ga.PoolStats[float64]) float64 {
	if len(history) == 0 {
		return 0
	}
	last := history[len(history)-1]
	if last.BestScore == 0 {
		return 0
	}
	return 1 - math.Min(1, last.Variance/math.Abs(float64(last.BestScore)))
}

// buildSolution reads a solved assignment back through SharedVariables'
// keys into the wire-facing solution.Solution shape.
func buildSolution(p *problem.Problem, sv *variables.SharedVariables, mv *constraints.ModelVars, values map[model.VarID]bool, status model.Status, objective float64) *solution.Solution {
	slotToDay := make(map[domain.ID]domain.ID, len(sv.SlotOrder))
	for dayID, slots := range sv.DaySlotGroupings {
		for _, s := range slots {
			slotToDay[s] = dayID
		}
	}

	examSlot := make(map[domain.ID]domain.ID, len(mv.X))
	for k, v := range mv.X {
		if values[v] {
			examSlot[k.ExamID] = k.SlotID
		}
	}
	examRooms := make(map[domain.ID][]domain.ID)
	for k, v := range mv.Y {
		if values[v] && examSlot[k.ExamID] == k.SlotID {
			examRooms[k.ExamID] = append(examRooms[k.ExamID], k.RoomID)
		}
	}
	examInvigilators := make(map[domain.ID][]domain.ID)
	for k, v := range mv.U {
		if values[v] && examSlot[k.ExamID] == k.SlotID {
			examInvigilators[k.ExamID] = append(examInvigilators[k.ExamID], k.InvigilatorID)
		}
	}

	var assignments []solution.Assignment
	for _, e := range p.Exams() {
		slot, ok := examSlot[e.ID]
		if !ok {
			continue
		}
		rooms := sortedIDs(examRooms[e.ID])
		invs := sortedIDs(examInvigilators[e.ID])
		assignments = append(assignments, solution.Assignment{
			ExamID:         e.ID,
			DayID:          slotToDay[slot],
			SlotID:         slot,
			RoomIDs:        rooms,
			InvigilatorIDs: invs,
			Status:         solution.AssignmentOK,
		})
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ExamID.String() < assignments[j].ExamID.String() })

	obj := objective
	sol := &solution.Solution{
		SolutionID:     domain.NewID(),
		Status:         toSolutionStatus(status),
		ObjectiveValue: &obj,
		Assignments:    assignments,
	}
	return sol
}

func sortedIDs(ids []domain.ID) []domain.ID {
	out := append([]domain.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func toSolutionStatus(s model.Status) solution.Status {
	switch s {
	case model.StatusOptimal:
		return solution.StatusOptimal
	case model.StatusFeasible:
		return solution.StatusFeasible
	default:
		return solution.StatusFeasible
	}
}

func detectConflicts(p *problem.Problem, sol *solution.Solution) []solution.ConflictReport {
	return conflict.Detect(p, sol)
}

func softPenalties(modules []constraints.Module, p *problem.Problem, sol *solution.Solution) map[string]float64 {
	penalties := make(map[string]float64, len(modules))
	for _, mod := range modules {
		def := mod.Definition()
		if def.Type != constraints.Soft {
			continue
		}
		var total float64
		for _, v := range mod.Evaluate(p, sol) {
			total += v.Penalty
		}
		penalties[def.ID] = total
	}
	return penalties
}

func infeasibleResult(reason TerminationReason, msg string) *Result {
	return &Result{
		Solution:          emptySolution(solution.StatusInfeasible),
		TerminationReason: reason,
		ErrorMessage:      msg,
	}
}

func errorResult(msg string) *Result {
	return &Result{
		Solution:          emptySolution(solution.StatusInvalid),
		TerminationReason: ErrorReason,
		ErrorMessage:      msg,
	}
}

func emptySolution(status solution.Status) *solution.Solution {
	return &solution.Solution{
		SolutionID:  domain.NewID(),
		Status:      status,
		Assignments: nil,
	}
}
