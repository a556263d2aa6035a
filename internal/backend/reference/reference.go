// Package reference implements model.ConstraintModel as a pure-Go local
// search solver, for environments without an OR-Tools build (spec.md §6.2).
// It has no native integer linear programming or SAT solver underneath;
// instead it adapts the teacher's simulated-annealing schedule optimizer
// (graph-coloring moves + Metropolis acceptance) to the boolean/linear
// constraint surface internal/constraints compiles against: every hard
// constraint becomes a heavily-weighted penalty term, every flip is
// accepted or rejected the same way a recoloring move was.
package reference

import (
	"context"
	"math"
	"math/rand"
	"time"

	"examtt/internal/model"
)

// hardViolationWeight dominates any objective term a compiled model can
// produce, so the search always prefers fewer hard violations over a
// better objective value — the same priority the teacher's isValidMove
// gate enforces by rejecting invalid moves outright, reexpressed as a
// steep penalty so a single local-search loop can anneal through both at
// once instead of needing a separate feasibility-repair pass.
const hardViolationWeight = 1_000_000.0

type linearKind int

const (
	linearLE linearKind = iota
	linearEQ
)

type linearConstraint struct {
	terms []model.LinearTerm
	bound int64
	kind  linearKind
}

type clause struct {
	lits []model.Literal
}

// Backend is a self-contained ConstraintModel. Construct one per Solve call;
// it is not safe for concurrent use.
type Backend struct {
	names   []string
	hints   map[model.VarID]int
	linears []linearConstraint
	clauses []clause

	objTerms []model.LinearTerm
	objSign  float64 // +1 for Maximize, -1 for Minimize, 0 if unset

	varLinears map[model.VarID][]int
	varClauses map[model.VarID][]int
	varObjCoef map[model.VarID]int64

	rng *rand.Rand
}

// New returns an empty Backend. seed fixes the search's RNG so a rerun of
// the same compiled model reproduces the same solve, the way the teacher
// seeds rand.Seed once before its own annealing run.
func New(seed int64) *Backend {
	return &Backend{
		hints:      make(map[model.VarID]int),
		varLinears: make(map[model.VarID][]int),
		varClauses: make(map[model.VarID][]int),
		varObjCoef: make(map[model.VarID]int64),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (b *Backend) NewBoolVar(name string) model.VarID {
	id := model.VarID(len(b.names))
	b.names = append(b.names, name)
	return id
}

func (b *Backend) AddLinearLE(terms []model.LinearTerm, bound int64) {
	b.addLinear(linearConstraint{terms: terms, bound: bound, kind: linearLE})
}

func (b *Backend) AddLinearEQ(terms []model.LinearTerm, rhs int64) {
	b.addLinear(linearConstraint{terms: terms, bound: rhs, kind: linearEQ})
}

func (b *Backend) addLinear(c linearConstraint) {
	idx := len(b.linears)
	b.linears = append(b.linears, c)
	for _, t := range c.terms {
		b.varLinears[t.Var] = append(b.varLinears[t.Var], idx)
	}
}

func (b *Backend) AddBoolOr(lits []model.Literal) {
	idx := len(b.clauses)
	b.clauses = append(b.clauses, clause{lits: lits})
	for _, l := range lits {
		b.varClauses[l.Var] = append(b.varClauses[l.Var], idx)
	}
}

// AddImplication desugars antecedent -> consequent into the equivalent
// two-literal clause (!antecedent OR consequent), so the search only needs
// one kind of disjunctive constraint internally.
func (b *Backend) AddImplication(antecedent, consequent model.Literal) {
	b.AddBoolOr([]model.Literal{negate(antecedent), consequent})
}

func negate(l model.Literal) model.Literal {
	return model.Literal{Var: l.Var, Negated: !l.Negated}
}

// AddExactlyOne desugars to a linear equality: the indicator sum over vars
// must equal one.
func (b *Backend) AddExactlyOne(vars []model.VarID) {
	terms := make([]model.LinearTerm, len(vars))
	for i, v := range vars {
		terms[i] = model.LinearTerm{Var: v, Coefficient: 1}
	}
	b.AddLinearEQ(terms, 1)
}

func (b *Backend) SetHint(v model.VarID, value int) {
	b.hints[v] = value
}

func (b *Backend) Maximize(terms []model.LinearTerm) {
	b.objTerms = terms
	b.objSign = 1
	b.indexObjective()
}

func (b *Backend) Minimize(terms []model.LinearTerm) {
	b.objTerms = terms
	b.objSign = -1
	b.indexObjective()
}

func (b *Backend) indexObjective() {
	b.varObjCoef = make(map[model.VarID]int64, len(b.objTerms))
	for _, t := range b.objTerms {
		b.varObjCoef[t.Var] += t.Coefficient
	}
}

// state is the mutable assignment the annealing loop mutates in place,
// together with the cached per-constraint sums the teacher's moveSessionSA
// keeps current incrementally rather than recomputing the whole schedule on
// every move.
type state struct {
	values      []bool
	linearSums  []int64
	clauseTrues []int
}

func (b *Backend) initialState() *state {
	st := &state{
		values:      make([]bool, len(b.names)),
		linearSums:  make([]int64, len(b.linears)),
		clauseTrues: make([]int, len(b.clauses)),
	}
	for v := range b.names {
		id := model.VarID(v)
		if hint, ok := b.hints[id]; ok {
			st.values[v] = hint != 0
		} else {
			st.values[v] = b.rng.Intn(2) == 1
		}
	}
	for idx, c := range b.linears {
		var sum int64
		for _, t := range c.terms {
			if st.values[t.Var] {
				sum += t.Coefficient
			}
		}
		st.linearSums[idx] = sum
	}
	for idx, c := range b.clauses {
		st.clauseTrues[idx] = countTrue(c, st.values)
	}
	return st
}

func countTrue(c clause, values []bool) int {
	n := 0
	for _, l := range c.lits {
		if literalTrue(l, values) {
			n++
		}
	}
	return n
}

func literalTrue(l model.Literal, values []bool) bool {
	v := values[l.Var]
	if l.Negated {
		return !v
	}
	return v
}

func linearViolation(c linearConstraint, sum int64) float64 {
	switch c.kind {
	case linearEQ:
		d := sum - c.bound
		if d < 0 {
			d = -d
		}
		return float64(d)
	default: // linearLE
		if sum <= c.bound {
			return 0
		}
		return float64(sum - c.bound)
	}
}

func (st *state) totalViolation(b *Backend) float64 {
	var v float64
	for idx, c := range b.linears {
		v += linearViolation(c, st.linearSums[idx])
	}
	for _, trues := range st.clauseTrues {
		if trues == 0 {
			v++
		}
	}
	return v
}

func (st *state) objectiveValue(b *Backend) float64 {
	var obj float64
	for _, t := range b.objTerms {
		if st.values[t.Var] {
			obj += float64(t.Coefficient)
		}
	}
	return obj
}

// cost is what the annealing loop minimizes: hard violations dominate, the
// (signed) objective breaks ties among feasible-leaning states.
func (st *state) cost(b *Backend) float64 {
	return hardViolationWeight*st.totalViolation(b) - b.objSign*st.objectiveValue(b)
}

// flip toggles var v in place and returns the incremental cost delta,
// updating the cached sums the way moveSessionSA patches Schedule in place
// rather than rebuilding it.
func (st *state) flip(b *Backend, v model.VarID) float64 {
	before := st.localCost(b, v)
	st.values[v] = !st.values[v]
	delta := 1
	if !st.values[v] {
		delta = -1
	}
	for _, idx := range b.varLinears[v] {
		for _, t := range b.linears[idx].terms {
			if t.Var == v {
				st.linearSums[idx] += int64(delta) * t.Coefficient
			}
		}
	}
	for _, idx := range b.varClauses[v] {
		for _, l := range b.clauses[idx].lits {
			if l.Var != v {
				continue
			}
			if literalTrue(l, st.values) {
				st.clauseTrues[idx]++
			} else {
				st.clauseTrues[idx]--
			}
		}
	}
	after := st.localCost(b, v)
	return after - before
}

// localCost sums the penalty/objective contribution of just the
// constraints and objective coefficient touching v, so flip's delta can be
// computed without rescanning the whole model.
func (st *state) localCost(b *Backend, v model.VarID) float64 {
	var c float64
	for _, idx := range b.varLinears[v] {
		c += hardViolationWeight * linearViolation(b.linears[idx], st.linearSums[idx])
	}
	for _, idx := range b.varClauses[v] {
		if st.clauseTrues[idx] == 0 {
			c += hardViolationWeight
		}
	}
	if st.values[v] {
		c -= b.objSign * float64(b.varObjCoef[v])
	}
	return c
}

// Solve runs a simulated annealing schedule over the compiled model,
// mirroring the teacher's OptimizeSchedule: start from the hinted/random
// assignment, repeatedly flip a random variable, accept improving moves
// always and worsening moves with Metropolis probability e^(-delta/T),
// cooling geometrically until timeLimit or ctx is done, or until maxStall
// iterations pass without improvement once a violation-free state is found.
// The returned assignment is the first state with the fewest hard
// violations seen; among violation-free states the objective is not
// compared.
func (b *Backend) Solve(ctx context.Context, timeLimit time.Duration) (model.SolveResult, error) {
	start := time.Now()
	st := b.initialState()

	const (
		initialTemp = 50_000.0
		coolingRate = 0.9995
		maxStall    = 20_000
	)
	temperature := initialTemp
	bestViolation := st.totalViolation(b)
	bestValues := append([]bool(nil), st.values...)
	stall := 0

	deadline := start.Add(timeLimit)
	iterations := 0
	for {
		iterations++
		if iterations%256 == 0 {
			if ctx.Err() != nil {
				break
			}
			if timeLimit > 0 && time.Now().After(deadline) {
				break
			}
		}
		if len(b.names) == 0 {
			break
		}

		v := model.VarID(b.rng.Intn(len(b.names)))
		delta := st.flip(b, v)

		accept := delta < 0
		if !accept && temperature > 1e-9 {
			accept = b.rng.Float64() < math.Exp(-delta/temperature)
		}
		if !accept {
			st.flip(b, v) // revert
		}

		violation := st.totalViolation(b)
		if violation < bestViolation {
			bestViolation = violation
			copy(bestValues, st.values)
			stall = 0
		} else {
			stall++
		}
		temperature *= coolingRate
		if bestViolation == 0 && stall > maxStall {
			break
		}
	}

	status := model.StatusFeasible
	switch {
	case bestViolation > 0 && ctx.Err() != nil:
		status = model.StatusTimeout
	case bestViolation > 0 && timeLimit > 0 && time.Now().After(deadline):
		status = model.StatusTimeout
	case bestViolation > 0:
		status = model.StatusInfeasible
	case stall > maxStall:
		status = model.StatusOptimal
	}

	values := make(map[model.VarID]bool, len(bestValues))
	var objectiveVal float64
	if status == model.StatusFeasible || status == model.StatusOptimal {
		for i, val := range bestValues {
			values[model.VarID(i)] = val
		}
		for _, t := range b.objTerms {
			if bestValues[t.Var] {
				objectiveVal += float64(t.Coefficient)
			}
		}
	}

	return model.SolveResult{
		Status:       status,
		Values:       values,
		ObjectiveVal: objectiveVal,
		WallTime:     time.Since(start),
	}, nil
}
