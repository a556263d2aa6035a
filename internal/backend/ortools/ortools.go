// Package ortools implements model.ConstraintModel as a thin pass-through
// onto Google OR-Tools' CP-SAT Go API (spec.md §6.2), for deployments that
// can link the native solver. It translates model.VarID/Literal/LinearTerm
// directly into cpmodel.BoolVar/LinearExpr calls — no constraint-shape
// translation happens here, only handle bookkeeping.
package ortools

import (
	"context"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"

	"examtt/internal/model"
)

// Backend wraps a cpmodel.Builder. Construct one per compiled model; it is
// not safe for concurrent use (the underlying builder isn't either).
type Backend struct {
	builder *cpmodel.Builder
	vars    []cpmodel.BoolVar
}

func New() *Backend {
	return &Backend{builder: cpmodel.NewCpModelBuilder()}
}

func (b *Backend) NewBoolVar(name string) model.VarID {
	id := model.VarID(len(b.vars))
	b.vars = append(b.vars, b.builder.NewBoolVar().WithName(name))
	return id
}

func (b *Backend) lit(l model.Literal) cpmodel.BoolVar {
	v := b.vars[l.Var]
	if l.Negated {
		return v.Not()
	}
	return v
}

func (b *Backend) linearExpr(terms []model.LinearTerm) *cpmodel.LinearExpr {
	expr := cpmodel.NewLinearExpr()
	for _, t := range terms {
		expr = expr.AddTerm(b.vars[t.Var], t.Coefficient)
	}
	return expr
}

func (b *Backend) AddLinearLE(terms []model.LinearTerm, bound int64) {
	b.builder.AddLessOrEqual(b.linearExpr(terms), cpmodel.NewConstant(bound))
}

func (b *Backend) AddLinearEQ(terms []model.LinearTerm, rhs int64) {
	b.builder.AddEquality(b.linearExpr(terms), cpmodel.NewConstant(rhs))
}

func (b *Backend) AddBoolOr(lits []model.Literal) {
	converted := make([]cpmodel.BoolVar, len(lits))
	for i, l := range lits {
		converted[i] = b.lit(l)
	}
	b.builder.AddBoolOr(converted...)
}

func (b *Backend) AddImplication(antecedent, consequent model.Literal) {
	b.builder.AddImplication(b.lit(antecedent), b.lit(consequent))
}

func (b *Backend) AddExactlyOne(vars []model.VarID) {
	converted := make([]cpmodel.BoolVar, len(vars))
	for i, v := range vars {
		converted[i] = b.vars[v]
	}
	b.builder.AddExactlyOne(converted...)
}

func (b *Backend) SetHint(v model.VarID, value int) {
	b.builder.AddHint(b.vars[v], int64(value))
}

func (b *Backend) Maximize(terms []model.LinearTerm) {
	b.builder.Maximize(b.linearExpr(terms))
}

func (b *Backend) Minimize(terms []model.LinearTerm) {
	b.builder.Minimize(b.linearExpr(terms))
}

// Solve instantiates the model, sets a time limit from whichever of
// timeLimit or ctx's deadline is tighter, and runs CP-SAT.
func (b *Backend) Solve(ctx context.Context, timeLimit time.Duration) (model.SolveResult, error) {
	start := time.Now()
	m, err := b.builder.Model()
	if err != nil {
		return model.SolveResult{}, &model.BackendError{Err: err}
	}

	params := &sppb.SatParameters{}
	if timeLimit > 0 {
		seconds := timeLimit.Seconds()
		params.MaxTimeInSeconds = &seconds
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline).Seconds()
		if params.MaxTimeInSeconds == nil || remaining < *params.MaxTimeInSeconds {
			params.MaxTimeInSeconds = &remaining
		}
	}

	response, err := cpmodel.SolveCpModelWithParameters(m, params)
	if err != nil {
		return model.SolveResult{}, &model.BackendError{Err: err}
	}

	status := toStatus(response.GetStatus())
	result := model.SolveResult{
		Status:       status,
		ObjectiveVal: response.GetObjectiveValue(),
		WallTime:     time.Since(start),
	}
	if status == model.StatusOptimal || status == model.StatusFeasible {
		result.Values = make(map[model.VarID]bool, len(b.vars))
		for i, v := range b.vars {
			result.Values[model.VarID(i)] = cpmodel.SolutionBooleanValue(response, v)
		}
	}
	return result, nil
}

// toStatus maps CP-SAT's status enum onto model.Status. CP-SAT reports
// UNKNOWN when it runs out of its time budget without proving optimality
// or infeasibility, which this package surfaces as StatusTimeout since
// every caller already passes an explicit timeLimit.
func toStatus(s cmpb.CpSolverStatus) model.Status {
	switch s {
	case cmpb.CpSolverStatus_OPTIMAL:
		return model.StatusOptimal
	case cmpb.CpSolverStatus_FEASIBLE:
		return model.StatusFeasible
	case cmpb.CpSolverStatus_INFEASIBLE:
		return model.StatusInfeasible
	case cmpb.CpSolverStatus_MODEL_INVALID:
		return model.StatusModelInvalid
	default:
		return model.StatusTimeout
	}
}
