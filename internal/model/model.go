// Package model defines ConstraintModel, the backend-agnostic boundary
// between the constraint compiler (internal/constraints) and whatever
// solver actually finds an assignment (spec.md §6.2). Core code only ever
// imports this package, never internal/backend/...; main wires the chosen
// adapter in.
package model

import (
	"context"
	"time"
)

// VarID is an opaque handle to a boolean decision variable created via
// NewBoolVar. It carries no meaning outside the ConstraintModel that
// created it.
type VarID int32

// Literal is a VarID or its negation, the unit every boolean constraint is
// built from.
type Literal struct {
	Var     VarID
	Negated bool
}

// Lit returns the positive literal for v.
func Lit(v VarID) Literal { return Literal{Var: v} }

// Not returns the negated literal for v.
func Not(v VarID) Literal { return Literal{Var: v, Negated: true} }

// LinearTerm is one coefficient×variable summand of a linear expression.
type LinearTerm struct {
	Var         VarID
	Coefficient int64
}

// Status is the outcome a backend reports for one Solve call.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusModelInvalid
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusModelInvalid:
		return "model_invalid"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// SolveResult is the backend's report for one Solve invocation. Values is
// populated for StatusOptimal and StatusFeasible only.
type SolveResult struct {
	Status       Status
	Values       map[VarID]bool
	ObjectiveVal float64
	WallTime     time.Duration
}

// ConstraintModel is the boundary the constraint compiler and orchestrator
// build against; internal/backend/reference and internal/backend/ortools
// are its two adapters (spec.md §6.2, out of core scope per §1).
type ConstraintModel interface {
	NewBoolVar(name string) VarID
	AddLinearLE(terms []LinearTerm, bound int64)
	AddLinearEQ(terms []LinearTerm, rhs int64)
	AddBoolOr(lits []Literal)
	AddImplication(antecedent, consequent Literal)
	AddExactlyOne(vars []VarID)
	SetHint(v VarID, value int)
	Maximize(terms []LinearTerm)
	Minimize(terms []LinearTerm)
	Solve(ctx context.Context, timeLimit time.Duration) (SolveResult, error)
}
