package constraints

import (
	"examtt/internal/model"
	"examtt/internal/problem"
	"examtt/internal/solution"
	"examtt/internal/variables"
)

// Stats is a module's self-reported build cost (spec.md §4.4's
// get_statistics() contract).
type Stats struct {
	ConstraintCount int
	TimeMS          float64
}

// Module is the contract every constraint implements: add its constraints
// to the model, report what it added, and evaluate a finished solution for
// violations of its own rule. Modules never mutate the Problem.
type Module interface {
	Definition() ConstraintDefinition
	AddConstraints(p *problem.Problem, sv *variables.SharedVariables, mv *ModelVars, m model.ConstraintModel) (int, error)
	Statistics() Stats
	Evaluate(p *problem.Problem, sol *solution.Solution) []Violation
	// ObjectiveTerms returns this module's weighted contribution to the
	// model's objective. Hard constraints always return nil.
	ObjectiveTerms(sv *variables.SharedVariables, mv *ModelVars) []model.LinearTerm
}

// baseModule centralizes the bookkeeping every Module embeds: its
// definition and the stats from its last AddConstraints call.
type baseModule struct {
	def   ConstraintDefinition
	stats Stats
}

func (b *baseModule) Definition() ConstraintDefinition { return b.def }
func (b *baseModule) Statistics() Stats                { return b.stats }

func (b *baseModule) record(count int) int {
	b.stats.ConstraintCount = count
	return count
}
