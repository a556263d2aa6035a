package constraints

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"examtt/internal/model"
	"examtt/internal/problem"
	"examtt/internal/variables"
)

// CompileResult is everything downstream callers (the orchestrator, the
// metrics package) need after a compile: the live modules (for Evaluate),
// the variable handles, and each module's build statistics.
type CompileResult struct {
	Vars    *ModelVars
	Modules []Module
	Stats   map[string]Stats
}

// Compile turns a Registry's enabled definitions into constraints on m,
// following spec.md §4.4's build protocol: a core module's failure aborts
// the whole build (the returned error wraps every core failure via
// multierr); a dynamic module's failure downgrades that one constraint to
// disabled, logs a warning, and the build continues.
func Compile(p *problem.Problem, sv *variables.SharedVariables, m model.ConstraintModel, reg *Registry, log *zap.Logger) (*CompileResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	mv := BuildModelVars(sv, m)
	result := &CompileResult{Vars: mv, Stats: make(map[string]Stats)}

	var coreErrs error
	for _, def := range reg.List() {
		isCore := def.Category == CategoryCore || def.Type == Hard
		if !def.Enabled && !isCore {
			continue
		}
		if def.factory == nil {
			continue
		}
		mod := def.factory(def)
		count, err := mod.AddConstraints(p, sv, mv, m)
		if err != nil {
			if isCore {
				coreErrs = multierr.Append(coreErrs, &ConstraintBuildError{ConstraintID: def.ID, Err: err})
				continue
			}
			log.Warn("dynamic constraint failed to build, disabling",
				zap.String("constraint_id", def.ID), zap.Error(err))
			_ = reg.SetEnabled(def.ID, false)
			continue
		}
		log.Debug("constraint built", zap.String("constraint_id", def.ID), zap.Int("count", count))
		result.Modules = append(result.Modules, mod)
		result.Stats[def.ID] = mod.Statistics()
	}
	if coreErrs != nil {
		return nil, coreErrs
	}

	assembleObjective(m, sv, mv, result.Modules)
	return result, nil
}

// assembleObjective sums every soft module's weighted objective terms into
// one Maximize call: spec.md §4.4 defines the objective as a single
// weighted linear combination, not one call per constraint.
func assembleObjective(m model.ConstraintModel, sv *variables.SharedVariables, mv *ModelVars, modules []Module) {
	var terms []model.LinearTerm
	for _, mod := range modules {
		terms = append(terms, mod.ObjectiveTerms(sv, mv)...)
	}
	if len(terms) == 0 {
		return
	}
	// ObjectiveTerms already encodes each constraint's preferred direction
	// as a signed coefficient (negative to discourage, positive to
	// reward); the compiler always maximizes the combined sum.
	m.Maximize(terms)
}
