// Package constraints implements the constraint registry and compiler
// (spec.md §4.4): it turns an ordered list of ConstraintDefinitions into
// model.ConstraintModel constraints plus an assembled objective, and can
// evaluate a finished Solution against the same definitions for reporting.
// Grounded on the HITL-configurable constraint DSL in
// scheduling_engine/core/constraint_types.py, reexpressed as Go structs
// instead of dataclasses.
package constraints

import "examtt/internal/domain"

// ConstraintType distinguishes hard constraints (must hold) from soft ones
// (contribute a weighted objective term).
type ConstraintType string

const (
	Hard ConstraintType = "hard"
	Soft ConstraintType = "soft"
)

// Category groups constraints for the admin-facing registry listing.
type Category string

const (
	CategoryCore          Category = "core"
	CategoryStudent       Category = "student_constraints"
	CategoryResource      Category = "resource_constraints"
	CategoryInvigilator   Category = "invigilator_constraints"
	CategoryTemporal      Category = "temporal_constraints"
	CategoryAcademic      Category = "academic_policies"
	CategoryOptimization  Category = "optimization_constraints"
	CategoryWorkloadBalance Category = "workload_balance"
)

// Severity ranks a violation's impact (spec.md §4.5 reuses the same scale).
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
)

// Violation is one constraint module's report of a single broken rule.
type Violation struct {
	ConstraintID      string
	Severity          Severity
	AffectedExams     []domain.ID
	AffectedResources []domain.ID
	Description       string
	Penalty           float64
}

// ParameterDef is a strongly-typed schema entry for one constraint
// parameter, mirroring ParameterDefinition in constraint_types.py.
type ParameterDef struct {
	Key         string
	Type        string // "int", "float", "enum", "bool"
	Value       any
	Default     any
	Description string
	Options     []any
}

// Mutability marks whether an admin can edit a constraint's parameters/
// weight/enabled flag through the HITL surface.
type Mutability string

const (
	ReadOnly Mutability = "read-only"
	Editable Mutability = "editable"
)

// ConstraintDefinition is the registry entry driving one Module instance,
// mirroring ConstraintDefinition in constraint_types.py.
type ConstraintDefinition struct {
	ID          string
	Name        string
	Description string
	Type        ConstraintType
	Category    Category
	Enabled     bool
	Mutability  Mutability
	Parameters  []ParameterDef
	Weight      float64 // only meaningful for Soft constraints

	factory func(ConstraintDefinition) Module
}

// GetParameter returns the named parameter's current value, or def if unset.
func (c ConstraintDefinition) GetParameter(key string, def any) any {
	for _, p := range c.Parameters {
		if p.Key == key {
			return p.Value
		}
	}
	return def
}
