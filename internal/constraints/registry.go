package constraints

import "fmt"

// Registry holds every ConstraintDefinition known to the engine, core and
// dynamic alike, keyed by ID. It is the HITL admin surface's backing
// store: listing, enabling/disabling, and editing weights/parameters all
// go through it before a Compile call picks them up.
type Registry struct {
	order []string
	defs  map[string]ConstraintDefinition
}

// NewRegistry builds a Registry pre-populated with the eleven core and five
// dynamic constraints (spec.md §4.4).
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]ConstraintDefinition)}
	for _, d := range NewCoreDefinitions() {
		r.add(d)
	}
	for _, d := range NewDynamicDefinitions() {
		r.add(d)
	}
	return r
}

func (r *Registry) add(d ConstraintDefinition) {
	if _, exists := r.defs[d.ID]; !exists {
		r.order = append(r.order, d.ID)
	}
	r.defs[d.ID] = d
}

// List returns every definition in registration order (core first, then
// dynamic, each in the order NewCoreDefinitions/NewDynamicDefinitions
// declared them).
func (r *Registry) List() []ConstraintDefinition {
	out := make([]ConstraintDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

func (r *Registry) Get(id string) (ConstraintDefinition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// SetEnabled toggles a constraint. Core constraints reject the call: they
// are always applied (spec.md §4.4).
func (r *Registry) SetEnabled(id string, enabled bool) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("constraints: unknown constraint %q", id)
	}
	if d.Category == CategoryCore {
		return fmt.Errorf("constraints: %q is core and cannot be disabled", id)
	}
	if d.Mutability != Editable {
		return fmt.Errorf("constraints: %q is read-only", id)
	}
	d.Enabled = enabled
	r.defs[id] = d
	return nil
}

// SetWeight updates a soft constraint's objective weight.
func (r *Registry) SetWeight(id string, weight float64) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("constraints: unknown constraint %q", id)
	}
	if d.Type != Soft {
		return fmt.Errorf("constraints: %q is not a soft constraint", id)
	}
	if d.Mutability != Editable {
		return fmt.Errorf("constraints: %q is read-only", id)
	}
	d.Weight = weight
	r.defs[id] = d
	return nil
}

// SetParameter updates one named parameter's current value, validating it
// against the parameter's declared options when present.
func (r *Registry) SetParameter(id, key string, value any) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("constraints: unknown constraint %q", id)
	}
	if d.Mutability != Editable {
		return fmt.Errorf("constraints: %q is read-only", id)
	}
	for i, p := range d.Parameters {
		if p.Key != key {
			continue
		}
		if len(p.Options) > 0 && !containsAny(p.Options, value) {
			return fmt.Errorf("constraints: %v is not a valid value for %s.%s", value, id, key)
		}
		d.Parameters[i].Value = value
		r.defs[id] = d
		return nil
	}
	return fmt.Errorf("constraints: %q has no parameter %q", id, key)
}

func containsAny(options []any, value any) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
