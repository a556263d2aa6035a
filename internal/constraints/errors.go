package constraints

import "fmt"

// ConstraintBuildError wraps a core constraint module's AddConstraints
// failure. Compile aggregates one or more of these via multierr and
// aborts the build — core constraints have no degraded mode.
type ConstraintBuildError struct {
	ConstraintID string
	Err          error
}

func (e *ConstraintBuildError) Error() string {
	return fmt.Sprintf("constraints: core constraint %q failed to build: %v", e.ConstraintID, e.Err)
}

func (e *ConstraintBuildError) Unwrap() error { return e.Err }
