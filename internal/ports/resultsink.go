package ports

import (
	"context"

	"examtt/internal/solution"
)

// ResultSink persists a finished Solution. Implementations (session records,
// audit logs, job records) live entirely outside the core.
type ResultSink interface {
	Persist(ctx context.Context, sol *solution.Solution, meta solution.SolutionMetadata) error
}
