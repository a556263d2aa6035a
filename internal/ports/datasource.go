// Package ports holds the external-collaborator interfaces consumed by the
// core engine: persistence (DataSource, ResultSink) and nothing else. The
// core never depends on a concrete implementation of either.
package ports

import (
	"context"
	"fmt"

	"examtt/internal/domain"
	"examtt/internal/problem"
)

// DataSource loads a Dataset for a scheduling session. Implementations are
// expected to be blocking; any concurrency (e.g. loading off-thread from a
// database) is the outer runtime's responsibility, not the core's.
type DataSource interface {
	GetDataset(ctx context.Context, sessionID domain.ID) (*problem.Dataset, error)
}

// ErrNotFound is returned when a DataSource has no dataset for sessionID.
type ErrNotFound struct {
	SessionID domain.ID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("dataset not found for session %s", e.SessionID)
}

// ErrUnreadable is returned when the underlying store could not be read.
type ErrUnreadable struct {
	Reason string
}

func (e ErrUnreadable) Error() string {
	return fmt.Sprintf("dataset unreadable: %s", e.Reason)
}
