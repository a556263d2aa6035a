package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
	"examtt/internal/solution"
)

func TestFileResultSinkWritesNamedByID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileResultSink(dir)

	sol := &solution.Solution{SolutionID: domain.NewID(), Status: solution.StatusOptimal}
	require.NoError(t, sink.Persist(context.Background(), sol, solution.SolutionMetadata{}))

	path := filepath.Join(dir, sol.SolutionID.String()+".json")
	_, err := os.Stat(path)
	require.NoError(t, err)
}
