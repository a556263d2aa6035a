package ingest

import (
	"context"
	"os"
	"path/filepath"

	"examtt/internal/exporter"
	"examtt/internal/solution"
)

// FileResultSink persists a Solution as a JSON file named after its
// SolutionID under Dir, using internal/exporter's wire schema.
type FileResultSink struct {
	Dir string
}

func NewFileResultSink(dir string) *FileResultSink {
	return &FileResultSink{Dir: dir}
}

func (s *FileResultSink) Persist(_ context.Context, sol *solution.Solution, _ solution.SolutionMetadata) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(s.Dir, sol.SolutionID.String()+".json")
	return exporter.WriteFile(sol, path)
}
