// Package ingest implements a ports.DataSource backed by a JSON file on
// disk, the way the teacher's loader package reads a course/teacher JSON
// tree via os.ReadFile + json.Unmarshal. Since problem.Dataset is already
// the flat wire shape (unlike the teacher's legacy format, which needs a
// DomainBuilder translation step), this loader skips straight to decoding
// into it.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"examtt/internal/domain"
	"examtt/internal/ports"
	"examtt/internal/problem"
)

// FileDataSource loads one Dataset JSON file regardless of the requested
// session ID; it exists for local runs and tests, not multi-session
// deployments.
type FileDataSource struct {
	Path string
}

func NewFileDataSource(path string) *FileDataSource {
	return &FileDataSource{Path: path}
}

func (f *FileDataSource) GetDataset(_ context.Context, sessionID domain.ID) (*problem.Dataset, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrNotFound{SessionID: sessionID}
		}
		return nil, ports.ErrUnreadable{Reason: err.Error()}
	}

	var ds problem.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, ports.ErrUnreadable{Reason: fmt.Sprintf("decoding %s: %v", f.Path, err)}
	}
	return &ds, nil
}
