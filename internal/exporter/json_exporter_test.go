package exporter

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"examtt/internal/domain"
	"examtt/internal/solution"
)

func sampleSolution() *solution.Solution {
	objective := 42.5
	return &solution.Solution{
		SolutionID:     domain.NewID(),
		CreatedAt:      "2026-07-30T00:00:00Z",
		Status:         solution.StatusOptimal,
		ObjectiveValue: &objective,
		Assignments: []solution.Assignment{
			{
				ExamID: domain.NewID(),
				DayID:  domain.NewID(),
				SlotID: domain.NewID(),
				Status: solution.AssignmentOK,
			},
		},
		Quality: solution.QualitySummary{TotalScore: 0.9, Feasibility: 1, Completion: 1},
	}
}

func TestToExportRoundTripsAssignmentsAndStatus(t *testing.T) {
	sol := sampleSolution()
	export := ToExport(sol)

	require.Equal(t, sol.SolutionID.String(), export.SolutionID)
	require.Equal(t, "Optimal", export.Status)
	require.Len(t, export.Assignments, 1)
	require.Equal(t, sol.Assignments[0].ExamID.String(), export.Assignments[0].ExamID)
	require.NotNil(t, export.ObjectiveValue)
	require.InDelta(t, 42.5, float64(*export.ObjectiveValue), 0.0001)
}

func TestToExportEncodesNonFiniteObjectiveAsNull(t *testing.T) {
	sol := sampleSolution()
	inf := math.Inf(1)
	sol.ObjectiveValue = &inf

	data, err := json.Marshal(ToExport(sol))
	require.NoError(t, err)
	require.Contains(t, string(data), `"objective_value":null`)
}

func TestToExportEncodesNilObjectiveAsNull(t *testing.T) {
	sol := sampleSolution()
	sol.ObjectiveValue = nil

	data, err := json.Marshal(ToExport(sol))
	require.NoError(t, err)
	require.Contains(t, string(data), `"objective_value":null`)
}

func TestWriteFileProducesValidJSON(t *testing.T) {
	sol := sampleSolution()
	path := filepath.Join(t.TempDir(), "solution.json")

	require.NoError(t, WriteFile(sol, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "Optimal", decoded["status"])
}
