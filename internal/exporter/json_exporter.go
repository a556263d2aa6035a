// Package exporter renders a solved solution.Solution into the JSON wire
// schema spec.md §6.4 names, the way the teacher's json_exporter.go renders
// a schedule: one exported struct tree, marshaled with json.MarshalIndent
// and written via os.WriteFile.
package exporter

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"examtt/internal/domain"
	"examtt/internal/solution"
)

// nullableFloat marshals to JSON null instead of erroring when the wrapped
// value is NaN or +/-Inf (spec.md §6.4: "non-finite floats are encoded as
// null"), which encoding/json otherwise refuses to marshal at all.
type nullableFloat float64

func (f nullableFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// ScheduleExport is the top-level document spec.md §6.4 describes.
type ScheduleExport struct {
	SolutionID     string             `json:"solution_id"`
	CreatedAt      string             `json:"created_at"`
	Status         string             `json:"status"`
	ObjectiveValue *nullableFloat     `json:"objective_value"`
	Assignments    []AssignmentExport `json:"assignments"`
	Conflicts      []ConflictExport   `json:"conflicts"`
	Quality        QualityExport      `json:"quality"`
}

// AssignmentExport is one exam's placement.
type AssignmentExport struct {
	ExamID         string   `json:"exam_id"`
	DayID          string   `json:"day_id"`
	SlotID         string   `json:"slot_id"`
	RoomIDs        []string `json:"room_ids"`
	InvigilatorIDs []string `json:"invigilator_ids"`
	Status         string   `json:"status"`
}

// ConflictExport is one detected collision.
type ConflictExport struct {
	ConflictID        string   `json:"conflict_id"`
	Kind              string   `json:"kind"`
	Severity          string   `json:"severity"`
	AffectedExams     []string `json:"affected_exams"`
	AffectedResources []string `json:"affected_resources"`
	Description       string   `json:"description"`
}

// QualityExport is the compact quality block embedded in the document.
type QualityExport struct {
	TotalScore  nullableFloat `json:"total_score"`
	Feasibility nullableFloat `json:"feasibility"`
	Completion  nullableFloat `json:"completion"`
}

// ToExport converts a Solution into the wire schema. sol.CreatedAt must
// already be stamped by the caller (solution.Solution's own doc comment:
// "never time.Now() inside core logic").
func ToExport(sol *solution.Solution) ScheduleExport {
	var objective *nullableFloat
	if sol.ObjectiveValue != nil {
		v := nullableFloat(*sol.ObjectiveValue)
		objective = &v
	}

	export := ScheduleExport{
		SolutionID:     sol.SolutionID.String(),
		CreatedAt:      sol.CreatedAt,
		Status:         string(sol.Status),
		ObjectiveValue: objective,
		Assignments:    buildAssignments(sol.Assignments),
		Conflicts:      buildConflicts(sol.Conflicts),
		Quality: QualityExport{
			TotalScore:  nullableFloat(sol.Quality.TotalScore),
			Feasibility: nullableFloat(sol.Quality.Feasibility),
			Completion:  nullableFloat(sol.Quality.Completion),
		},
	}
	return export
}

func buildAssignments(assignments []solution.Assignment) []AssignmentExport {
	out := make([]AssignmentExport, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, AssignmentExport{
			ExamID:         a.ExamID.String(),
			DayID:          a.DayID.String(),
			SlotID:         a.SlotID.String(),
			RoomIDs:        idStrings(a.RoomIDs),
			InvigilatorIDs: idStrings(a.InvigilatorIDs),
			Status:         string(a.Status),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExamID < out[j].ExamID })
	return out
}

func buildConflicts(conflicts []solution.ConflictReport) []ConflictExport {
	out := make([]ConflictExport, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ConflictExport{
			ConflictID:        c.ConflictID.String(),
			Kind:              string(c.Kind),
			Severity:          string(c.Severity),
			AffectedExams:     idStrings(c.AffectedExams),
			AffectedResources: idStrings(c.AffectedResources),
			Description:       c.Description,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConflictID < out[j].ConflictID })
	return out
}

func idStrings(ids []domain.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// WriteFile renders sol and writes it to filename as indented JSON.
func WriteFile(sol *solution.Solution, filename string) error {
	data, err := json.MarshalIndent(ToExport(sol), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
