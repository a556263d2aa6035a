// Package solution defines the system's output boundary: the Solution
// produced by the solve loop and refined by the conflict detector, plus the
// JSON-compatible wire schema described in spec.md §6.4.
package solution

import (
	"examtt/internal/domain"
)

// Status is the outcome of a scheduling attempt.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusFeasible   Status = "Feasible"
	StatusInfeasible Status = "Infeasible"
	StatusInvalid    Status = "Invalid"
)

// AssignmentStatus marks whether an individual assignment currently
// participates in a detected conflict.
type AssignmentStatus string

const (
	AssignmentOK       AssignmentStatus = "OK"
	AssignmentConflict AssignmentStatus = "Conflict"
)

// Assignment is one exam's placement in the timetable.
type Assignment struct {
	ExamID          domain.ID
	DayID           domain.ID
	SlotID          domain.ID
	RoomIDs         []domain.ID
	InvigilatorIDs  []domain.ID
	Status          AssignmentStatus
}

// Severity classifies how serious a detected conflict is.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ConflictKind names the category of collision detected post-solve.
type ConflictKind string

const (
	ConflictStudentTemporal  ConflictKind = "StudentTemporal"
	ConflictRoomCapacity     ConflictKind = "RoomCapacity"
	ConflictInvigilator      ConflictKind = "InvigilatorCollision"
	ConflictPrecedence       ConflictKind = "PrecedenceViolation"
)

// ConflictReport describes one detected conflict.
type ConflictReport struct {
	ConflictID        domain.ID
	Kind              ConflictKind
	Severity          Severity
	AffectedExams     []domain.ID
	AffectedResources []domain.ID
	Description       string
}

// QualitySummary is the compact quality block embedded in Solution; the
// full breakdown lives in internal/metrics.QualityScore.
type QualitySummary struct {
	TotalScore  float64
	Feasibility float64
	Completion  float64
}

// Solution is the system's output boundary value.
type Solution struct {
	SolutionID     domain.ID
	CreatedAt      string // RFC3339; stamped by the caller, never time.Now() inside core logic
	Status         Status
	ObjectiveValue *float64
	Assignments    []Assignment
	Conflicts      []ConflictReport
	Quality        QualitySummary
}

// SolutionMetadata accompanies a Solution into a ResultSink.
type SolutionMetadata struct {
	SessionID       domain.ID
	TerminationReason string
	SolverTimeSeconds float64
	Seed              int64
}
