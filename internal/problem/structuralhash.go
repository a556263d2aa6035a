package problem

import (
	"github.com/mitchellh/hashstructure/v2"

	"examtt/internal/domain"
)

// Snapshot is a value-only, fully-exported view of a sealed Problem's
// entity tables, built solely from exported data so it can be hashed or
// diffed from outside the package. Maps hash order-independently under
// hashstructure, so each Exam's Students map needs no extra sorting.
type Snapshot struct {
	Exams        []domain.Exam
	Rooms        []domain.Room
	Days         []domain.Day
	Invigilators []domain.Invigilator
}

// Snapshot materializes the Problem's current entity tables in the same
// deterministic order Exams/Rooms/Days/Invigilators already guarantee.
func (p *Problem) Snapshot() Snapshot {
	exams := p.Exams()
	examSnaps := make([]domain.Exam, len(exams))
	for i, e := range exams {
		examSnaps[i] = *e
	}

	rooms := p.Rooms()
	roomSnaps := make([]domain.Room, len(rooms))
	for i, r := range rooms {
		roomSnaps[i] = *r
	}

	days := p.Days()
	daySnaps := make([]domain.Day, len(days))
	for i, d := range days {
		daySnaps[i] = *d
	}

	invigilators := p.Invigilators()
	invSnaps := make([]domain.Invigilator, len(invigilators))
	for i, inv := range invigilators {
		invSnaps[i] = *inv
	}

	return Snapshot{Exams: examSnaps, Rooms: roomSnaps, Days: daySnaps, Invigilators: invSnaps}
}

// StructuralHash hashes a Problem's Snapshot, giving spec.md §8's
// "Idempotent ingestion" property (two Problems built from the same
// Dataset hash identically) a concrete, checkable value.
func StructuralHash(p *Problem) (uint64, error) {
	return hashstructure.Hash(p.Snapshot(), hashstructure.FormatV2, nil)
}
