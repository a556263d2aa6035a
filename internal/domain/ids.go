// Package domain defines the entity tables of the exam timetabling problem:
// exams, rooms, days, time slots, students and invigilators, plus the
// decision-variable key types used to index the x/y/z/u lattice.
package domain

import "github.com/google/uuid"

// ID is the opaque 128-bit identifier used for every entity in the system.
// Equality is identity-equality, matching spec.md's data model.
type ID = uuid.UUID

// NewID generates a fresh random identifier.
func NewID() ID { return uuid.New() }

// ZeroID is the unset sentinel value.
var ZeroID ID
