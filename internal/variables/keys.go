// Package variables materializes the x/y/z/u decision-variable lattice
// (spec.md §3, §4.2) from a sealed Problem and the GA front-filter's
// retained-tuple sets.
package variables

import "examtt/internal/domain"

// XKey identifies x[e,s]: exam e starts at slot s.
type XKey struct {
	ExamID domain.ID
	SlotID domain.ID
}

// ZKey identifies z[e,s]: exam e occupies slot s.
type ZKey = XKey

// YKey identifies y[e,r,s]: exam e uses room r during slot s.
type YKey struct {
	ExamID domain.ID
	RoomID domain.ID
	SlotID domain.ID
}

// UKey identifies u[i,e,r,s]: invigilator i supervises exam e in room r at slot s.
type UKey struct {
	InvigilatorID domain.ID
	ExamID        domain.ID
	RoomID        domain.ID
	SlotID        domain.ID
}

// Indexer is a bidirectional key<->index map, giving O(1) lookup in either
// direction without ever re-deriving a key from an index (spec.md §4.2
// "maintain bidirectional key↔index maps").
type Indexer[K comparable] struct {
	index map[K]int
	keys  []K
}

func NewIndexer[K comparable]() *Indexer[K] {
	return &Indexer[K]{index: make(map[K]int)}
}

// Add assigns the next index to k if absent, and returns its index.
func (ix *Indexer[K]) Add(k K) int {
	if i, ok := ix.index[k]; ok {
		return i
	}
	i := len(ix.keys)
	ix.index[k] = i
	ix.keys = append(ix.keys, k)
	return i
}

func (ix *Indexer[K]) Lookup(k K) (int, bool) { i, ok := ix.index[k]; return i, ok }
func (ix *Indexer[K]) Has(k K) bool           { _, ok := ix.index[k]; return ok }
func (ix *Indexer[K]) Key(i int) K            { return ix.keys[i] }
func (ix *Indexer[K]) Len() int               { return len(ix.keys) }
func (ix *Indexer[K]) Keys() []K              { return ix.keys }
