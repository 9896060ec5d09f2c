// Package diff computes the insert, delete, update and move operations that turn one ordered sequence into another.
package diff

import (
	"errors"
)

var (
	// ErrInvariant is wrapped by the panic raised when a computed Result does not account for both sequences.
	ErrInvariant = errors.New("diff invariant violated")
)

// Diffable is implemented by elements with a stable identity.
// Two elements with the same identifier are "the same element", even if their content differs.
type Diffable interface {
	DiffIdentifier() string
}

// EqualFunc reports whether two elements already matched by identity have the same content.
// The first argument is from the old sequence.
type EqualFunc[T any] func(prev, next T) bool

// Move records that the element at From in the old sequence is now at To in the new sequence.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Result describes how to turn an old sequence into a new one.
// All index slices are ascending.
type Result struct {
	// Inserts are indices into the new sequence.
	Inserts []int `json:"inserts,omitempty"`

	// Deletes are indices into the old sequence.
	Deletes []int `json:"deletes,omitempty"`

	// Updates are indices into the old sequence whose matched element changed content.
	Updates []int `json:"updates,omitempty"`

	// Moves are ordered by their target index.
	Moves []Move `json:"moves,omitempty"`

	oldToNew []int
	newToOld []int
}

// HasChanges returns true if the two sequences differed in any way.
func (r *Result) HasChanges() bool {
	return len(r.Inserts) != 0 || len(r.Deletes) != 0 || len(r.Updates) != 0 || len(r.Moves) != 0
}

// ChangeCount returns the total number of operations.
func (r *Result) ChangeCount() int {
	return len(r.Inserts) + len(r.Deletes) + len(r.Updates) + len(r.Moves)
}

// NewIndex returns where the old element at index now lives, or false if it was deleted.
func (r *Result) NewIndex(at int) (int, bool) {
	if at < 0 || at >= len(r.oldToNew) || r.oldToNew[at] < 0 {
		return -1, false
	}
	return r.oldToNew[at], true
}

// OldIndex returns where the new element at index used to live, or false if it was inserted.
func (r *Result) OldIndex(at int) (int, bool) {
	if at < 0 || at >= len(r.newToOld) || r.newToOld[at] < 0 {
		return -1, false
	}
	return r.newToOld[at], true
}
