// Package buffer keeps a published ("front") list of elements and moves it to new states off the caller's critical path.
// Changes are computed with package diff and delivered to a Delegate, in order, on a single owner.
package buffer

import (
	"github.com/samthor/listbuf/diff"
	"github.com/samthor/listbuf/owner"
	"go.uber.org/zap"
)

const (
	// DefaultDiffThreshold is used if Options.DiffThreshold is zero.
	DefaultDiffThreshold = 300
)

// Delegate is notified about changes to a Buffer's published elements.
// All methods are called on the Buffer's owner.
//
// For a single publish, the delegate sees either WillChangeContent, DidInsert, DidDelete, any DidMove calls and DidChangeContent (in that order), or just DidChangeAllContent.
type Delegate interface {
	WillChangeContent()

	// DidInsert passes indices into the new elements.
	DidInsert(indices []uint)

	// DidDelete passes indices into the old elements.
	DidDelete(indices []uint)

	DidMove(from, to uint)
	DidChangeContent()

	// DidChangeAllContent is called instead of itemized updates when there are too many changes.
	// It's probably cheaper to reload everything.
	DidChangeAllContent()

	// DidChangeElement is called when a tracked element changed in place.
	DidChangeElement(index uint)
}

// Observable is implemented by elements whose properties can change in place.
// Observe must call fn whenever the named property changes, from any goroutine, until stop is called.
type Observable interface {
	Observe(key string, fn func()) (stop func())
}

// Options configures a Buffer.
type Options[T any] struct {
	// DiffThreshold is the largest number of inserts (or deletes) that is delivered as itemized updates.
	// A count equal to the threshold is still itemized; only a count above it becomes DidChangeAllContent.
	// This is inclusive, unlike a strict "less than" check.
	// Defaults to DefaultDiffThreshold if zero.
	DiffThreshold int

	// Equal compares the content of elements matched by identity.
	// If nil, matched elements are never reported as updated.
	Equal diff.EqualFunc[T]

	// Filter, if non-nil, drops elements for which it returns false.
	Filter func(T) bool

	// Sort, if non-nil, is a "less" function used to stable sort elements.
	Sort func(a, b T) bool

	// Owner is where all public methods must be called and where the Delegate is notified.
	// If nil, a new owner.Loop is created which runs until the Buffer's context is done.
	Owner owner.Owner

	// Logger receives debug logs. Defaults to a no-op logger.
	Logger *zap.Logger
}
