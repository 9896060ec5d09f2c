// Package owner runs functions serially on a single goroutine, which then "owns" any state they touch.
package owner

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOwner is wrapped by the panic raised when an owner-only operation runs elsewhere.
	ErrNotOwner = errors.New("not running on owner")
)

// Owner schedules work on a single serial context.
type Owner interface {
	// Post schedules fn to run on the owner. It never blocks.
	// Functions run in the order they were posted.
	Post(fn func())

	// Current returns true if the caller is running on the owner.
	Current() bool
}

// Check panics with ErrNotOwner if the caller is not running on o.
func Check(o Owner, op string) {
	if !o.Current() {
		panic(fmt.Errorf("%w: %s", ErrNotOwner, op))
	}
}
