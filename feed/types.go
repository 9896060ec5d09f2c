// Package feed streams the changes published by a buffer.Buffer to remote mirrors.
//
// Each subscriber first receives a snapshot of the whole list, then every change in order.
// Changes are sent over WebSocket (see Handler) or as a Server-Sent Event stream (see ServeSSE), and a Mirror replays them into a local copy.
package feed

import (
	"errors"

	"github.com/samthor/listbuf/diff"
	"go.uber.org/zap"
)

const (
	// DefaultBacklog is the number of changes a subscriber may fall behind before it is dropped.
	DefaultBacklog = 1024

	// CodeDropped is the transport error code sent to a subscriber that fell behind.
	CodeDropped = 1
)

var (
	// ErrDropped is reported by a Cursor which fell more than the backlog behind.
	ErrDropped = errors.New("subscriber fell behind")

	// ErrOutOfSync is returned by Mirror when a change does not follow the mirrored state.
	ErrOutOfSync = errors.New("mirror out of sync")
)

// Kind describes how a Change should be applied.
type Kind string

const (
	// KindItems is an itemized change: deletes, inserts and moves, plus updated values.
	KindItems Kind = "items"

	// KindReload replaces the whole list. Snapshots are sent as reloads.
	KindReload Kind = "reload"

	// KindElement replaces a single value in place.
	KindElement Kind = "element"
)

// Change is one publish of a buffer, as sent to subscribers.
type Change[T any] struct {
	// Epoch identifies the Feed instance; it changes when the server restarts.
	Epoch int `json:"epoch"`

	// Seq increases by one for every change of an epoch.
	Seq int `json:"seq"`

	Kind Kind `json:"kind"`

	// Len is the number of elements after this change.
	Len int `json:"len"`

	Inserts []int       `json:"inserts,omitempty"`
	Deletes []int       `json:"deletes,omitempty"`
	Moves   []diff.Move `json:"moves,omitempty"`

	// Items holds values by their index after this change.
	// For KindItems these are inserted values and values whose content changed.
	Items map[int]T `json:"items,omitempty"`
}

// Options configures a Feed.
type Options[T any] struct {
	// Equal reports whether a value's content is unchanged, so that it need not be resent.
	// Defaults to reflect.DeepEqual.
	Equal diff.EqualFunc[T]

	// Backlog is how many changes a subscriber may fall behind before it is dropped.
	// Defaults to DefaultBacklog if zero.
	Backlog int

	// SendRate limits changes sent per second to each subscriber; zero is unlimited.
	SendRate float64

	// SendBurst is the burst allowed over SendRate.
	// Defaults to one if zero.
	SendBurst int

	Logger *zap.Logger
}
