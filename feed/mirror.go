package feed

import (
	"context"
	"fmt"
	"slices"

	"github.com/samthor/listbuf/diff"
	"github.com/samthor/listbuf/transport"
)

// Mirror is a local copy of a Feed's elements, kept by applying its changes in order.
// It is not safe for concurrent use.
type Mirror[T any] struct {
	epoch  int
	seq    int
	synced bool
	items  []T
}

// Items returns a copy of the mirrored elements.
func (m *Mirror[T]) Items() []T {
	return slices.Clone(m.items)
}

// Len returns the number of mirrored elements.
func (m *Mirror[T]) Len() int {
	return len(m.items)
}

// Position returns the epoch and sequence of the last applied change.
func (m *Mirror[T]) Position() (epoch, seq int) {
	return m.epoch, m.seq
}

// Synced reports whether a snapshot or reload has been applied.
func (m *Mirror[T]) Synced() bool {
	return m.synced
}

// Apply applies a single change.
// A KindReload change is always accepted and resynchronizes the mirror.
// Any other change must directly follow the last one of the same epoch, otherwise this returns ErrOutOfSync and the mirror is unchanged.
func (m *Mirror[T]) Apply(c Change[T]) error {
	if c.Kind == KindReload {
		return m.reload(c)
	}

	if !m.synced {
		return fmt.Errorf("%w: no snapshot before seq=%d", ErrOutOfSync, c.Seq)
	}
	if c.Epoch != m.epoch || c.Seq != m.seq+1 {
		return fmt.Errorf("%w: at %d/%d, got %d/%d", ErrOutOfSync, m.epoch, m.seq, c.Epoch, c.Seq)
	}

	switch c.Kind {
	case KindItems:
		if err := checkItems(len(m.items), c); err != nil {
			return err
		}
		r := diff.Result{Inserts: c.Inserts, Deletes: c.Deletes, Moves: c.Moves}
		next := diff.Apply(m.items, r, func(at int) T { return c.Items[at] })
		for i, v := range c.Items {
			next[i] = v
		}
		m.items = next

	case KindElement:
		if c.Len != len(m.items) {
			return fmt.Errorf("%w: element change for len=%d, have %d", ErrOutOfSync, c.Len, len(m.items))
		}
		for i := range c.Items {
			if i < 0 || i >= c.Len {
				return fmt.Errorf("%w: element %d out of range", ErrOutOfSync, i)
			}
		}
		for i, v := range c.Items {
			m.items[i] = v
		}

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrOutOfSync, c.Kind)
	}

	m.seq = c.Seq
	return nil
}

func (m *Mirror[T]) reload(c Change[T]) error {
	if c.Len < 0 || c.Len != len(c.Items) {
		return fmt.Errorf("%w: reload of len=%d with %d items", ErrOutOfSync, c.Len, len(c.Items))
	}

	items := make([]T, c.Len)
	for i := range items {
		v, ok := c.Items[i]
		if !ok {
			return fmt.Errorf("%w: reload missing item %d", ErrOutOfSync, i)
		}
		items[i] = v
	}

	m.epoch = c.Epoch
	m.seq = c.Seq
	m.items = items
	m.synced = true
	return nil
}

// checkItems verifies that an itemized change can be applied to a list of the given size.
func checkItems[T any](size int, c Change[T]) error {
	if c.Len < 0 {
		return fmt.Errorf("%w: negative len=%d", ErrOutOfSync, c.Len)
	}
	if size+len(c.Inserts)-len(c.Deletes) != c.Len {
		return fmt.Errorf("%w: %d+%d-%d != %d", ErrOutOfSync, size, len(c.Inserts), len(c.Deletes), c.Len)
	}

	from := make([]bool, size)
	to := make([]bool, c.Len)
	claim := func(seen []bool, i int) bool {
		if i < 0 || i >= len(seen) || seen[i] {
			return false
		}
		seen[i] = true
		return true
	}

	for _, d := range c.Deletes {
		if !claim(from, d) {
			return fmt.Errorf("%w: bad delete %d", ErrOutOfSync, d)
		}
	}
	for _, i := range c.Inserts {
		if _, ok := c.Items[i]; !ok || !claim(to, i) {
			return fmt.Errorf("%w: bad insert %d", ErrOutOfSync, i)
		}
	}
	for _, mv := range c.Moves {
		if !claim(from, mv.From) || !claim(to, mv.To) {
			return fmt.Errorf("%w: bad move %d->%d", ErrOutOfSync, mv.From, mv.To)
		}
	}
	for i := range c.Items {
		if i < 0 || i >= c.Len {
			return fmt.Errorf("%w: item %d out of range", ErrOutOfSync, i)
		}
	}
	return nil
}

// Stream reads changes sent by Serve.
type Stream[T any] struct {
	tr transport.Transport
}

// NewStream reads changes from an established transport.
func NewStream[T any](tr transport.Transport) *Stream[T] {
	return &Stream[T]{tr: tr}
}

// Dial connects to a Feed's WebSocket Handler.
// The connection is closed when ctx is done.
func Dial[T any](ctx context.Context, url string, opts transport.DialOpts) (*Stream[T], error) {
	tr, _, err := transport.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return NewStream[T](tr), nil
}

// Next waits for the next change.
func (s *Stream[T]) Next() (c Change[T], err error) {
	err = s.tr.ReadJSON(&c)
	return c, err
}

// Follow applies every change to m, calling fn (if non-nil) after each.
// It returns the first read or apply error.
func (s *Stream[T]) Follow(m *Mirror[T], fn func(c Change[T])) error {
	for {
		c, err := s.Next()
		if err != nil {
			return err
		}
		if err := m.Apply(c); err != nil {
			return err
		}
		if fn != nil {
			fn(c)
		}
	}
}
