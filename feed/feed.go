package feed

import (
	"context"
	"reflect"

	"github.com/samthor/listbuf/buffer"
	"github.com/samthor/listbuf/diff"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Feed is a buffer.Delegate which records every publish of its Buffer as a Change.
type Feed[T diff.Diffable] struct {
	b         *buffer.Buffer[T]
	log       *zap.Logger
	equal     diff.EqualFunc[T]
	sendRate  rate.Limit
	sendBurst int
	changes   *changeLog[T]

	// owner-only
	prev    []T
	pending Change[T]
}

// New builds a Feed and installs it as the delegate of b.
// This must be called on the owner of b.
func New[T diff.Diffable](b *buffer.Buffer[T], opts Options[T]) *Feed[T] {
	if opts.Equal == nil {
		opts.Equal = func(prev, next T) bool { return reflect.DeepEqual(prev, next) }
	}
	if opts.Backlog == 0 {
		opts.Backlog = DefaultBacklog
	}
	if opts.SendBurst == 0 {
		opts.SendBurst = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	sendRate := rate.Inf
	if opts.SendRate > 0 {
		sendRate = rate.Limit(opts.SendRate)
	}

	prev := b.Elements()
	epoch := newEpoch()

	f := &Feed[T]{
		b:         b,
		log:       opts.Logger.With(zap.Int("epoch", epoch)),
		equal:     opts.Equal,
		sendRate:  sendRate,
		sendBurst: opts.SendBurst,
		changes:   newChangeLog(epoch, opts.Backlog, prev),
		prev:      prev,
	}
	b.SetDelegate(f)
	return f
}

// Epoch returns the epoch stamped on every Change of this Feed.
func (f *Feed[T]) Epoch() int {
	return f.changes.epoch
}

// Subscribers returns the number of currently joined cursors.
func (f *Feed[T]) Subscribers() int {
	return f.changes.subscribers()
}

// Join returns a Cursor which yields a snapshot of the published elements, then every following change.
// The cursor stops when ctx is done.
func (f *Feed[T]) Join(ctx context.Context) *Cursor[T] {
	return f.changes.join(ctx)
}

func (f *Feed[T]) WillChangeContent() {
	f.pending = Change[T]{Kind: KindItems}
}

func (f *Feed[T]) DidInsert(indices []uint) {
	f.pending.Inserts = toInt(indices)
}

func (f *Feed[T]) DidDelete(indices []uint) {
	f.pending.Deletes = toInt(indices)
}

func (f *Feed[T]) DidMove(from, to uint) {
	f.pending.Moves = append(f.pending.Moves, diff.Move{From: int(from), To: int(to)})
}

func (f *Feed[T]) DidChangeContent() {
	c := f.pending
	f.pending = Change[T]{}

	next := f.b.Elements()
	c.Len = len(next)
	c.Items = f.changedItems(c, next)
	f.push(c, next)
}

// changedItems returns the inserted values of c, and the values whose content differs from what replaying c on the previous elements gives.
func (f *Feed[T]) changedItems(c Change[T], next []T) (items map[int]T) {
	items = make(map[int]T)
	for _, i := range c.Inserts {
		items[i] = next[i]
	}

	r := diff.Result{Inserts: c.Inserts, Deletes: c.Deletes, Moves: c.Moves}
	replayed := diff.Apply(f.prev, r, func(at int) T { return next[at] })
	for i, v := range next {
		if _, ok := items[i]; ok {
			continue
		}
		if !f.equal(replayed[i], v) {
			items[i] = v
		}
	}

	if len(items) == 0 {
		return nil
	}
	return items
}

func (f *Feed[T]) DidChangeAllContent() {
	next := f.b.Elements()
	items := make(map[int]T, len(next))
	for i, v := range next {
		items[i] = v
	}
	f.push(Change[T]{Kind: KindReload, Len: len(next), Items: items}, next)
}

func (f *Feed[T]) DidChangeElement(index uint) {
	next := f.b.Elements()
	i := int(index)
	f.push(Change[T]{Kind: KindElement, Len: len(next), Items: map[int]T{i: next[i]}}, next)
}

func (f *Feed[T]) push(c Change[T], next []T) {
	f.prev = next
	dropped := f.changes.push(c, next)
	if dropped > 0 {
		f.log.Warn("dropped slow subscribers", zap.Int("count", dropped), zap.Int("backlog", f.changes.backlog))
	}
}

func (f *Feed[T]) limiter() *rate.Limiter {
	return rate.NewLimiter(f.sendRate, f.sendBurst)
}

func toInt(indices []uint) (out []int) {
	if len(indices) == 0 {
		return nil
	}
	out = make([]int, len(indices))
	for i, v := range indices {
		out[i] = int(v)
	}
	return out
}
