package buffer

import (
	"context"
	"slices"
	"sync"

	"github.com/samthor/listbuf/diff"
	"github.com/samthor/listbuf/owner"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Buffer is a double-buffered list of elements.
// Candidates are passed to Update, filtered, sorted and diffed against the published elements, and then published.
// At most one computation runs at a time; candidates submitted meanwhile are coalesced so only the latest is computed next.
type Buffer[T diff.Diffable] struct {
	owner     owner.Owner
	log       *zap.Logger
	threshold int
	equal     diff.EqualFunc[T]
	bg        *errgroup.Group

	// owner-only
	front    []T
	back     []T
	filter   func(T) bool
	less     func(a, b T) bool
	delegate Delegate
	keys     []string
	stops    []func()

	lock      sync.Mutex
	computing bool
	pending   *request
}

type request struct {
	synchronous bool
	done        func()
}

type computed[T any] struct {
	elements []T
	result   diff.Result
}

// New returns a Buffer which initially publishes the passed elements as-is.
// The context bounds the default owner, if one is created.
func New[T diff.Diffable](ctx context.Context, initial []T, opts Options[T]) *Buffer[T] {
	if opts.DiffThreshold == 0 {
		opts.DiffThreshold = DefaultDiffThreshold
	}
	if opts.Owner == nil {
		opts.Owner = owner.New(ctx)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	bg := &errgroup.Group{}
	bg.SetLimit(1)

	return &Buffer[T]{
		owner:     opts.Owner,
		log:       opts.Logger,
		threshold: opts.DiffThreshold,
		equal:     opts.Equal,
		bg:        bg,
		front:     slices.Clone(initial),
		back:      slices.Clone(initial),
		filter:    opts.Filter,
		less:      opts.Sort,
	}
}

// Owner returns the owner that this Buffer must be used from.
func (b *Buffer[T]) Owner() owner.Owner {
	return b.owner
}

// SetDelegate sets the Delegate, or clears it if nil.
func (b *Buffer[T]) SetDelegate(d Delegate) {
	owner.Check(b.owner, "SetDelegate")
	b.delegate = d
}

// SetFilter replaces the filter used for future computations.
// Call Refresh to apply it to the current elements.
func (b *Buffer[T]) SetFilter(filter func(T) bool) {
	owner.Check(b.owner, "SetFilter")
	b.filter = filter
}

// SetSort replaces the sort used for future computations.
// Call Refresh to apply it to the current elements.
func (b *Buffer[T]) SetSort(less func(a, b T) bool) {
	owner.Check(b.owner, "SetSort")
	b.less = less
}

// Elements returns a copy of the published elements.
func (b *Buffer[T]) Elements() []T {
	owner.Check(b.owner, "Elements")
	return slices.Clone(b.front)
}

// Len returns the number of published elements.
func (b *Buffer[T]) Len() int {
	owner.Check(b.owner, "Len")
	return len(b.front)
}

// At returns the published element at the given index.
func (b *Buffer[T]) At(index int) T {
	owner.Check(b.owner, "At")
	return b.front[index]
}

// Update submits values as the next desired state.
// If synchronous is true, everything happens before this returns; otherwise the diff runs in the background and is published later on the owner.
// The done callback, if non-nil, runs after this request is published.
// If this request is superseded by a later Update before it publishes, done is never called.
func (b *Buffer[T]) Update(values []T, synchronous bool, done func()) {
	owner.Check(b.owner, "Update")
	b.back = slices.Clone(values)
	b.submit(request{synchronous: synchronous, done: done})
}

// Refresh resubmits the last values passed to Update, e.g., after changing the filter or sort.
func (b *Buffer[T]) Refresh(synchronous bool, done func()) {
	owner.Check(b.owner, "Refresh")
	b.submit(request{synchronous: synchronous, done: done})
}

func (b *Buffer[T]) submit(req request) {
	b.lock.Lock()
	if b.computing {
		if b.pending != nil {
			b.log.Debug("coalesced pending request")
		}
		b.pending = &req
		b.lock.Unlock()
		return
	}
	b.computing = true
	b.lock.Unlock()

	b.start(req)
}

// start must be called on the owner with computing set.
func (b *Buffer[T]) start(req request) {
	// The worker only sees these copies. front is replaced on publish, never written to.
	front := b.front
	back := slices.Clone(b.back)
	filter, less, equal := b.filter, b.less, b.equal

	run := func() computed[T] {
		return compute(front, back, filter, less, equal)
	}

	if req.synchronous {
		b.finish(req, run())
		return
	}

	b.bg.Go(func() error {
		c := run()
		b.owner.Post(func() { b.finish(req, c) })
		return nil
	})
}

func compute[T diff.Diffable](front, back []T, filter func(T) bool, less func(a, b T) bool, equal diff.EqualFunc[T]) computed[T] {
	if filter != nil {
		back = slices.DeleteFunc(back, func(v T) bool { return !filter(v) })
	}
	if less != nil {
		slices.SortStableFunc(back, func(a, b T) int {
			if less(a, b) {
				return -1
			} else if less(b, a) {
				return +1
			}
			return 0
		})
	}
	return computed[T]{elements: back, result: diff.Diff(front, back, equal)}
}

// finish runs on the owner once a computation is ready.
func (b *Buffer[T]) finish(req request, c computed[T]) {
	b.lock.Lock()
	if next := b.pending; next != nil {
		// someone asked for something newer: drop this result, compute again
		b.pending = nil
		b.lock.Unlock()
		b.log.Debug("superseded computation", zap.Int("len", len(c.elements)))
		b.start(*next)
		return
	}
	b.lock.Unlock()

	b.publish(c)

	// the delegate may have called Update
	b.lock.Lock()
	next := b.pending
	b.pending = nil
	if next == nil {
		b.computing = false
	}
	b.lock.Unlock()

	if req.done != nil {
		req.done()
	}

	if next == nil {
		return
	}

	// done may have submitted an even newer request
	b.lock.Lock()
	if b.pending != nil {
		next = b.pending
		b.pending = nil
	}
	b.lock.Unlock()
	b.start(*next)
}

func (b *Buffer[T]) publish(c computed[T]) {
	b.unobserve()
	b.front = c.elements
	b.observe()

	r := c.result
	b.log.Debug("publish",
		zap.Int("len", len(c.elements)),
		zap.Int("inserts", len(r.Inserts)),
		zap.Int("deletes", len(r.Deletes)),
		zap.Int("updates", len(r.Updates)),
		zap.Int("moves", len(r.Moves)),
	)

	d := b.delegate
	if d == nil {
		return
	}

	if len(r.Inserts) > b.threshold || len(r.Deletes) > b.threshold {
		d.DidChangeAllContent()
		return
	}

	d.WillChangeContent()
	d.DidInsert(toUint(r.Inserts))
	d.DidDelete(toUint(r.Deletes))
	for _, m := range r.Moves {
		d.DidMove(uint(m.From), uint(m.To))
	}
	d.DidChangeContent()
}

func toUint(indices []int) (out []uint) {
	out = make([]uint, len(indices))
	for i, v := range indices {
		out[i] = uint(v)
	}
	return out
}
