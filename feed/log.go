package feed

import (
	"context"
	"sync"
)

// changeLog is a broadcast log of changes.
// It keeps only the changes some subscriber has yet to read, plus the state after the latest change for new subscribers.
type changeLog[T any] struct {
	cond    *sync.Cond
	epoch   int
	backlog int

	head    int         // Seq of the latest change
	changes []Change[T] // the last len(changes) changes, ending at head
	state   []T

	subs    map[int]int // subscriber to the last Seq it read
	evicted map[int]struct{}
	high    int
}

func newChangeLog[T any](epoch, backlog int, state []T) *changeLog[T] {
	return &changeLog[T]{
		cond:    sync.NewCond(&sync.Mutex{}),
		epoch:   epoch,
		backlog: backlog,
		state:   state,
		subs:    make(map[int]int),
		evicted: make(map[int]struct{}),
	}
}

// push adds a change, assigning its Epoch and Seq.
// The state must not be modified afterwards.
// Returns the number of subscribers dropped for falling behind.
func (l *changeLog[T]) push(c Change[T], state []T) (dropped int) {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()

	l.head++
	c.Epoch = l.epoch
	c.Seq = l.head
	l.state = state

	if len(l.subs) == 0 {
		l.changes = nil
		return 0 // noone is listening
	}

	for who, last := range l.subs {
		if l.head-last > l.backlog {
			delete(l.subs, who)
			l.evicted[who] = struct{}{}
			dropped++
		}
	}

	l.changes = append(l.changes, c)
	l.trim()
	l.cond.Broadcast()
	return dropped
}

// trim must be called under lock.
func (l *changeLog[T]) trim() {
	m := l.head
	for _, last := range l.subs {
		m = min(last, m)
	}

	start := l.head - len(l.changes)
	if strip := m - start; strip > 0 {
		l.changes = l.changes[strip:]
	}
}

// join registers a subscriber at the current head.
// It is removed when ctx is done.
func (l *changeLog[T]) join(ctx context.Context) *Cursor[T] {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()

	who := l.high
	l.high++
	l.subs[who] = l.head

	items := make(map[int]T, len(l.state))
	for i, v := range l.state {
		items[i] = v
	}
	snapshot := &Change[T]{
		Epoch: l.epoch,
		Seq:   l.head,
		Kind:  KindReload,
		Len:   len(l.state),
		Items: items,
	}

	context.AfterFunc(ctx, func() {
		l.cond.L.Lock()
		defer l.cond.L.Unlock()

		delete(l.subs, who)
		delete(l.evicted, who)
		l.trim()
		l.cond.Broadcast() // wake up the cursor if it's waiting
	})

	return &Cursor[T]{ctx: ctx, l: l, who: who, snapshot: snapshot}
}

// subscribers returns the number of joined subscribers.
func (l *changeLog[T]) subscribers() int {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()
	return len(l.subs)
}

// Cursor reads changes from a Feed, starting with a snapshot.
type Cursor[T any] struct {
	ctx      context.Context
	l        *changeLog[T]
	who      int
	snapshot *Change[T]
	err      error
}

// Next waits for and returns the next change.
// The first change is always a KindReload snapshot.
// It returns false once the cursor's context is done or it was dropped, see Err.
func (c *Cursor[T]) Next() (out Change[T], ok bool) {
	if c.snapshot != nil {
		out = *c.snapshot
		c.snapshot = nil
		return out, true
	}

	l := c.l
	l.cond.L.Lock()
	defer l.cond.L.Unlock()

	for {
		last, ok := l.subs[c.who]
		if !ok {
			if _, dropped := l.evicted[c.who]; dropped {
				delete(l.evicted, c.who)
				c.err = ErrDropped
			} else {
				c.err = context.Cause(c.ctx)
			}
			return out, false
		}

		if last == l.head {
			l.cond.Wait()
			continue
		}

		start := l.head - len(l.changes)
		out = l.changes[last-start]
		l.subs[c.who] = last + 1
		l.trim()
		return out, true
	}
}

// Err returns why Next stopped: ErrDropped, or the cause of the cursor's context.
func (c *Cursor[T]) Err() error {
	return c.err
}
