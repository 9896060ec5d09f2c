package owner

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Loop is an Owner backed by a dedicated goroutine.
// It runs until the context passed to New is done; tasks still pending at that point are dropped.
type Loop struct {
	cond    *sync.Cond
	tasks   []func()
	stopped bool

	// id of the goroutine running tasks
	id atomic.Uint64

	doneCh chan struct{}
}

// New starts a Loop.
func New(ctx context.Context) (l *Loop) {
	l = &Loop{
		cond:   sync.NewCond(&sync.Mutex{}),
		doneCh: make(chan struct{}),
	}

	context.AfterFunc(ctx, func() {
		l.cond.L.Lock()
		defer l.cond.L.Unlock()
		l.stopped = true
		l.cond.Broadcast()
	})

	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.doneCh)
	l.id.Store(goid())

	for {
		fn, ok := l.next()
		if !ok {
			return
		}

		fn()
	}
}

func (l *Loop) next() (fn func(), ok bool) {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()

	for len(l.tasks) == 0 && !l.stopped {
		l.cond.Wait()
	}
	if l.stopped {
		l.tasks = nil
		return nil, false
	}

	fn = l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *Loop) Post(fn func()) {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()

	if l.stopped {
		return // noone will run this
	}
	l.tasks = append(l.tasks, fn)
	l.cond.Signal()
}

func (l *Loop) Current() bool {
	return l.id.Load() == goid()
}

// Do runs fn on the owner and waits for it to complete.
// If already on the owner, it runs inline.
// Returns false if the Loop stopped before fn could run.
func (l *Loop) Do(fn func()) (ran bool) {
	if l.Current() {
		fn()
		return true
	}

	ch := make(chan struct{})
	l.Post(func() {
		fn()
		close(ch)
	})

	select {
	case <-ch:
		return true
	case <-l.doneCh:
		// might have raced with the final task
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
}

// Done returns a channel which is closed once the Loop has stopped running tasks.
func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}

// goid returns the ID of the calling goroutine, as printed in its stack trace.
func goid() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
