package buffer

import (
	"reflect"
	"sync"
	"testing"
)

type row struct {
	id string

	lock     sync.Mutex
	rank     int
	watchers map[string][]func()
}

func (r *row) DiffIdentifier() string {
	return r.id
}

func (r *row) Observe(key string, fn func()) (stop func()) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.watchers == nil {
		r.watchers = map[string][]func(){}
	}
	r.watchers[key] = append(r.watchers[key], fn)
	at := len(r.watchers[key]) - 1

	return func() {
		r.lock.Lock()
		defer r.lock.Unlock()
		r.watchers[key][at] = nil
	}
}

func (r *row) setRank(rank int) {
	r.lock.Lock()
	r.rank = rank
	fns := append([]func(){}, r.watchers["rank"]...)
	r.lock.Unlock()

	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func (r *row) getRank() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.rank
}

func (r *row) active(key string) (count int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, fn := range r.watchers[key] {
		if fn != nil {
			count++
		}
	}
	return count
}

func TestTrack(t *testing.T) {
	a := &row{id: "a", rank: 1}
	b := &row{id: "b", rank: 2}
	c := &row{id: "c", rank: 3}

	buf, l, rec := newForTest(t, []*row{a, b, c}, Options[*row]{
		Sort: func(x, y *row) bool { return x.getRank() < y.getRank() },
	})

	l.Do(func() {
		buf.Track("rank")
	})
	if a.active("rank") != 1 || a.active("other") != 0 {
		t.Errorf("expected a single rank watcher")
	}

	changed := make(chan struct{})
	l.Do(func() {
		// wrap the recorder so we can see when the element change lands
		buf.SetDelegate(&elementHook{recorder: rec, ch: changed})
	})

	a.setRank(10) // a now sorts last
	waitFor(t, changed)

	l.Do(func() {
		if !reflect.DeepEqual(buf.Elements(), []*row{b, c, a}) {
			t.Errorf("expected resort after change")
		}
		last := rec.events[len(rec.events)-1]
		if last != "element(2)" {
			t.Errorf("expected change at new index 2, was: %v", rec.events)
		}
	})

	// subscriptions are replaced on every publish, not accumulated
	if a.active("rank") != 1 {
		t.Errorf("expected a single active watcher after publish, was: %d", a.active("rank"))
	}
}

type elementHook struct {
	*recorder
	ch   chan struct{}
	once sync.Once
}

func (h *elementHook) DidChangeElement(i uint) {
	h.recorder.DidChangeElement(i)
	h.once.Do(func() { close(h.ch) })
}
