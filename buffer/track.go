package buffer

import (
	"slices"

	"github.com/samthor/listbuf/owner"
)

// Track observes the given property keys on every published element that implements Observable.
// Subscriptions follow the published elements: they are replaced on every publish.
// A change refreshes the Buffer and then calls Delegate.DidChangeElement.
func (b *Buffer[T]) Track(keys ...string) {
	owner.Check(b.owner, "Track")
	b.unobserve()
	b.keys = slices.Clone(keys)
	b.observe()
}

// ElementChanged signals that the element with the given identifier has changed in place.
// This refreshes the Buffer (as its position may have changed) and then notifies the Delegate of its index, if it is still published.
func (b *Buffer[T]) ElementChanged(id string) {
	owner.Check(b.owner, "ElementChanged")

	b.Refresh(false, func() {
		index := slices.IndexFunc(b.front, func(v T) bool { return v.DiffIdentifier() == id })
		if index >= 0 && b.delegate != nil {
			b.delegate.DidChangeElement(uint(index))
		}
	})
}

func (b *Buffer[T]) observe() {
	if len(b.keys) == 0 {
		return
	}

	for _, v := range b.front {
		o, ok := any(v).(Observable)
		if !ok {
			continue
		}

		id := v.DiffIdentifier()
		changed := func() {
			b.owner.Post(func() { b.ElementChanged(id) })
		}
		for _, key := range b.keys {
			b.stops = append(b.stops, o.Observe(key, changed))
		}
	}
}

func (b *Buffer[T]) unobserve() {
	for _, stop := range b.stops {
		stop()
	}
	b.stops = nil
}
