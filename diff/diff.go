package diff

import (
	"fmt"
	"sort"
)

// entry tracks one identity across both sequences.
type entry struct {
	oldCount int
	newCount int

	// oldIndexes is a stack: pushed in descending order, so pops yield ascending old indices.
	oldIndexes []int
}

func (e *entry) pop() (index int, ok bool) {
	last := len(e.oldIndexes) - 1
	if last < 0 {
		return -1, false
	}
	index = e.oldIndexes[last]
	e.oldIndexes = e.oldIndexes[:last]
	return index, true
}

// Diff compares two sequences of Diffable elements.
// If equal is nil, every pair matched by identity counts as unchanged.
func Diff[T Diffable](prev, next []T, equal EqualFunc[T]) Result {
	return DiffBy(prev, next, T.DiffIdentifier, equal)
}

// Strings compares two sequences of strings, where each string is its own identity.
func Strings(prev, next []string) Result {
	return DiffBy(prev, next, func(s string) string { return s }, nil)
}

// DiffBy compares two sequences, matching elements by the given key.
// Elements sharing a key are matched in order: the k-th occurrence in prev pairs with the k-th in next.
// This panics with ErrInvariant if the result does not account for both sequences.
func DiffBy[T any, K comparable](prev, next []T, key func(T) K, equal EqualFunc[T]) Result {
	table := make(map[K]*entry, len(prev))
	lookup := func(k K) *entry {
		e, ok := table[k]
		if !ok {
			e = &entry{}
			table[k] = e
		}
		return e
	}

	// pass 1: count every identity in next
	nextEntries := make([]*entry, len(next))
	for i, n := range next {
		e := lookup(key(n))
		e.newCount++
		nextEntries[i] = e
	}

	// pass 2: push old indices in reverse
	for i := len(prev) - 1; i >= 0; i-- {
		e := lookup(key(prev[i]))
		e.oldCount++
		e.oldIndexes = append(e.oldIndexes, i)
	}

	// pass 3: match identities present on both sides
	oldToNew := filled(len(prev))
	newToOld := filled(len(next))
	updated := make([]bool, len(prev))

	for i, e := range nextEntries {
		if e.newCount == 0 || e.oldCount == 0 {
			continue
		}
		o, ok := e.pop()
		if !ok {
			continue // more occurrences in next than prev, this one is an insert
		}
		newToOld[i] = o
		oldToNew[o] = i
		if equal != nil && !equal(prev[o], next[i]) {
			updated[o] = true
		}
	}

	r := Result{oldToNew: oldToNew, newToOld: newToOld}

	// pass 4: deletes, and how many deletes precede each old index
	deleteOffsets := make([]int, len(prev))
	running := 0
	for i, n := range oldToNew {
		deleteOffsets[i] = running
		if n < 0 {
			r.Deletes = append(r.Deletes, i)
			running++
		} else if updated[i] {
			r.Updates = append(r.Updates, i)
		}
	}

	// survivors which kept their relative order stay in place; only compute this if something moved
	var keep []bool
	if !increasing(newToOld) {
		keep = longestRun(newToOld, len(prev))
	}

	// pass 5: inserts and moves
	running = 0
	for i, o := range newToOld {
		if o < 0 {
			r.Inserts = append(r.Inserts, i)
			running++
			continue
		}

		var moved bool
		if keep != nil {
			moved = !keep[o]
		} else {
			moved = o-deleteOffsets[o]+running != i
		}
		if moved {
			r.Moves = append(r.Moves, Move{From: o, To: i})
		}
	}

	validate(len(prev), len(next), &r)
	return r
}

// validate panics if r does not account for both sequence lengths.
func validate(prevLen, nextLen int, r *Result) {
	if prevLen+len(r.Inserts)-len(r.Deletes) != nextLen {
		panic(fmt.Errorf("%w: prev=%d inserts=%d deletes=%d next=%d", ErrInvariant, prevLen, len(r.Inserts), len(r.Deletes), nextLen))
	}
}

func filled(size int) (out []int) {
	out = make([]int, size)
	for i := range out {
		out[i] = -1
	}
	return out
}

// increasing checks whether the matched old indices (-1 is skipped) are already in order.
func increasing(newToOld []int) bool {
	last := -1
	for _, o := range newToOld {
		if o < 0 {
			continue
		}
		if o < last {
			return false
		}
		last = o
	}
	return true
}

// longestRun marks the old indices forming the longest increasing run of matched indices, taken in new order.
func longestRun(newToOld []int, size int) (keep []bool) {
	var seq []int
	for _, o := range newToOld {
		if o >= 0 {
			seq = append(seq, o)
		}
	}

	tails := make([]int, 0, len(seq)) // positions in seq
	parent := make([]int, len(seq))
	for i, v := range seq {
		at := sort.Search(len(tails), func(j int) bool { return seq[tails[j]] >= v })
		parent[i] = -1
		if at > 0 {
			parent[i] = tails[at-1]
		}
		if at == len(tails) {
			tails = append(tails, i)
		} else {
			tails[at] = i
		}
	}

	keep = make([]bool, size)
	if len(tails) == 0 {
		return keep
	}
	for i := tails[len(tails)-1]; i >= 0; i = parent[i] {
		keep[seq[i]] = true
	}
	return keep
}
