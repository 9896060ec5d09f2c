package diff

// Apply rebuilds the next sequence from prev using the structure of r.
// Deletes and move sources are removed, moved elements are placed at their target, insert fetches each inserted element by its new index, and the remaining elements of prev fill the gaps in order.
// Updates are not applied: updated elements keep their prev content.
func Apply[T any](prev []T, r Result, insert func(at int) T) []T {
	size := len(prev) + len(r.Inserts) - len(r.Deletes)
	out := make([]T, size)
	used := make([]bool, size)
	skip := make([]bool, len(prev))

	for _, d := range r.Deletes {
		skip[d] = true
	}
	for _, m := range r.Moves {
		out[m.To] = prev[m.From]
		used[m.To] = true
		skip[m.From] = true
	}
	for _, i := range r.Inserts {
		out[i] = insert(i)
		used[i] = true
	}

	at := 0
	for i, v := range prev {
		if skip[i] {
			continue
		}
		for used[at] {
			at++
		}
		out[at] = v
		used[at] = true
	}
	return out
}
