package adapter

// Item pairs some state with the prototype that displays it.
type Item[S comparable] struct {
	ID      string `json:"id"`
	ReuseID string `json:"reuse"`
	State   S      `json:"state"`
}

func (i Item[S]) DiffIdentifier() string {
	return i.ID
}

func (i Item[S]) ReuseIdentifier() string {
	return i.ReuseID
}

// ItemEqual reports whether two items display the same thing.
// It is suitable for buffer.Options.Equal.
func ItemEqual[S comparable](a, b Item[S]) bool {
	return a.ReuseID == b.ReuseID && a.State == b.State
}
