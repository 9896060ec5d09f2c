package adapter_test

import (
	"fmt"
	"testing"

	"github.com/samthor/listbuf/adapter"
	"github.com/samthor/listbuf/buffer"
	"github.com/samthor/listbuf/owner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	calls []string
}

func (v *fakeView) BeginUpdates() { v.calls = append(v.calls, "begin") }
func (v *fakeView) InsertRows(p []adapter.IndexPath) {
	v.calls = append(v.calls, fmt.Sprintf("insert%v", p))
}
func (v *fakeView) DeleteRows(p []adapter.IndexPath) {
	v.calls = append(v.calls, fmt.Sprintf("delete%v", p))
}
func (v *fakeView) MoveRow(from, to adapter.IndexPath) {
	v.calls = append(v.calls, fmt.Sprintf("move%v%v", from, to))
}
func (v *fakeView) EndUpdates() { v.calls = append(v.calls, "end") }
func (v *fakeView) ReloadData() { v.calls = append(v.calls, "reload") }
func (v *fakeView) ReloadRows(p []adapter.IndexPath) {
	v.calls = append(v.calls, fmt.Sprintf("rows%v", p))
}

type card = adapter.Item[string]

func TestAdapterForwardsToSection(t *testing.T) {
	l := owner.New(t.Context())
	b := buffer.New(t.Context(), []card{
		{ID: "a", ReuseID: "text", State: "A"},
		{ID: "b", ReuseID: "text", State: "B"},
	}, buffer.Options[card]{Owner: l, Equal: adapter.ItemEqual[string], DiffThreshold: 2})

	view := &fakeView{}
	var a *adapter.Adapter[card]

	l.Do(func() {
		a = adapter.New(b, view, 2)
		a.Update([]card{
			{ID: "b", ReuseID: "text", State: "B"},
			{ID: "a", ReuseID: "text", State: "A"},
			{ID: "c", ReuseID: "image", State: "C"},
		}, true, nil)

		assert.Equal(t, 3, a.Count())
		assert.Equal(t, "c", a.Displayed(2).ID)
		assert.Equal(t, 2, a.Section())
	})

	assert.Equal(t, []string{
		"begin",
		"insert[{2 2}]",
		"delete[]",
		"move{2 1}{2 0}",
		"end",
	}, view.calls)

	view.calls = nil
	l.Do(func() {
		a.Update([]card{{ID: "x"}, {ID: "y"}, {ID: "z"}}, true, nil)
	})
	assert.Equal(t, []string{"reload"}, view.calls, "three deletes and inserts is over the threshold")

	view.calls = nil
	a.DidChangeElement(1)
	assert.Equal(t, []string{"rows[{2 1}]"}, view.calls)
}

func TestRegistry(t *testing.T) {
	var r adapter.Registry

	ok := r.Register("text", adapter.PrototypeFunc(func(model any, width float64) adapter.Size {
		return adapter.Size{Width: width, Height: 20}
	}))
	require.True(t, ok)
	assert.False(t, r.Register("text", nil), "second registration should be ignored")
	assert.True(t, r.Registered("text"))

	size, err := r.Measure("text", nil, 320)
	require.NoError(t, err)
	assert.Equal(t, adapter.Size{Width: 320, Height: 20}, size)

	_, err = r.Measure("image", nil, 320)
	assert.ErrorIs(t, err, adapter.ErrUnregistered)
	assert.Contains(t, err.Error(), `"image"`)
}

func TestSizeAt(t *testing.T) {
	l := owner.New(t.Context())
	b := buffer.New(t.Context(), []card{
		{ID: "a", ReuseID: "text", State: "hello"},
		{ID: "b", ReuseID: "video", State: "clip"},
	}, buffer.Options[card]{Owner: l})

	var r adapter.Registry
	r.Register("text", adapter.PrototypeFunc(func(model any, width float64) adapter.Size {
		c := model.(card)
		return adapter.Size{Width: width, Height: float64(len(c.State))}
	}))

	l.Do(func() {
		a := adapter.New(b, &fakeView{}, 0)

		size, err := a.SizeAt(&r, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, 5.0, size.Height)

		_, err = a.SizeAt(&r, 1, 100)
		assert.ErrorIs(t, err, adapter.ErrUnregistered)
	})
}
