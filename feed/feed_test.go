package feed_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/samthor/listbuf/buffer"
	"github.com/samthor/listbuf/diff"
	"github.com/samthor/listbuf/feed"
	"github.com/samthor/listbuf/owner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func (r row) DiffIdentifier() string {
	return r.ID
}

type fixture struct {
	l *owner.Loop
	b *buffer.Buffer[row]
	f *feed.Feed[row]
}

func newFixture(t *testing.T, initial []row, opts feed.Options[row]) *fixture {
	l := owner.New(t.Context())
	b := buffer.New(t.Context(), initial, buffer.Options[row]{Owner: l, DiffThreshold: 3})

	var f *feed.Feed[row]
	require.True(t, l.Do(func() { f = feed.New(b, opts) }))
	return &fixture{l: l, b: b, f: f}
}

func (x *fixture) update(t *testing.T, values ...row) {
	require.True(t, x.l.Do(func() { x.b.Update(values, true, nil) }))
}

func (x *fixture) elements(t *testing.T) (out []row) {
	require.True(t, x.l.Do(func() { out = x.b.Elements() }))
	return out
}

func next(t *testing.T, cur *feed.Cursor[row]) feed.Change[row] {
	t.Helper()
	ch := make(chan feed.Change[row], 1)
	go func() {
		c, ok := cur.Next()
		if ok {
			ch <- c
		}
		close(ch)
	}()

	select {
	case c, ok := <-ch:
		require.True(t, ok, "cursor stopped: %v", cur.Err())
		return c
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for change")
	}
	return feed.Change[row]{}
}

func TestJoinSnapshot(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}, {"b", 2}}, feed.Options[row]{})

	cur := x.f.Join(t.Context())
	c := next(t, cur)

	assert.Equal(t, feed.KindReload, c.Kind)
	assert.Equal(t, x.f.Epoch(), c.Epoch)
	assert.Equal(t, 0, c.Seq)
	assert.Equal(t, 2, c.Len)
	assert.Equal(t, map[int]row{0: {"a", 1}, 1: {"b", 2}}, c.Items)
	assert.NotZero(t, c.Epoch)
}

func TestItemsChange(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}, {"b", 1}, {"c", 1}}, feed.Options[row]{})
	cur := x.f.Join(t.Context())
	next(t, cur) // snapshot

	x.update(t, row{"b", 2}, row{"c", 1}, row{"d", 1})

	c := next(t, cur)
	assert.Equal(t, feed.KindItems, c.Kind)
	assert.Equal(t, 1, c.Seq)
	assert.Equal(t, 3, c.Len)
	assert.Equal(t, []int{2}, c.Inserts)
	assert.Equal(t, []int{0}, c.Deletes)
	assert.Empty(t, c.Moves)
	assert.Equal(t, map[int]row{0: {"b", 2}, 2: {"d", 1}}, c.Items, "inserted and changed values only")
}

func TestMovedAndChanged(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}, {"b", 1}, {"c", 1}}, feed.Options[row]{})
	cur := x.f.Join(t.Context())
	next(t, cur)

	x.update(t, row{"c", 5}, row{"a", 1}, row{"b", 1})

	c := next(t, cur)
	assert.Equal(t, []diff.Move{{From: 2, To: 0}}, c.Moves)
	assert.Equal(t, map[int]row{0: {"c", 5}}, c.Items)
}

func TestReloadOverThreshold(t *testing.T) {
	x := newFixture(t, nil, feed.Options[row]{})
	cur := x.f.Join(t.Context())
	next(t, cur)

	x.update(t, row{"a", 1}, row{"b", 1}, row{"c", 1}, row{"d", 1})

	c := next(t, cur)
	assert.Equal(t, feed.KindReload, c.Kind)
	assert.Equal(t, 4, c.Len)
	assert.Len(t, c.Items, 4)
}

func TestElementChange(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}, {"b", 1}}, feed.Options[row]{})
	cur := x.f.Join(t.Context())
	next(t, cur)

	x.l.Do(func() { x.b.ElementChanged("b") })

	// the refresh has nothing to report but is still published
	c := next(t, cur)
	assert.Equal(t, feed.KindItems, c.Kind)
	assert.Empty(t, c.Items)

	c = next(t, cur)
	assert.Equal(t, feed.KindElement, c.Kind)
	assert.Equal(t, map[int]row{1: {"b", 1}}, c.Items)
}

func TestMirrorFollowsFeed(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}, {"b", 2}, {"c", 3}}, feed.Options[row]{})
	cur := x.f.Join(t.Context())

	var m feed.Mirror[row]
	require.NoError(t, m.Apply(next(t, cur)))
	assert.True(t, m.Synced())

	steps := [][]row{
		{{"c", 3}, {"a", 1}, {"b", 2}},
		{{"c", 4}, {"b", 2}, {"e", 1}},
		{{"e", 1}, {"b", 9}, {"c", 4}, {"f", 0}},
		{{"x", 0}, {"y", 0}, {"z", 0}, {"w", 0}}, // over threshold
		{},
	}
	for _, step := range steps {
		x.update(t, step...)
		require.NoError(t, m.Apply(next(t, cur)))
		want, got := x.elements(t), m.Items()
		assert.Truef(t, slices.Equal(want, got), "want %v, got %v", want, got)
	}

	epoch, seq := m.Position()
	assert.Equal(t, x.f.Epoch(), epoch)
	assert.Equal(t, len(steps), seq)
}

func TestDropSlowSubscriber(t *testing.T) {
	x := newFixture(t, nil, feed.Options[row]{Backlog: 2})

	slow := x.f.Join(t.Context())
	fast := x.f.Join(t.Context())
	next(t, slow)
	next(t, fast)

	for i := range 3 {
		x.update(t, row{ID: "a", Value: i})
		next(t, fast)
	}

	_, ok := slow.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, slow.Err(), feed.ErrDropped)
	assert.Equal(t, 1, x.f.Subscribers())
}

func TestCursorStops(t *testing.T) {
	x := newFixture(t, nil, feed.Options[row]{})

	ctx, cancel := context.WithCancel(t.Context())
	cur := x.f.Join(ctx)
	next(t, cur)
	cancel()

	_, ok := cur.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, cur.Err(), context.Canceled)
}
