package feed_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samthor/listbuf/feed"
	"github.com/samthor/listbuf/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServePair(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}}, feed.Options[row]{})

	server, client := transport.NewPair(t.Context())
	go x.f.Serve(server)

	s := feed.NewStream[row](client)
	var m feed.Mirror[row]

	c, err := s.Next()
	require.NoError(t, err)
	require.NoError(t, m.Apply(c))
	assert.Equal(t, []row{{"a", 1}}, m.Items())

	x.update(t, row{"b", 2}, row{"a", 1})

	c, err = s.Next()
	require.NoError(t, err)
	require.NoError(t, m.Apply(c))
	assert.Equal(t, []row{{"b", 2}, {"a", 1}}, m.Items())
}

func TestDialWebSocket(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}, {"b", 2}}, feed.Options[row]{})

	srv := httptest.NewServer(x.f.Handler(transport.SocketOpts{}))
	t.Cleanup(srv.Close)

	s, err := feed.Dial[row](t.Context(), "ws"+strings.TrimPrefix(srv.URL, "http"), transport.DialOpts{})
	require.NoError(t, err)

	var m feed.Mirror[row]
	updated := make(chan struct{})
	go func() {
		s.Follow(&m, func(c feed.Change[row]) {
			if c.Seq == 1 {
				close(updated)
			}
		})
	}()

	// wait for the subscriber to be registered, so the update isn't folded into its snapshot
	require.Eventually(t, func() bool { return x.f.Subscribers() == 1 }, time.Second, time.Millisecond)
	x.update(t, row{"b", 3})

	select {
	case <-updated:
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for change")
	}
}

func TestServeSSE(t *testing.T) {
	x := newFixture(t, []row{{"a", 1}}, feed.Options[row]{})

	srv := httptest.NewServer(http.HandlerFunc(x.f.ServeSSE))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	readEvent := func() (lines []string) {
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSuffix(line, "\n")
			if line == "" {
				return lines
			}
			lines = append(lines, line)
		}
	}

	lines := readEvent()
	require.Len(t, lines, 3)
	assert.Equal(t, "event: change", lines[0])
	assert.Equal(t, "id: 0", lines[1])

	var c feed.Change[row]
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &c))
	assert.Equal(t, feed.KindReload, c.Kind)
	assert.Equal(t, map[int]row{0: {"a", 1}}, c.Items)

	x.update(t, row{"a", 1}, row{"b", 1})

	lines = readEvent()
	require.Len(t, lines, 3)
	assert.Equal(t, "id: 1", lines[1])
	c = feed.Change[row]{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &c))
	assert.Equal(t, []int{1}, c.Inserts)
}
