package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// drainUntil reads update signals until the condition holds or the deadline
// passes.
func drainUntil(t *testing.T, c *Client, cond func() bool) {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-c.Updates():
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}

func TestClientReceivesAndReconnects(t *testing.T) {
	conns := make(chan *websocket.Conn, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"initial_data","tasks":[{"id":"t1","title":"One","priority":"p2","tags":[]}]}`))
		require.NoError(t, err)
		conns <- conn
	}))
	defer srv.Close()

	m := New()
	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), m, zerolog.Nop())
	c.SetRetryDelay(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	drainUntil(t, c, func() bool {
		return m.State() == StateConnected && len(m.Tasks()) == 1
	})

	// Kill the connection server-side; the client must come back on its
	// own after the fixed delay.
	first := <-conns
	require.NoError(t, first.Close())

	drainUntil(t, c, func() bool { return m.State() == StateDisconnected })
	drainUntil(t, c, func() bool { return m.State() == StateConnected })

	// The replayed baseline is intact after the reconnect.
	require.Len(t, m.Tasks(), 1)
	assert.Equal(t, "t1", m.Tasks()[0].ID)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop on context cancel")
	}
}

func TestClientRetriesWhenServerDown(t *testing.T) {
	m := New()
	// Nothing listens here.
	c := NewClient("ws://127.0.0.1:1/ws", m, zerolog.Nop())
	c.SetRetryDelay(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestClientIgnoresMalformedMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"initial_data","tasks":[{"id":"t1"}]}`))
	}))
	defer srv.Close()

	m := New()
	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), m, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	drainUntil(t, c, func() bool { return len(m.Tasks()) == 1 })
}
