package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"habitlink-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSink struct {
	mu       sync.Mutex
	rendered int
	renders  chan []*Message
	scrolls  chan int
}

func newTestSink(rendered int) *testSink {
	return &testSink{
		rendered: rendered,
		renders:  make(chan []*Message, 8),
		scrolls:  make(chan int, 8),
	}
}

func (s *testSink) Render(messages []*Message) {
	s.mu.Lock()
	if s.rendered < 0 {
		// track the rendered list like a live view would
		s.rendered = len(messages)
	}
	s.mu.Unlock()
	s.renders <- messages
}

func (s *testSink) RenderedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered
}

func (s *testSink) ScrollTo(index int) {
	s.scrolls <- index
}

func record(t *testing.T, msg Message) json.RawMessage {
	t.Helper()
	data, err := msg.Record()
	require.NoError(t, err)
	return data
}

// syncServer upgrades /ws, waits for the subscribe frame, then plays
// the given envelopes in order.
func syncServer(t *testing.T, frames []envelope) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var env envelope
		require.NoError(t, conn.ReadJSON(&env))
		require.Equal(t, "subscribe", env.Type)

		for _, frame := range frames {
			require.NoError(t, conn.WriteJSON(frame))
		}

		// hold the connection open until the client cancels
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitRender(t *testing.T, sink *testSink) []*Message {
	t.Helper()
	select {
	case msgs := <-sink.renders:
		return msgs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for render")
		return nil
	}
}

func TestSyncSnapshotReplacesLocalList(t *testing.T) {
	m1 := models.NewTextMessage("u1", "one")
	m2 := models.NewTextMessage("u2", "two")
	m3 := models.NewTextMessage("u1", "three")
	malformed := json.RawMessage(`{"senderId":"u2","timestamp":1749800000,"type":"text"}`)

	s2msgs := []Message{
		models.NewTextMessage("u1", "a"),
		models.NewTextMessage("u2", "b"),
		models.NewTextMessage("u1", "c"),
		models.NewTextMessage("u2", "d"),
		models.NewTextMessage("u1", "e"),
	}
	s2records := make([]json.RawMessage, 0, len(s2msgs))
	for _, m := range s2msgs {
		s2records = append(s2records, record(t, m))
	}

	srv := syncServer(t, []envelope{
		{Type: "snapshot", Messages: []json.RawMessage{
			record(t, m1), malformed, record(t, m2), record(t, m3),
		}},
		{Type: "snapshot", Messages: s2records},
	})

	c := New(srv.URL, "token", "u1")
	sink := newTestSink(-1)

	sub, err := c.StartSync(context.Background(), sink, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	// S1: the malformed record is dropped, order preserved
	first := waitRender(t, sink)
	require.Len(t, first, 3)
	assert.Equal(t, m1.ID, first[0].ID)
	assert.Equal(t, m2.ID, first[1].ID)
	assert.Equal(t, m3.ID, first[2].ID)

	// S2 fully replaces S1 — no merge of stale and fresh
	second := waitRender(t, sink)
	require.Len(t, second, 5)
	for i, m := range s2msgs {
		assert.Equal(t, m.ID, second[i].ID)
		assert.Equal(t, m.Content, second[i].Content)
	}

	local := sub.Messages()
	require.Len(t, local, 5)
	for _, m := range local {
		assert.NotEmpty(t, m.ID)
	}
}

func TestSyncScrollsToNewestWithinBounds(t *testing.T) {
	msgs := []json.RawMessage{
		record(t, models.NewTextMessage("u1", "a")),
		record(t, models.NewTextMessage("u2", "b")),
	}
	srv := syncServer(t, []envelope{{Type: "snapshot", Messages: msgs}})

	c := New(srv.URL, "token", "u1")
	sink := newTestSink(-1)

	sub, err := c.StartSync(context.Background(), sink, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	waitRender(t, sink)
	select {
	case idx := <-sink.scrolls:
		assert.Equal(t, 1, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scroll signal")
	}
}

func TestSyncScrollSkippedWhenOutOfRenderedBounds(t *testing.T) {
	msgs := []json.RawMessage{record(t, models.NewTextMessage("u1", "a"))}
	srv := syncServer(t, []envelope{{Type: "snapshot", Messages: msgs}})

	c := New(srv.URL, "token", "u1")
	sink := newTestSink(0) // view has nothing rendered yet

	sub, err := c.StartSync(context.Background(), sink, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	waitRender(t, sink)
	select {
	case idx := <-sink.scrolls:
		t.Fatalf("unexpected scroll to %d", idx)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSyncEmptySnapshotDoesNotScroll(t *testing.T) {
	srv := syncServer(t, []envelope{{Type: "snapshot", Messages: nil}})

	c := New(srv.URL, "token", "u1")
	sink := newTestSink(-1)

	sub, err := c.StartSync(context.Background(), sink, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	msgs := waitRender(t, sink)
	assert.Empty(t, msgs)
	select {
	case idx := <-sink.scrolls:
		t.Fatalf("unexpected scroll to %d", idx)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSyncPresenceCallback(t *testing.T) {
	lastSeen := time.Now().Add(-5 * time.Minute)
	srv := syncServer(t, []envelope{
		{Type: "presence", Presence: &Presence{UserID: "u2", IsOnline: false, LastSeen: &lastSeen}},
	})

	c := New(srv.URL, "token", "u1")
	sink := newTestSink(-1)
	presences := make(chan *Presence, 1)

	sub, err := c.StartSync(context.Background(), sink, func(p *Presence) {
		presences <- p
	})
	require.NoError(t, err)
	defer sub.Cancel()

	select {
	case p := <-presences:
		assert.Equal(t, "u2", p.UserID)
		assert.False(t, p.IsOnline)
		require.NotNil(t, p.LastSeen)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presence callback")
	}
}

func TestSyncCancelStopsDelivery(t *testing.T) {
	srv := syncServer(t, []envelope{{Type: "snapshot", Messages: nil}})

	c := New(srv.URL, "token", "u1")
	sink := newTestSink(-1)

	sub, err := c.StartSync(context.Background(), sink, nil)
	require.NoError(t, err)

	waitRender(t, sink)
	sub.Cancel()
	// second cancel is safe
	sub.Cancel()

	select {
	case <-sink.renders:
		t.Fatal("render after cancel")
	case <-time.After(200 * time.Millisecond):
	}
}
