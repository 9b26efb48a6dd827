package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPipe dials a loopback websocket and hands back both ends
func wsPipe(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	server = <-serverConns
	t.Cleanup(func() { server.Close() })
	return server, client
}

func TestSubscribeWithSnapshotDelivers(t *testing.T) {
	hub := NewSyncHub()
	server, client := wsPipe(t)

	err := hub.SubscribeWithSnapshot("a_b", server, func() ([]json.RawMessage, error) {
		return []json.RawMessage{json.RawMessage(`{"id":"m1"}`)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SubscriberCount("a_b"))

	var env Envelope
	require.NoError(t, client.ReadJSON(&env))
	assert.Equal(t, EventSnapshot, env.Type)
	assert.Equal(t, "a_b", env.ThreadKey)
	require.Len(t, env.Messages, 1)
}

func TestSubscribeWithSnapshotPrecedesConcurrentBroadcast(t *testing.T) {
	hub := NewSyncHub()
	server, client := wsPipe(t)

	stale := []json.RawMessage{json.RawMessage(`{"id":"m1"}`)}
	fresh := []json.RawMessage{json.RawMessage(`{"id":"m1"}`), json.RawMessage(`{"id":"m2"}`)}

	broadcastDone := make(chan struct{})
	err := hub.SubscribeWithSnapshot("a_b", server, func() ([]json.RawMessage, error) {
		// a publish fans out while the initial snapshot is still loading
		go func() {
			defer close(broadcastDone)
			hub.BroadcastSnapshot("a_b", fresh)
		}()
		time.Sleep(50 * time.Millisecond)
		return stale, nil
	})
	require.NoError(t, err)
	<-broadcastDone

	var first, second Envelope
	require.NoError(t, client.ReadJSON(&first))
	require.NoError(t, client.ReadJSON(&second))

	// the racing broadcast lands after the initial send, so the
	// subscriber ends on the newer list
	require.Len(t, first.Messages, 1)
	require.Len(t, second.Messages, 2)
}

func TestSubscribeWithSnapshotLoadFailureKeepsSubscription(t *testing.T) {
	hub := NewSyncHub()
	server, _ := wsPipe(t)

	err := hub.SubscribeWithSnapshot("a_b", server, func() ([]json.RawMessage, error) {
		return nil, fmt.Errorf("store unavailable")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, hub.SubscriberCount("a_b"))
}

func TestResubscribeMovesConnection(t *testing.T) {
	hub := NewSyncHub()
	server, _ := wsPipe(t)

	hub.Subscribe("a_b", server)
	hub.Subscribe("c_d", server)

	assert.Equal(t, 0, hub.SubscriberCount("a_b"))
	assert.Equal(t, 1, hub.SubscriberCount("c_d"))

	hub.Unsubscribe(server)
	assert.Equal(t, 0, hub.SubscriberCount("c_d"))
}
