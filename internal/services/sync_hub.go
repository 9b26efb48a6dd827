package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"habitlink-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventType identifies a websocket envelope variant
type EventType string

const (
	EventSubscribe EventType = "subscribe"
	EventSnapshot  EventType = "snapshot"
	EventPublish   EventType = "publish"
	EventPresence  EventType = "presence"
	EventError     EventType = "error"
)

// Envelope is the websocket wire frame exchanged with clients
type Envelope struct {
	Type      EventType         `json:"type"`
	ThreadKey string            `json:"thread_key,omitempty"`
	Message   json.RawMessage   `json:"message,omitempty"`
	Messages  []json.RawMessage `json:"messages,omitempty"`
	Presence  *models.Presence  `json:"presence,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp int64             `json:"timestamp,omitempty"`
}

// SyncHub tracks which connection is subscribed to which thread and
// fans full ordered snapshots out to subscribers. A connection holds at
// most one live subscription; unregistering it is deterministic, so no
// delivery happens after teardown.
type SyncHub struct {
	mu      sync.Mutex
	threads map[string]map[*websocket.Conn]bool
	conns   map[*websocket.Conn]string
}

// NewSyncHub creates a new sync hub
func NewSyncHub() *SyncHub {
	return &SyncHub{
		threads: make(map[string]map[*websocket.Conn]bool),
		conns:   make(map[*websocket.Conn]string),
	}
}

// Subscribe registers conn as the single live subscription for a thread.
// A connection re-subscribing is moved off its previous thread first.
func (h *SyncHub) Subscribe(threadKey string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(threadKey, conn)
}

// SubscribeWithSnapshot registers the connection and delivers its
// initial snapshot as one step under the hub lock. No broadcast can
// reach the connection between registration and the initial send, so a
// publish racing the load always lands after it: the subscriber never
// ends on a snapshot older than one already delivered. A load failure
// leaves the subscription registered; the next publish refreshes it.
func (h *SyncHub) SubscribeWithSnapshot(threadKey string, conn *websocket.Conn, load func() ([]json.RawMessage, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribeLocked(threadKey, conn)

	records, err := load()
	if err != nil {
		return fmt.Errorf("failed to load initial snapshot: %w", err)
	}

	env := Envelope{
		Type:      EventSnapshot,
		ThreadKey: threadKey,
		Messages:  records,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send initial snapshot: %w", err)
	}
	return nil
}

func (h *SyncHub) subscribeLocked(threadKey string, conn *websocket.Conn) {
	if prev, ok := h.conns[conn]; ok {
		delete(h.threads[prev], conn)
		if len(h.threads[prev]) == 0 {
			delete(h.threads, prev)
		}
	}

	if h.threads[threadKey] == nil {
		h.threads[threadKey] = make(map[*websocket.Conn]bool)
	}
	h.threads[threadKey][conn] = true
	h.conns[conn] = threadKey

	log.Info().Str("thread_key", threadKey).Msg("Subscription registered")
}

// Unsubscribe removes the connection's subscription, if any
func (h *SyncHub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	threadKey, ok := h.conns[conn]
	if !ok {
		return
	}
	delete(h.conns, conn)
	delete(h.threads[threadKey], conn)
	if len(h.threads[threadKey]) == 0 {
		delete(h.threads, threadKey)
	}

	log.Info().Str("thread_key", threadKey).Msg("Subscription removed")
}

// BroadcastSnapshot delivers the full ordered record list to every
// subscriber of the thread. A send failure drops that one subscriber;
// the rest still receive the snapshot.
func (h *SyncHub) BroadcastSnapshot(threadKey string, records []json.RawMessage) {
	env := Envelope{
		Type:      EventSnapshot,
		ThreadKey: threadKey,
		Messages:  records,
		Timestamp: time.Now().Unix(),
	}
	h.broadcast(threadKey, env)
}

// BroadcastPresence delivers a presence change to a thread's subscribers
func (h *SyncHub) BroadcastPresence(threadKey string, presence *models.Presence) {
	env := Envelope{
		Type:      EventPresence,
		ThreadKey: threadKey,
		Presence:  presence,
		Timestamp: time.Now().Unix(),
	}
	h.broadcast(threadKey, env)
}

func (h *SyncHub) broadcast(threadKey string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("thread_key", threadKey).Msg("Failed to marshal envelope")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.threads[threadKey] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("thread_key", threadKey).Msg("Failed to deliver to subscriber")
			delete(h.threads[threadKey], conn)
			delete(h.conns, conn)
		}
	}
}

// SendEnvelope writes one envelope to a single connection
func (h *SyncHub) SendEnvelope(conn *websocket.Conn, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send envelope: %w", err)
	}
	return nil
}

// SubscriberCount returns the number of live subscriptions for a thread
func (h *SyncHub) SubscriberCount(threadKey string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.threads[threadKey])
}
