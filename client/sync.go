package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"habitlink-backend/internal/models"

	"github.com/gorilla/websocket"
)

// RenderSink is what a subscription drives: the rendered message list
// plus the scroll-to-newest signal. RenderedCount reports how many rows
// the consumer currently has on screen; ScrollTo is only called with an
// index inside that bound.
type RenderSink interface {
	Render(messages []*Message)
	RenderedCount() int
	ScrollTo(index int)
}

// wire envelope, mirrors the server's frame
type envelope struct {
	Type      string            `json:"type"`
	ThreadKey string            `json:"thread_key,omitempty"`
	Message   json.RawMessage   `json:"message,omitempty"`
	Messages  []json.RawMessage `json:"messages,omitempty"`
	Presence  *Presence         `json:"presence,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Subscription is one live sync feed for the user's pair thread.
// Cancel is the only way to stop delivery; after it returns no callback
// fires again. All sink callbacks run on the subscription's single
// reader goroutine.
type Subscription struct {
	conn       *websocket.Conn
	sink       RenderSink
	onPresence func(*Presence)

	writeMu sync.Mutex

	mu       sync.Mutex
	messages []*Message

	cancel sync.Once
	done   chan struct{}
}

// StartSync opens the thread subscription and returns its owned handle.
// onPresence may be nil.
func (c *Client) StartSync(ctx context.Context, sink RenderSink, onPresence func(*Presence)) (*Subscription, error) {
	wsURL := strings.Replace(c.BaseURL, "http", "ws", 1) + "/ws?token=" + c.Token

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial sync endpoint: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	sub := &Subscription{
		conn:       conn,
		sink:       sink,
		onPresence: onPresence,
		done:       make(chan struct{}),
	}

	if err := sub.write(envelope{Type: "subscribe"}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	go sub.readLoop()
	return sub, nil
}

func (s *Subscription) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Transport gone: the last good snapshot stays rendered
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case "snapshot":
			s.apply(env.Messages)
		case "presence":
			if s.onPresence != nil && env.Presence != nil {
				s.onPresence(env.Presence)
			}
		}
	}
}

// apply replaces the local list with the snapshot's contents. Records
// that fail to parse are dropped; remote ordering is preserved. The
// sink is asked to scroll to the newest entry only when one exists and
// the index is inside its rendered bounds.
func (s *Subscription) apply(records []json.RawMessage) {
	parsed := make([]*Message, 0, len(records))
	for _, rec := range records {
		msg, err := models.ParseMessage(rec)
		if err != nil {
			continue
		}
		parsed = append(parsed, msg)
	}

	s.mu.Lock()
	s.messages = parsed
	s.mu.Unlock()

	s.sink.Render(parsed)
	if len(parsed) > 0 {
		last := len(parsed) - 1
		if last < s.sink.RenderedCount() {
			s.sink.ScrollTo(last)
		}
	}
}

// Messages returns a copy of the current local list
func (s *Subscription) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Publish sends a message into the thread. Best effort, no retry: an
// error means that one send is abandoned.
func (s *Subscription) Publish(msg Message) error {
	record, err := msg.Record()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	return s.write(envelope{Type: "publish", Message: record})
}

func (s *Subscription) write(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send envelope: %w", err)
	}
	return nil
}

// Cancel tears the subscription down. No sink callback fires after the
// call returns.
func (s *Subscription) Cancel() {
	s.cancel.Do(func() {
		s.conn.Close()
		<-s.done
	})
}
