package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"habitlink-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedMessage struct {
	id     string
	ts     time.Time
	record []byte
}

type memMessageStore struct {
	mu      sync.Mutex
	threads map[string][]storedMessage
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{threads: make(map[string][]storedMessage)}
}

func (s *memMessageStore) Upsert(_ context.Context, threadKey, id string, ts time.Time, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.threads[threadKey]
	for i, m := range msgs {
		if m.id == id {
			msgs[i] = storedMessage{id: id, ts: ts, record: record}
			return nil
		}
	}
	s.threads[threadKey] = append(msgs, storedMessage{id: id, ts: ts, record: record})
	return nil
}

func (s *memMessageStore) ListByThread(_ context.Context, threadKey string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append([]storedMessage(nil), s.threads[threadKey]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ts.Before(msgs[j].ts) })

	records := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, json.RawMessage(m.record))
	}
	return records, nil
}

func TestPublishSameIDTwiceKeepsOneDocument(t *testing.T) {
	svc := NewChatService(newMemMessageStore(), NewSyncHub())

	msg := models.NewTextMessage("u1", "hello")
	record, err := msg.Record()
	require.NoError(t, err)

	require.NoError(t, svc.Publish(context.Background(), "a_b", "u1", record))
	require.NoError(t, svc.Publish(context.Background(), "a_b", "u1", record))

	records, err := svc.Snapshot(context.Background(), "a_b")
	require.NoError(t, err)
	require.Len(t, records, 1)

	got, err := models.ParseMessage(records[0])
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "hello", got.Content)
}

func TestPublishRepublishedIDOverwrites(t *testing.T) {
	svc := NewChatService(newMemMessageStore(), NewSyncHub())

	msg := models.NewTextMessage("u1", "first")
	record, err := msg.Record()
	require.NoError(t, err)
	require.NoError(t, svc.Publish(context.Background(), "a_b", "u1", record))

	msg.Content = "second"
	record, err = msg.Record()
	require.NoError(t, err)
	require.NoError(t, svc.Publish(context.Background(), "a_b", "u1", record))

	records, err := svc.Snapshot(context.Background(), "a_b")
	require.NoError(t, err)
	require.Len(t, records, 1)

	got, err := models.ParseMessage(records[0])
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)
}

func TestPublishRejectsForeignSender(t *testing.T) {
	svc := NewChatService(newMemMessageStore(), NewSyncHub())

	msg := models.NewTextMessage("peer", "written in your name")
	record, err := msg.Record()
	require.NoError(t, err)

	err = svc.Publish(context.Background(), "a_b", "me", record)
	assert.Error(t, err)

	records, err := svc.Snapshot(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPublishRejectsMalformedRecord(t *testing.T) {
	svc := NewChatService(newMemMessageStore(), NewSyncHub())

	err := svc.Publish(context.Background(), "a_b", "u1", []byte(`{"type":"text"}`))
	assert.Error(t, err)

	records, err := svc.Snapshot(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPublishMessageStoresConstructedMessage(t *testing.T) {
	svc := NewChatService(newMemMessageStore(), NewSyncHub())

	card := models.NewCheckinMessage("u1", models.CheckinData{
		HabitName: "Run",
		Date:      "2025-06-13",
		Status:    "completed",
	})
	require.NoError(t, svc.PublishMessage(context.Background(), "a_b", card))

	records, err := svc.Snapshot(context.Background(), "a_b")
	require.NoError(t, err)
	require.Len(t, records, 1)

	got, err := models.ParseMessage(records[0])
	require.NoError(t, err)
	assert.Equal(t, models.MessageCheckin, got.Type)
	require.NotNil(t, got.Checkin)
	assert.Equal(t, "Run", got.Checkin.HabitName)
}
