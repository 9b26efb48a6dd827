package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"habitlink-backend/internal/metrics"
	"habitlink-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// MessageStore is the persistence surface ChatService publishes through.
// *repository.MessageRepository satisfies it.
type MessageStore interface {
	Upsert(ctx context.Context, threadKey, id string, ts time.Time, record []byte) error
	ListByThread(ctx context.Context, threadKey string) ([]json.RawMessage, error)
}

// ChatService handles message publication and snapshot assembly for
// two-party threads.
type ChatService struct {
	messageRepo MessageStore
	hub         *SyncHub
}

// NewChatService creates a new chat service
func NewChatService(messageRepo MessageStore, hub *SyncHub) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		hub:         hub,
	}
}

// Publish parses an incoming record fail-closed, upserts it under its
// own id, and fans the thread's refreshed snapshot out to subscribers.
// The record's sender must match senderID, the authenticated caller.
// The upsert is idempotent: re-publishing an id leaves exactly one
// document. A fan-out failure is logged and dropped, never retried.
func (s *ChatService) Publish(ctx context.Context, threadKey, senderID string, record []byte) error {
	msg, err := models.ParseMessage(record)
	if err != nil {
		return fmt.Errorf("malformed message record: %w", err)
	}
	if msg.SenderID != senderID {
		return fmt.Errorf("sender mismatch: record claims %s", msg.SenderID)
	}

	// Store the canonical serialization, not the raw client bytes
	canonical, err := msg.Record()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	if err := s.messageRepo.Upsert(ctx, threadKey, msg.ID, msg.Timestamp, canonical); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	metrics.MessagesPublished.Inc()

	s.refresh(ctx, threadKey)
	return nil
}

// PublishMessage publishes a constructed message into a thread
func (s *ChatService) PublishMessage(ctx context.Context, threadKey string, msg models.Message) error {
	record, err := msg.Record()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	return s.Publish(ctx, threadKey, msg.SenderID, record)
}

// Snapshot returns the thread's full message record list ascending by
// timestamp.
func (s *ChatService) Snapshot(ctx context.Context, threadKey string) ([]json.RawMessage, error) {
	return s.messageRepo.ListByThread(ctx, threadKey)
}

// refresh re-reads the thread and broadcasts the snapshot. Failures
// leave subscribers on their last good snapshot.
func (s *ChatService) refresh(ctx context.Context, threadKey string) {
	records, err := s.messageRepo.ListByThread(ctx, threadKey)
	if err != nil {
		log.Error().Err(err).Str("thread_key", threadKey).Msg("Failed to load snapshot for broadcast")
		return
	}
	s.hub.BroadcastSnapshot(threadKey, records)
	metrics.SnapshotsDelivered.Add(float64(s.hub.SubscriberCount(threadKey)))
}
