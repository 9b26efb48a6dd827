package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for chat messages.
// Messages are write-once documents keyed by their client-generated id;
// the only write path is an idempotent upsert.
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Upsert writes a message record under its own id. Re-sending the same
// id overwrites identically, never duplicates.
func (r *MessageRepository) Upsert(ctx context.Context, threadKey, id string, ts time.Time, record []byte) error {
	query := `
		INSERT INTO messages (id, thread_key, ts, record)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET ts = EXCLUDED.ts, record = EXCLUDED.record
	`
	_, err := r.db.Exec(ctx, query, id, threadKey, ts, record)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

// ListByThread retrieves all message records for a thread ordered
// ascending by timestamp.
func (r *MessageRepository) ListByThread(ctx context.Context, threadKey string) ([]json.RawMessage, error) {
	query := `
		SELECT record
		FROM messages
		WHERE thread_key = $1
		ORDER BY ts ASC
	`
	rows, err := r.db.Query(ctx, query, threadKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan message record: %w", err)
		}
		records = append(records, json.RawMessage(record))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return records, nil
}

// CountByThread returns the number of messages in a thread
func (r *MessageRepository) CountByThread(ctx context.Context, threadKey string) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE thread_key = $1`
	var total int
	if err := r.db.QueryRow(ctx, query, threadKey).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return total, nil
}
