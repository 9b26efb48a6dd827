package repository

import (
	"context"
	"fmt"
	"time"

	"habitlink-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PresenceRepository handles database operations for presence records
type PresenceRepository struct {
	db *pgxpool.Pool
}

// NewPresenceRepository creates a new presence repository
func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// SetOnline marks a user online
func (r *PresenceRepository) SetOnline(ctx context.Context, userID string) error {
	query := `
		INSERT INTO presence (user_id, is_online, last_seen)
		VALUES ($1, true, NULL)
		ON CONFLICT (user_id) DO UPDATE SET is_online = true
	`
	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to set online: %w", err)
	}
	return nil
}

// SetOffline marks a user offline with a server-assigned last-seen instant
func (r *PresenceRepository) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `
		INSERT INTO presence (user_id, is_online, last_seen)
		VALUES ($1, false, $2)
		ON CONFLICT (user_id) DO UPDATE SET is_online = false, last_seen = EXCLUDED.last_seen
	`
	_, err := r.db.Exec(ctx, query, userID, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to set offline: %w", err)
	}
	return nil
}

// Get retrieves the presence record for a user. A user with no record
// has never connected; callers treat that as plain offline.
func (r *PresenceRepository) Get(ctx context.Context, userID string) (*models.Presence, error) {
	query := `
		SELECT user_id, is_online, last_seen
		FROM presence
		WHERE user_id = $1
	`
	var p models.Presence
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.IsOnline, &p.LastSeen)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &models.Presence{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}
	return &p, nil
}
