package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"habitlink-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HabitRepository handles database operations for habits
type HabitRepository struct {
	db *pgxpool.Pool
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *pgxpool.Pool) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create creates a new habit
func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	completions, err := json.Marshal(habit.Completions)
	if err != nil {
		return fmt.Errorf("failed to marshal completions: %w", err)
	}

	weekdays := make([]int32, len(habit.Weekdays))
	for i, d := range habit.Weekdays {
		weekdays[i] = int32(d)
	}

	query := `
		INSERT INTO habits (id, owner_id, title, note, created_at, friend_id,
			scheduled_time, icon, color, weekdays, motivation, remind_on_miss, completions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.Exec(ctx, query,
		habit.ID, habit.OwnerID, habit.Title, habit.Note, habit.CreatedAt, habit.FriendID,
		habit.ScheduledTime, habit.Icon, habit.Color, weekdays, habit.Motivation,
		habit.RemindOnMiss, completions,
	)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	return nil
}

const habitColumns = `id, owner_id, title, note, created_at, friend_id,
	scheduled_time, icon, color, weekdays, motivation, remind_on_miss, completions`

func scanHabit(row pgx.Row) (*models.Habit, error) {
	var habit models.Habit
	var weekdays []int32
	var completions []byte
	err := row.Scan(
		&habit.ID, &habit.OwnerID, &habit.Title, &habit.Note, &habit.CreatedAt,
		&habit.FriendID, &habit.ScheduledTime, &habit.Icon, &habit.Color,
		&weekdays, &habit.Motivation, &habit.RemindOnMiss, &completions,
	)
	if err != nil {
		return nil, err
	}

	habit.Weekdays = make([]int, len(weekdays))
	for i, d := range weekdays {
		habit.Weekdays[i] = int(d)
	}
	if err := json.Unmarshal(completions, &habit.Completions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completions: %w", err)
	}
	return &habit, nil
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`
	habit, err := scanHabit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("habit not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return habit, nil
}

// ListByUser retrieves habits the user owns or has friend read access to
func (r *HabitRepository) ListByUser(ctx context.Context, userID string) ([]*models.Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE owner_id = $1 OR friend_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	var habits []*models.Habit
	for rows.Next() {
		habit, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, habit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	return habits, nil
}

// ListAll retrieves every habit. Used by the reminder sweep.
func (r *HabitRepository) ListAll(ctx context.Context) ([]*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	var habits []*models.Habit
	for rows.Next() {
		habit, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, habit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	return habits, nil
}

// SetCompletion records the completion flag for one canonical date key
func (r *HabitRepository) SetCompletion(ctx context.Context, habitID, dateKey string, done bool) error {
	query := `
		UPDATE habits
		SET completions = completions || jsonb_build_object($2::text, $3::bool)
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, habitID, dateKey, done)
	if err != nil {
		return fmt.Errorf("failed to set completion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("habit not found")
	}
	return nil
}
