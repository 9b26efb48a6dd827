package services

import (
	"context"
	"fmt"
	"time"

	"habitlink-backend/internal/models"
	"habitlink-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Check-in statuses carried on checkin cards
const (
	CheckinCompleted = "completed"
	CheckinSkipped   = "skipped"
)

// HabitService handles habit definitions and daily check-ins
type HabitService struct {
	habitRepo *repository.HabitRepository
	userRepo  *repository.UserRepository
	chat      *ChatService
}

// NewHabitService creates a new habit service
func NewHabitService(
	habitRepo *repository.HabitRepository,
	userRepo *repository.UserRepository,
	chat *ChatService,
) *HabitService {
	return &HabitService{
		habitRepo: habitRepo,
		userRepo:  userRepo,
		chat:      chat,
	}
}

// CreateHabitRequest is the payload for creating a habit
type CreateHabitRequest struct {
	Title         string `json:"title"`
	Note          string `json:"note"`
	ScheduledTime string `json:"scheduled_time"`
	Icon          string `json:"icon"`
	Color         string `json:"color"`
	Weekdays      []int  `json:"weekdays"`
	Motivation    string `json:"motivation"`
	RemindOnMiss  bool   `json:"remind_on_miss"`
}

// CreateHabit creates a habit owned by userID and shared with their
// paired friend
func (s *HabitService) CreateHabit(ctx context.Context, userID string, req CreateHabitRequest) (*models.Habit, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return nil, fmt.Errorf("scheduled_time must be HH:MM: %w", err)
	}
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("weekday %d out of range 0-6", d)
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.FriendID == nil {
		return nil, fmt.Errorf("user is not paired")
	}

	habit := &models.Habit{
		ID:            uuid.New().String(),
		OwnerID:       userID,
		Title:         req.Title,
		Note:          req.Note,
		CreatedAt:     time.Now(),
		FriendID:      *user.FriendID,
		ScheduledTime: req.ScheduledTime,
		Icon:          req.Icon,
		Color:         req.Color,
		Weekdays:      req.Weekdays,
		Motivation:    req.Motivation,
		RemindOnMiss:  req.RemindOnMiss,
		Completions:   map[string]bool{},
	}

	if err := s.habitRepo.Create(ctx, habit); err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	return habit, nil
}

// ListHabits lists habits the user owns or can read as the friend
func (s *HabitService) ListHabits(ctx context.Context, userID string) ([]*models.Habit, error) {
	return s.habitRepo.ListByUser(ctx, userID)
}

// CheckInRequest is the payload for a daily check-in
type CheckInRequest struct {
	Date   string `json:"date"` // canonical yyyy-MM-dd, defaults to today
	Status string `json:"status"`
	Note   string `json:"note"`
}

// CheckIn records a day's completion for a habit the user owns and
// posts a checkin card into the pair's thread. The card publish is best
// effort: a failure there never rolls the check-in back.
func (s *HabitService) CheckIn(ctx context.Context, userID, habitID string, req CheckInRequest) (*models.Habit, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("habit not found: %w", err)
	}
	if habit.OwnerID != userID {
		return nil, fmt.Errorf("user does not own this habit")
	}

	if req.Status != CheckinCompleted && req.Status != CheckinSkipped {
		return nil, fmt.Errorf("status must be %q or %q", CheckinCompleted, CheckinSkipped)
	}

	dateKey := req.Date
	if dateKey == "" {
		dateKey = models.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", dateKey); err != nil {
		return nil, fmt.Errorf("date must be yyyy-MM-dd: %w", err)
	}

	done := req.Status == CheckinCompleted
	if err := s.habitRepo.SetCompletion(ctx, habitID, dateKey, done); err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}
	if habit.Completions == nil {
		habit.Completions = map[string]bool{}
	}
	habit.Completions[dateKey] = done

	threadKey := models.ResolveThreadKey(habit.OwnerID, habit.FriendID)
	card := models.NewCheckinMessage(userID, models.CheckinData{
		HabitName: habit.Title,
		Date:      dateKey,
		Status:    req.Status,
		Note:      req.Note,
	})
	if err := s.chat.PublishMessage(ctx, threadKey, card); err != nil {
		log.Error().Err(err).Str("habit_id", habitID).Msg("Failed to publish checkin card")
	}

	return habit, nil
}
