package services

import (
	"context"
	"fmt"
	"time"

	appconfig "habitlink-backend/internal/config"
	"habitlink-backend/internal/repository"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
)

// sweep runs every minute; each tick pushes reminders for habits
// scheduled at that minute on an active weekday and not yet done today
const reminderCron = "* * * * *"

// ReminderService sweeps habits on a cron schedule and sends APNs
// pushes to owners who have not checked in. Best effort: every failure
// is logged and that one reminder is abandoned.
type ReminderService struct {
	habitRepo *repository.HabitRepository
	userRepo  *repository.UserRepository
	apns      *apns2.Client
	topic     string
}

// NewReminderService creates a reminder service. Returns nil if push is
// disabled; a nil service's Start is a no-op.
func NewReminderService(
	habitRepo *repository.HabitRepository,
	userRepo *repository.UserRepository,
	cfg appconfig.APNsConfig,
) (*ReminderService, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cert, err := certificate.FromP12File(cfg.CertFile, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert).Production()
	if cfg.Sandbox {
		client = apns2.NewClient(cert).Development()
	}

	return &ReminderService{
		habitRepo: habitRepo,
		userRepo:  userRepo,
		apns:      client,
		topic:     cfg.Topic,
	}, nil
}

// Start runs the sweep loop until ctx is cancelled
func (s *ReminderService) Start(ctx context.Context) {
	if s == nil {
		return
	}

	go func() {
		for {
			next, err := gronx.NextTickAfter(reminderCron, time.Now(), false)
			if err != nil {
				log.Error().Err(err).Msg("Failed to compute next reminder tick")
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
				s.sweep(ctx)
			}
		}
	}()
}

func (s *ReminderService) sweep(ctx context.Context) {
	now := time.Now()
	hhmm := now.Format("15:04")

	habits, err := s.habitRepo.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reminder sweep failed to list habits")
		return
	}

	for _, habit := range habits {
		if habit.ScheduledTime != hhmm || !habit.ActiveOn(now.Weekday()) || habit.IsDoneOn(now) {
			continue
		}

		owner, err := s.userRepo.GetByID(ctx, habit.OwnerID)
		if err != nil || owner.PushToken == nil {
			continue
		}

		notification := &apns2.Notification{
			DeviceToken: *owner.PushToken,
			Topic:       s.topic,
			Payload: []byte(fmt.Sprintf(
				`{"aps":{"alert":{"title":"Time for %s","body":"Check in before the day slips away."}}}`,
				habit.Title,
			)),
		}

		res, err := s.apns.PushWithContext(ctx, notification)
		if err != nil {
			log.Error().Err(err).Str("habit_id", habit.ID).Msg("Failed to send reminder push")
			continue
		}
		if !res.Sent() {
			log.Warn().
				Str("habit_id", habit.ID).
				Str("reason", res.Reason).
				Msg("Reminder push rejected")
			continue
		}

		log.Info().Str("habit_id", habit.ID).Str("user_id", habit.OwnerID).Msg("Reminder sent")
	}
}
