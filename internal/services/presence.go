package services

import (
	"context"
	"time"

	"habitlink-backend/internal/models"
	"habitlink-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// PresenceService records best-effort liveness signals derived from
// connection lifecycle and relays them to the peer's thread. No
// heartbeat, no disconnect detection beyond the socket closing.
type PresenceService struct {
	presenceRepo *repository.PresenceRepository
	userRepo     *repository.UserRepository
	hub          *SyncHub
}

// NewPresenceService creates a new presence service
func NewPresenceService(
	presenceRepo *repository.PresenceRepository,
	userRepo *repository.UserRepository,
	hub *SyncHub,
) *PresenceService {
	return &PresenceService{
		presenceRepo: presenceRepo,
		userRepo:     userRepo,
		hub:          hub,
	}
}

// HandleConnect marks the user online and notifies the pair thread
func (s *PresenceService) HandleConnect(ctx context.Context, userID string) {
	if err := s.presenceRepo.SetOnline(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to record online status")
		return
	}
	s.notify(ctx, userID, &models.Presence{UserID: userID, IsOnline: true})
}

// HandleDisconnect marks the user offline with a server-assigned
// last-seen instant and notifies the pair thread
func (s *PresenceService) HandleDisconnect(ctx context.Context, userID string) {
	lastSeen := time.Now()
	if err := s.presenceRepo.SetOffline(ctx, userID, lastSeen); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to record offline status")
		return
	}
	s.notify(ctx, userID, &models.Presence{UserID: userID, IsOnline: false, LastSeen: &lastSeen})
}

// Get returns the stored presence record for a user
func (s *PresenceService) Get(ctx context.Context, userID string) (*models.Presence, error) {
	return s.presenceRepo.Get(ctx, userID)
}

func (s *PresenceService) notify(ctx context.Context, userID string, presence *models.Presence) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.FriendID == nil {
		return
	}
	threadKey := models.ResolveThreadKey(userID, *user.FriendID)
	s.hub.BroadcastPresence(threadKey, presence)
}
