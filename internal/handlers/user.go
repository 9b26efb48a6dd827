package handlers

import (
	"encoding/json"
	"net/http"

	"habitlink-backend/internal/middleware"
	"habitlink-backend/internal/models"
	"habitlink-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
	chatService *services.ChatService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, chatService *services.ChatService) *UserHandler {
	return &UserHandler{
		userService: userService,
		chatService: chatService,
	}
}

// CreateUserRequest is the payload for POST /users
type CreateUserRequest struct {
	DisplayName string `json:"display_name"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		respondError(w, "display_name is required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req.DisplayName)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		respondError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User created")
	respondJSON(w, user, http.StatusCreated)
}

// PairRequest is the payload for POST /pair
type PairRequest struct {
	PartnerCode string `json:"partner_code"`
}

// Pair handles POST /api/v1/pair. On success a system message opens the
// pair's thread.
func (h *UserHandler) Pair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	friend, err := h.userService.PairWithCode(ctx, userID, req.PartnerCode)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to pair")
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	threadKey := models.ResolveThreadKey(userID, friend.ID)
	opening := models.NewSystemMessage(userID, "You are now paired. Build something good together.")
	if err := h.chatService.PublishMessage(ctx, threadKey, opening); err != nil {
		log.Error().Err(err).Str("thread_key", threadKey).Msg("Failed to publish pairing notice")
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", friend.ID).
		Msg("Users paired")

	respondJSON(w, map[string]interface{}{
		"friend":     friend,
		"thread_key": threadKey,
	}, http.StatusOK)
}

// PushTokenRequest is the payload for POST /push-token
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// RegisterPushToken handles POST /api/v1/push-token
func (h *UserHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PushToken == "" {
		respondError(w, "push_token is required", http.StatusBadRequest)
		return
	}

	if err := h.userService.RegisterPushToken(ctx, userID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register push token")
		respondError(w, "Failed to register push token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
