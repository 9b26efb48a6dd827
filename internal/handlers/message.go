package handlers

import (
	"net/http"

	"habitlink-backend/internal/middleware"
	"habitlink-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles message history HTTP requests
type MessageHandler struct {
	chatService *services.ChatService
	userService *services.UserService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(chatService *services.ChatService, userService *services.UserService) *MessageHandler {
	return &MessageHandler{
		chatService: chatService,
		userService: userService,
	}
}

// GetMessages handles GET /api/v1/messages — the caller's pair thread,
// full snapshot, ascending by timestamp.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	threadKey, err := h.userService.ThreadKeyFor(ctx, userID)
	if err != nil {
		respondError(w, "user is not paired", http.StatusNotFound)
		return
	}

	records, err := h.chatService.Snapshot(ctx, threadKey)
	if err != nil {
		log.Error().Err(err).Str("thread_key", threadKey).Msg("Failed to load messages")
		respondError(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"thread_key": threadKey,
		"messages":   records,
		"total":      len(records),
	}, http.StatusOK)
}

// GetPresence handles GET /api/v1/presence/{user_id}
type PresenceHandler struct {
	presenceService *services.PresenceService
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(presenceService *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

// GetPresence returns the stored presence record for a peer
func (h *PresenceHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	presence, err := h.presenceService.Get(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get presence")
		respondError(w, "Failed to get presence", http.StatusInternalServerError)
		return
	}

	respondJSON(w, presence, http.StatusOK)
}
