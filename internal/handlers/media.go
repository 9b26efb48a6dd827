package handlers

import (
	"encoding/json"
	"net/http"

	"habitlink-backend/internal/middleware"
	"habitlink-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// MediaHandler handles media upload HTTP requests
type MediaHandler struct {
	mediaService *services.MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

// UploadRequest is the payload for requesting an upload slot
type UploadRequest struct {
	Kind string `json:"kind"` // image | audio
}

// CreateUpload handles POST /api/v1/media/upload
func (h *MediaHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = services.MediaKindImage
	}

	slot, err := h.mediaService.CreateUpload(ctx, req.Kind)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("kind", req.Kind).
			Msg("Failed to create upload slot")
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("key", slot.Key).
		Msg("Upload slot issued")

	respondJSON(w, slot, http.StatusOK)
}
