package handlers

import (
	"encoding/json"
	"net/http"

	"habitlink-backend/internal/middleware"
	"habitlink-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// HabitHandler handles habit HTTP requests
type HabitHandler struct {
	habitService *services.HabitService
}

// NewHabitHandler creates a new habit handler
func NewHabitHandler(habitService *services.HabitService) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
	}
}

// CreateHabit handles POST /api/v1/habits
func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	habit, err := h.habitService.CreateHabit(ctx, userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create habit")
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info().Str("habit_id", habit.ID).Str("user_id", userID).Msg("Habit created")
	respondJSON(w, habit, http.StatusCreated)
}

// GetHabits handles GET /api/v1/habits
func (h *HabitHandler) GetHabits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	habits, err := h.habitService.ListHabits(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list habits")
		respondError(w, "Failed to list habits", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"habits": habits,
		"total":  len(habits),
	}, http.StatusOK)
}

// CheckIn handles POST /api/v1/habits/{habit_id}/checkin
func (h *HabitHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	habitID := chi.URLParam(r, "habit_id")

	var req services.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	habit, err := h.habitService.CheckIn(ctx, userID, habitID, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("habit_id", habitID).
			Msg("Failed to check in")
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info().
		Str("habit_id", habitID).
		Str("user_id", userID).
		Bool("done_today", habit.IsDoneToday()).
		Msg("Check-in recorded")

	respondJSON(w, habit, http.StatusOK)
}
