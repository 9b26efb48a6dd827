package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"habitlink-backend/internal/middleware"
	"habitlink-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // app clients only, no browser origin to trust
	},
}

// WebSocketHandler handles the live sync connection: presence lifecycle
// plus the subscribe/publish protocol.
type WebSocketHandler struct {
	hub             *services.SyncHub
	userService     *services.UserService
	chatService     *services.ChatService
	presenceService *services.PresenceService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.SyncHub,
	userService *services.UserService,
	chatService *services.ChatService,
	presenceService *services.PresenceService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		userService:     userService,
		chatService:     chatService,
		presenceService: presenceService,
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	h.presenceService.HandleConnect(ctx, userID)
	defer func() {
		h.hub.Unsubscribe(conn)
		// Connection context is gone once the socket closes
		h.presenceService.HandleDisconnect(context.Background(), userID)
	}()

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var env services.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse envelope")
			h.sendError(conn, "Invalid envelope format")
			continue
		}

		if err := h.handleEnvelope(ctx, userID, conn, env); err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Str("type", string(env.Type)).
				Msg("Failed to handle envelope")
			h.sendError(conn, err.Error())
		}
	}
}

func (h *WebSocketHandler) handleEnvelope(ctx context.Context, userID string, conn *websocket.Conn, env services.Envelope) error {
	switch env.Type {
	case services.EventSubscribe:
		return h.handleSubscribe(ctx, userID, conn)
	case services.EventPublish:
		return h.handlePublish(ctx, userID, env)
	default:
		return h.sendError(conn, "Unknown envelope type")
	}
}

// handleSubscribe opens the connection's single live subscription to the
// caller's pair thread and delivers the initial snapshot. Registration
// and the initial send happen atomically in the hub so a concurrent
// publish cannot slip its broadcast in between and leave the client on
// an older snapshot.
func (h *WebSocketHandler) handleSubscribe(ctx context.Context, userID string, conn *websocket.Conn) error {
	threadKey, err := h.userService.ThreadKeyFor(ctx, userID)
	if err != nil {
		return err
	}

	err = h.hub.SubscribeWithSnapshot(threadKey, conn, func() ([]json.RawMessage, error) {
		return h.chatService.Snapshot(ctx, threadKey)
	})
	if err != nil {
		// Leave the subscription live; the next publish refreshes it
		log.Error().Err(err).Str("thread_key", threadKey).Msg("Failed to deliver initial snapshot")
	}
	return nil
}

func (h *WebSocketHandler) handlePublish(ctx context.Context, userID string, env services.Envelope) error {
	if len(env.Message) == 0 {
		return nil
	}

	threadKey, err := h.userService.ThreadKeyFor(ctx, userID)
	if err != nil {
		return err
	}

	return h.chatService.Publish(ctx, threadKey, userID, env.Message)
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) error {
	return h.hub.SendEnvelope(conn, services.Envelope{
		Type:  services.EventError,
		Error: message,
	})
}
