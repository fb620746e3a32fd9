package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"courier/internal/auth"
	"courier/internal/db"
	"courier/internal/feed"
	"courier/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub        *feed.Hub
	jwtService *auth.JWTService
	users      *db.UserRepository
	heartbeat  *presence.Heartbeat
}

func NewWebSocketHandler(hub *feed.Hub, jwtService *auth.JWTService, users *db.UserRepository, heartbeat *presence.Heartbeat) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		jwtService: jwtService,
		users:      users,
		heartbeat:  heartbeat,
	}
}

// GET /ws?token=
//
// Browsers cannot set headers on websocket dials, so the access token rides
// in the query string.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateAccessToken(token)
	if err != nil {
		slog.Debug("websocket auth rejected", "error", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.FindByID(claims.UserID)
	if err != nil {
		slog.Debug("websocket user lookup failed", "error", err)
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := feed.NewClient(h.hub, conn, user, h.heartbeat)
	client.SendHello()

	go client.WritePump()
	go client.ReadPump()
}
