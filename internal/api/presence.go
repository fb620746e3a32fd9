package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"courier/internal/db"
	"courier/internal/presence"
)

type PresenceHandler struct {
	users     *db.UserRepository
	heartbeat *presence.Heartbeat
}

func NewPresenceHandler(users *db.UserRepository, heartbeat *presence.Heartbeat) *PresenceHandler {
	return &PresenceHandler{users: users, heartbeat: heartbeat}
}

type HeartbeatRequest struct {
	Status string `json:"status" validate:"required,oneof=online away"`
}

// POST /api/v1/presence/heartbeat
//
// Foreground-visibility beat from clients without an open websocket session.
func (h *PresenceHandler) PostHeartbeat(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req HeartbeatRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	h.heartbeat.Beat(principal.UserID, req.Status)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/presence/{userID}
func (h *PresenceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetPrincipal(r); !ok {
		unauthorized(w, "User not found in context")
		return
	}

	userID := chi.URLParam(r, "userID")
	user, err := h.users.FindByID(userID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		internalError(w)
		return
	}

	status := presence.ComputeStatus(user.ShowStatus, user.LastSeenAt, user.Status, time.Now().UTC())
	writeJSON(w, http.StatusOK, status)
}
