package api

import (
	"net/http"
	"strconv"
	"strings"

	"courier/internal/db"
)

type NotificationHandler struct {
	notifications *db.NotificationRepository
}

func NewNotificationHandler(notifications *db.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GET /api/v1/notifications?limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	limit := 50
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 100 {
			badRequest(w, "Query parameter 'limit' must be between 1 and 100")
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.ListForUser(principal.UserID, limit)
	if err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}
