package api

import (
	"errors"
	"net/http"

	"courier/internal/db"
)

type UserHandler struct {
	users *db.UserRepository
}

func NewUserHandler(users *db.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	user, err := h.users.FindByID(principal.UserID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UpdateMeRequest struct {
	ShowStatus *bool `json:"showStatus" validate:"required"`
}

// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req UpdateMeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.users.UpdateShowStatus(principal.UserID, *req.ShowStatus); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "User not found")
			return
		}
		internalError(w)
		return
	}

	user, err := h.users.FindByID(principal.UserID)
	if err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
