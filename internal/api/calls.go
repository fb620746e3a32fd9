package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"courier/internal/call"
	"courier/internal/constants"
	"courier/internal/models"
)

type CallHandler struct {
	calls *call.Service
}

func NewCallHandler(callService *call.Service) *CallHandler {
	return &CallHandler{calls: callService}
}

type ProposeCallRequest struct {
	To          string     `json:"to" validate:"required"`
	JobID       *string    `json:"jobId"`
	CallType    string     `json:"callType" validate:"required,oneof=instant scheduled"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// POST /api/v1/calls
func (h *CallHandler) Propose(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req ProposeCallRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	msg, err := h.calls.Propose(r.Context(), principal.UserID, req.To, req.JobID, models.CallType(req.CallType), req.ScheduledAt)
	if err != nil {
		writeCallError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

type RespondCallRequest struct {
	Action      string     `json:"action" validate:"required,oneof=accept decline counter_propose"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// POST /api/v1/calls/{messageID}/respond
func (h *CallHandler) Respond(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	messageID := chi.URLParam(r, "messageID")

	var req RespondCallRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.calls.Respond(r.Context(), principal.UserID, messageID, call.Action(req.Action), req.ScheduledAt)
	if err != nil {
		writeCallError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeCallError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, call.ErrInvalidTransition):
		writeError(w, http.StatusConflict, constants.ErrCodeInvalidTransition, "The invitation is no longer pending")
	case errors.Is(err, call.ErrNotInvitation):
		badRequest(w, "Message does not carry a call invitation")
	case errors.Is(err, call.ErrInvalidSchedule):
		badRequest(w, "scheduledAt is required for scheduled calls and must be omitted otherwise")
	default:
		writeChatError(w, err)
	}
}
