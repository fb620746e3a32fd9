package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"courier/internal/chat"
	"courier/internal/constants"
	"courier/internal/db"
)

type MessageHandler struct {
	chat *chat.Service
}

func NewMessageHandler(chatService *chat.Service) *MessageHandler {
	return &MessageHandler{chat: chatService}
}

type SendMessageRequest struct {
	To      string   `json:"to" validate:"required"`
	JobID   *string  `json:"jobId"`
	Body    string   `json:"body"`
	Files   []string `json:"files"`
	ReplyTo *string  `json:"replyTo"`
}

// POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req SendMessageRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	msg, err := h.chat.Send(r.Context(), principal.UserID, chat.SendInput{
		To:      req.To,
		JobID:   req.JobID,
		Body:    req.Body,
		Files:   req.Files,
		ReplyTo: req.ReplyTo,
	})
	if err != nil {
		writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

type EditMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// PATCH /api/v1/messages/{messageID}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	messageID := chi.URLParam(r, "messageID")

	var req EditMessageRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	msg, err := h.chat.Edit(r.Context(), principal.UserID, messageID, req.Body)
	if err != nil {
		writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// GET /api/v1/messages?peer=&job=&before=&limit=
func (h *MessageHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	peer := strings.TrimSpace(r.URL.Query().Get("peer"))
	if peer == "" {
		badRequest(w, "Query parameter 'peer' is required")
		return
	}

	jobID := optionalQueryParam(r, "job")
	beforeID := strings.TrimSpace(r.URL.Query().Get("before"))

	limit := 50
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > constants.ThreadPageMaxLimit {
			badRequest(w, "Query parameter 'limit' must be between 1 and "+strconv.Itoa(constants.ThreadPageMaxLimit))
			return
		}
		limit = parsed
	}

	msgs, err := h.chat.Thread(r.Context(), principal.UserID, peer, jobID, beforeID, limit)
	if err != nil {
		writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}

// optionalQueryParam maps an absent or empty query parameter to nil, so "no
// job" is an explicit null match downstream.
func optionalQueryParam(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// writeChatError maps message store failures onto the API error taxonomy.
func writeChatError(w http.ResponseWriter, err error) {
	var storeErr *chat.StoreError

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, constants.ErrCodeEmptyMessage, "Message body and attachments cannot both be empty")
	case errors.Is(err, chat.ErrTooManyAttachments):
		writeError(w, http.StatusBadRequest, constants.ErrCodeTooManyAttachments, "A message can carry at most 5 file attachments")
	case errors.Is(err, chat.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, constants.ErrCodeMessageTooLong, "Message body is too long")
	case errors.Is(err, chat.ErrAttachmentInvalid):
		writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid, "One or more attachments could not be resolved")
	case errors.Is(err, chat.ErrForbidden):
		forbidden(w, "Only the sender may modify this message")
	case errors.Is(err, chat.ErrEditWindowExpired):
		writeError(w, http.StatusConflict, constants.ErrCodeEditWindowExpired, "The edit window for this message has expired")
	case errors.Is(err, db.ErrNotFound):
		notFound(w, "Message not found")
	case errors.As(err, &storeErr):
		slog.Error("message store error", "error", err)
		internalError(w)
	default:
		slog.Error("unexpected chat error", "error", err)
		internalError(w)
	}
}
