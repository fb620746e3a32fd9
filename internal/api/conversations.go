package api

import (
	"net/http"
	"strings"

	"courier/internal/chat"
	"courier/internal/convo"
)

type ConversationHandler struct {
	convos *convo.Service
	chat   *chat.Service
}

func NewConversationHandler(convoService *convo.Service, chatService *chat.Service) *ConversationHandler {
	return &ConversationHandler{convos: convoService, chat: chatService}
}

// GET /api/v1/conversations?filter=
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	filter, err := convo.ParseFilter(strings.TrimSpace(r.URL.Query().Get("filter")))
	if err != nil {
		badRequest(w, "Query parameter 'filter' must be one of: all, unread, archived")
		return
	}

	conversations, err := h.convos.List(r.Context(), principal.UserID, filter)
	if err != nil {
		writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conversations)
}

type ConversationTargetRequest struct {
	CounterpartID string  `json:"counterpartId" validate:"required"`
	JobID         *string `json:"jobId"`
}

// POST /api/v1/conversations/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.setReadState(w, r, true)
}

// POST /api/v1/conversations/unread
func (h *ConversationHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.setReadState(w, r, false)
}

func (h *ConversationHandler) setReadState(w http.ResponseWriter, r *http.Request, read bool) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	var req ConversationTargetRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var err error
	if read {
		err = h.chat.MarkRead(r.Context(), principal.UserID, req.CounterpartID, req.JobID)
	} else {
		err = h.chat.MarkUnread(r.Context(), principal.UserID, req.CounterpartID, req.JobID)
	}
	if err != nil {
		writeChatError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/conversations?peer=&job=
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.chat.DeleteConversation(r.Context(), principal.UserID, peer, jobID); err != nil {
		writeChatError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
