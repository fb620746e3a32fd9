package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"courier/internal/constants"
	"courier/internal/db"
	"courier/internal/feed"
	"courier/internal/mediaurl"
	"courier/internal/metrics"
	"courier/internal/models"
	"courier/internal/notify"
)

// Service owns the message lifecycle: send, edit, read-state and conversation
// deletion. Mutations are published to the change feed after they commit.
type Service struct {
	messages  *db.MessageRepository
	users     *db.UserRepository
	blobs     *db.BlobRepository
	notifier  *notify.Service
	hub       *feed.Hub
	baseURL   string
	sanitizer *bluemonday.Policy
}

func NewService(
	messages *db.MessageRepository,
	users *db.UserRepository,
	blobs *db.BlobRepository,
	notifier *notify.Service,
	hub *feed.Hub,
	baseURL string,
) *Service {
	return &Service{
		messages:  messages,
		users:     users,
		blobs:     blobs,
		notifier:  notifier,
		hub:       hub,
		baseURL:   baseURL,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// SendInput describes one outbound message. Files reference blobs already
// stored by the upload endpoint; Invitation is set by call negotiation only.
type SendInput struct {
	To         string
	JobID      *string
	Body       string
	Files      []string // uploaded blob ids
	Invitation *models.CallInvitation
	ReplyTo    *string
}

// Send validates, resolves file attachments to durable URLs, persists the
// message and notifies the recipient. Attachment resolution failure aborts
// the whole send; notification failure does not.
func (s *Service) Send(ctx context.Context, actor string, in SendInput) (*models.Message, error) {
	body := strings.TrimSpace(s.sanitizer.Sanitize(in.Body))
	if len(body) > constants.MaxMessageBodyLength {
		return nil, ErrMessageTooLong
	}
	if len(in.Files) > constants.MaxFileAttachments {
		return nil, ErrTooManyAttachments
	}
	if body == "" && len(in.Files) == 0 && in.Invitation == nil {
		return nil, ErrEmptyMessage
	}

	// Every file must already be durably stored and is rewritten here with
	// its retrieved URL; any miss fails the send before a row is written.
	attachments := make([]models.Attachment, 0, len(in.Files)+1)
	for _, blobID := range in.Files {
		att, err := s.resolveFile(actor, blobID)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	if in.Invitation != nil {
		attachments = append(attachments, models.NewCallAttachment(*in.Invitation))
	}

	msg, err := s.messages.Create(actor, in.To, in.JobID, body, attachments, in.ReplyTo)
	if err != nil {
		return nil, &StoreError{Op: "send", Err: err}
	}

	for _, blobID := range in.Files {
		// Best effort: a missed mark only delays blob cleanup, never the send.
		if err := s.blobs.MarkAttached(blobID, msg.CreatedAt); err != nil {
			slog.Warn("marking blob attached failed", "component", "chat", "blob_id", blobID, "error", err)
		}
	}

	metrics.MessagesSent.Inc()

	if in.Invitation == nil {
		s.notifyNewMessage(actor, msg)
	}

	s.hub.Publish(feed.Event{
		Kind:    feed.EventMessageCreate,
		FromID:  msg.FromID,
		ToID:    msg.ToID,
		JobID:   msg.JobID,
		Message: msg,
	})

	return msg, nil
}

// Edit overwrites the body of the actor's own message within the edit window.
// No audit trail is kept; the later of two racing edits wins.
func (s *Service) Edit(ctx context.Context, actor, messageID, newBody string) (*models.Message, error) {
	msg, err := s.messages.FindByID(messageID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &StoreError{Op: "edit", Err: err}
	}

	if msg.FromID != actor {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	if now.Sub(msg.CreatedAt) >= constants.EditWindow {
		return nil, ErrEditWindowExpired
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(newBody))
	if len(body) > constants.MaxMessageBodyLength {
		return nil, ErrMessageTooLong
	}
	if body == "" && len(msg.Attachments) == 0 {
		return nil, ErrEmptyMessage
	}

	if err := s.messages.UpdateBody(messageID, body, now); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "edit", Err: err}
	}

	msg.Body = body
	msg.EditedAt = &now
	metrics.MessagesEdited.Inc()

	s.hub.Publish(feed.Event{
		Kind:    feed.EventMessageUpdate,
		FromID:  msg.FromID,
		ToID:    msg.ToID,
		JobID:   msg.JobID,
		Message: msg,
	})

	return msg, nil
}

// MarkRead flips every unread message from counterpart to the actor within
// the job context. Idempotent.
func (s *Service) MarkRead(ctx context.Context, actor, counterpartID string, jobID *string) error {
	rows, err := s.messages.MarkRead(actor, counterpartID, jobID)
	if err != nil {
		return &StoreError{Op: "mark read", Err: err}
	}

	if rows > 0 {
		s.hub.Publish(feed.Event{
			Kind:   feed.EventMessageRead,
			FromID: counterpartID,
			ToID:   actor,
			JobID:  jobID,
		})
	}
	return nil
}

// MarkUnread is the explicit inverse, used by the viewer to "unread" a thread.
func (s *Service) MarkUnread(ctx context.Context, actor, counterpartID string, jobID *string) error {
	rows, err := s.messages.MarkUnread(actor, counterpartID, jobID)
	if err != nil {
		return &StoreError{Op: "mark unread", Err: err}
	}

	if rows > 0 {
		s.hub.Publish(feed.Event{
			Kind:   feed.EventMessageUnread,
			FromID: counterpartID,
			ToID:   actor,
			JobID:  jobID,
		})
	}
	return nil
}

// DeleteConversation removes the whole (job, pair) thread in both directions
// atomically. Subscribers displaying the thread are told to navigate away.
func (s *Service) DeleteConversation(ctx context.Context, actor, counterpartID string, jobID *string) error {
	if _, err := s.messages.DeleteConversation(jobID, actor, counterpartID); err != nil {
		return &StoreError{Op: "delete conversation", Err: err}
	}

	metrics.ConversationsDeleted.Inc()

	s.hub.Publish(feed.Event{
		Kind:   feed.EventConversationDelete,
		FromID: actor,
		ToID:   counterpartID,
		JobID:  jobID,
	})
	return nil
}

// Thread returns one page of the (job, pair) thread, newest first.
func (s *Service) Thread(ctx context.Context, actor, counterpartID string, jobID *string, beforeID string, limit int) ([]*models.Message, error) {
	msgs, err := s.messages.ListThread(actor, counterpartID, jobID, beforeID, limit)
	if err != nil {
		return nil, &StoreError{Op: "thread", Err: err}
	}
	return msgs, nil
}

// FindMessage loads a single message; used by call negotiation.
func (s *Service) FindMessage(messageID string) (*models.Message, error) {
	msg, err := s.messages.FindByID(messageID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &StoreError{Op: "find message", Err: err}
	}
	return msg, nil
}

func (s *Service) resolveFile(actor, blobID string) (models.Attachment, error) {
	rec, err := s.blobs.FindByID(blobID)
	if errors.Is(err, db.ErrNotFound) {
		return models.Attachment{}, fmt.Errorf("%w: blob %s not found", ErrAttachmentInvalid, blobID)
	}
	if err != nil {
		return models.Attachment{}, &StoreError{Op: "resolve attachment", Err: err}
	}
	if rec.OwnerID != actor {
		return models.Attachment{}, fmt.Errorf("%w: blob %s not owned by sender", ErrAttachmentInvalid, blobID)
	}

	return models.NewFileAttachment(models.FileAttachment{
		Name:      rec.OriginalName,
		URL:       mediaurl.Blob(s.baseURL, rec.ID),
		MimeType:  rec.MimeType,
		SizeBytes: rec.SizeBytes,
	}), nil
}

func (s *Service) notifyNewMessage(actor string, msg *models.Message) {
	title := "New message"
	if sender, err := s.users.FindByID(actor); err == nil {
		title = "New message from " + sender.Username
	}

	preview := msg.Body
	if preview == "" {
		preview = "Sent an attachment"
	}

	s.notifier.Create(msg.ToID, models.NotificationNewMessage, title, preview, models.NotificationPayload{
		JobID:      msg.JobID,
		FromUserID: msg.FromID,
	})
}
