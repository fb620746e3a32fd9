package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier/internal/chat"
	"courier/internal/config"
	"courier/internal/db"
	"courier/internal/feed"
	"courier/internal/metrics"
	"courier/internal/models"
	"courier/internal/notify"
)

var (
	// ErrInvalidTransition is a logic error: responding to an invitation that
	// is no longer Pending. The stored status is left untouched.
	ErrInvalidTransition = errors.New("invitation is not pending")

	ErrNotInvitation   = errors.New("message carries no call invitation")
	ErrInvalidSchedule = errors.New("scheduledAt is required for scheduled calls only")
)

// Action is the recipient's response to a pending invitation.
type Action string

const (
	ActionAccept         Action = "accept"
	ActionDecline        Action = "decline"
	ActionCounterPropose Action = "counter_propose"
)

// Service runs the call negotiation state machine on top of the message
// store: invitations are typed attachments on ordinary messages.
type Service struct {
	chat     *chat.Service
	messages *db.MessageRepository
	users    *db.UserRepository
	notifier *notify.Service
	hub      *feed.Hub
	turn     config.TURNConfig
}

func NewService(
	chatService *chat.Service,
	messages *db.MessageRepository,
	users *db.UserRepository,
	notifier *notify.Service,
	hub *feed.Hub,
	turn config.TURNConfig,
) *Service {
	return &Service{
		chat:     chatService,
		messages: messages,
		users:    users,
		notifier: notifier,
		hub:      hub,
		turn:     turn,
	}
}

// Propose sends a fresh Pending invitation as a message whose body is the
// human-readable summary, and notifies the recipient.
func (s *Service) Propose(ctx context.Context, actor, to string, jobID *string, callType models.CallType, scheduledAt *time.Time) (*models.Message, error) {
	switch callType {
	case models.CallInstant:
		if scheduledAt != nil {
			return nil, ErrInvalidSchedule
		}
	case models.CallScheduled:
		if scheduledAt == nil {
			return nil, ErrInvalidSchedule
		}
	default:
		return nil, fmt.Errorf("unknown call type %q", callType)
	}

	msg, err := s.propose(ctx, actor, to, jobID, callType, scheduledAt, false)
	if err != nil {
		return nil, err
	}

	metrics.CallInvitations.WithLabelValues(string(callType)).Inc()
	return msg, nil
}

func (s *Service) propose(ctx context.Context, actor, to string, jobID *string, callType models.CallType, scheduledAt *time.Time, isCounter bool) (*models.Message, error) {
	msg, err := s.chat.Send(ctx, actor, chat.SendInput{
		To:    to,
		JobID: jobID,
		Body:  summaryBody(callType, scheduledAt),
		Invitation: &models.CallInvitation{
			CallType:          callType,
			Status:            models.CallPending,
			ScheduledAt:       scheduledAt,
			IsCounterProposal: isCounter,
		},
	})
	if err != nil {
		return nil, err
	}

	s.notifyInvitation(actor, msg, isCounter)
	return msg, nil
}

// RespondResult reports the outcome of a response. ShouldOpenCall tells the
// responder's UI to transition straight into the active call; scheduled calls
// never auto-open.
type RespondResult struct {
	Message        *models.Message  `json:"message"`
	Counter        *models.Message  `json:"counter,omitempty"`
	ShouldOpenCall bool             `json:"shouldOpenCall"`
	ICEServers     []feed.ICEServer `json:"iceServers,omitempty"`
}

// Respond applies accept/decline/counter_propose to a Pending invitation.
// Only the invited party may respond; any response to a non-Pending
// invitation fails with ErrInvalidTransition and changes nothing.
func (s *Service) Respond(ctx context.Context, actor, messageID string, action Action, newScheduledAt *time.Time) (*RespondResult, error) {
	msg, err := s.chat.FindMessage(messageID)
	if err != nil {
		return nil, err
	}

	invitation := msg.Invitation()
	if invitation == nil {
		return nil, ErrNotInvitation
	}
	if msg.ToID != actor {
		return nil, chat.ErrForbidden
	}
	if invitation.Status != models.CallPending {
		return nil, ErrInvalidTransition
	}

	switch action {
	case ActionAccept:
		return s.accept(msg, invitation)
	case ActionDecline:
		return s.decline(msg)
	case ActionCounterPropose:
		if newScheduledAt == nil {
			return nil, ErrInvalidSchedule
		}
		return s.counterPropose(ctx, actor, msg, newScheduledAt)
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

func (s *Service) accept(msg *models.Message, invitation *models.CallInvitation) (*RespondResult, error) {
	updated, err := s.setInvitationStatus(msg, models.CallAccepted)
	if err != nil {
		return nil, err
	}

	shouldOpen := invitation.CallType == models.CallInstant

	s.publishUpdate(updated)
	s.hub.Publish(feed.Event{
		Kind:   feed.EventCallAccepted,
		FromID: updated.FromID,
		ToID:   updated.ToID,
		JobID:  updated.JobID,
		Call: &feed.CallEvent{
			MessageID:      updated.ID,
			ProposerID:     updated.FromID,
			CallType:       invitation.CallType,
			ShouldOpenCall: shouldOpen,
			ICEServers:     BuildICEServers(s.turn, updated.FromID),
		},
	})

	result := &RespondResult{Message: updated, ShouldOpenCall: shouldOpen}
	if shouldOpen {
		result.ICEServers = BuildICEServers(s.turn, updated.ToID)
	}
	return result, nil
}

func (s *Service) decline(msg *models.Message) (*RespondResult, error) {
	updated, err := s.setInvitationStatus(msg, models.CallDeclined)
	if err != nil {
		return nil, err
	}

	s.publishUpdate(updated)
	return &RespondResult{Message: updated}, nil
}

// counterPropose terminates the original invitation and forks a brand-new
// Pending one back to the original proposer.
func (s *Service) counterPropose(ctx context.Context, actor string, msg *models.Message, newScheduledAt *time.Time) (*RespondResult, error) {
	updated, err := s.setInvitationStatus(msg, models.CallCounterProposed)
	if err != nil {
		return nil, err
	}
	s.publishUpdate(updated)

	counter, err := s.propose(ctx, actor, msg.FromID, msg.JobID, models.CallScheduled, newScheduledAt, true)
	if err != nil {
		return nil, err
	}

	metrics.CallInvitations.WithLabelValues(string(models.CallScheduled)).Inc()
	return &RespondResult{Message: updated, Counter: counter}, nil
}

func (s *Service) setInvitationStatus(msg *models.Message, status models.CallStatus) (*models.Message, error) {
	attachments := make([]models.Attachment, len(msg.Attachments))
	copy(attachments, msg.Attachments)

	updatedInvitation := false
	for i := range attachments {
		if attachments[i].Type != models.AttachmentCallInvitation {
			continue
		}
		call := *attachments[i].Call
		call.Status = status
		attachments[i] = models.NewCallAttachment(call)
		updatedInvitation = true
		break
	}
	if !updatedInvitation {
		return nil, ErrNotInvitation
	}

	if err := s.messages.UpdateAttachments(msg.ID, attachments); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, &chat.StoreError{Op: "update invitation", Err: err}
	}

	updated := *msg
	updated.Attachments = attachments
	return &updated, nil
}

func (s *Service) publishUpdate(msg *models.Message) {
	s.hub.Publish(feed.Event{
		Kind:    feed.EventMessageUpdate,
		FromID:  msg.FromID,
		ToID:    msg.ToID,
		JobID:   msg.JobID,
		Message: msg,
	})
}

func (s *Service) notifyInvitation(actor string, msg *models.Message, isCounter bool) {
	proposerName := "A user"
	if proposer, err := s.users.FindByID(actor); err == nil {
		proposerName = proposer.Username
	}

	title := proposerName + " invited you to a video call"
	if isCounter {
		title = proposerName + " proposed a new call time"
	}

	s.notifier.Create(msg.ToID, models.NotificationVideoCall, title, msg.Body, models.NotificationPayload{
		JobID:      msg.JobID,
		FromUserID: msg.FromID,
	})
}

func summaryBody(callType models.CallType, scheduledAt *time.Time) string {
	if callType == models.CallScheduled && scheduledAt != nil {
		return fmt.Sprintf("📞 Video call invitation for %s at %s",
			scheduledAt.Format("Jan 2, 2006"), scheduledAt.Format("3:04 PM"))
	}
	return "📞 Instant video call request"
}
