package convo

import (
	"context"
	"fmt"

	"courier/internal/db"
	"courier/internal/models"
)

// Filter narrows the conversation list.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"

	// FilterArchived is accepted but has no backing data source yet; it
	// behaves as FilterAll. TODO: wire to an archived flag once product
	// decides where archiving lives.
	FilterArchived Filter = "archived"
)

func ParseFilter(raw string) (Filter, error) {
	switch Filter(raw) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnread:
		return FilterUnread, nil
	case FilterArchived:
		return FilterArchived, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// groupKey identifies one conversation: the job context plus the other party.
type groupKey struct {
	jobID       string
	direct      bool // true when the thread has no job context
	counterpart string
}

func keyFor(viewerID string, m *models.Message) groupKey {
	k := groupKey{counterpart: m.Counterpart(viewerID)}
	if m.JobID == nil {
		k.direct = true
	} else {
		k.jobID = *m.JobID
	}
	return k
}

// Aggregate derives the conversation list from messages ordered newest first
// (store return order breaks created-at ties, best effort). Exactly one row
// per (job, counterpart) key; the first message seen for a key supplies the
// preview, and rows come out in first-encounter order, i.e. most recently
// active conversation first.
func Aggregate(viewerID string, msgs []*models.Message, filter Filter) []*models.Conversation {
	groups := make(map[groupKey]*models.Conversation)
	order := make([]groupKey, 0)

	for _, m := range msgs {
		k := keyFor(viewerID, m)

		conv, ok := groups[k]
		if !ok {
			conv = &models.Conversation{
				JobID:           m.JobID,
				CounterpartID:   k.counterpart,
				LastMessageBody: m.Body,
				LastMessageAt:   m.CreatedAt,
			}
			groups[k] = conv
			order = append(order, k)
		}

		if m.ToID == viewerID && !m.IsRead {
			conv.UnreadCount++
		}
	}

	conversations := make([]*models.Conversation, 0, len(order))
	for _, k := range order {
		conv := groups[k]
		if filter == FilterUnread && conv.UnreadCount == 0 {
			continue
		}
		conversations = append(conversations, conv)
	}
	return conversations
}

// Service recomputes the conversation view on every load; conversations have
// no identity beyond their key.
type Service struct {
	messages *db.MessageRepository
	users    *db.UserRepository
}

func NewService(messages *db.MessageRepository, users *db.UserRepository) *Service {
	return &Service{messages: messages, users: users}
}

func (s *Service) List(ctx context.Context, viewerID string, filter Filter) ([]*models.Conversation, error) {
	msgs, err := s.messages.ListForUser(viewerID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	conversations := Aggregate(viewerID, msgs, filter)

	// Fill display identities, one lookup per distinct counterpart.
	profiles := make(map[string]*models.User)
	for _, conv := range conversations {
		profile, ok := profiles[conv.CounterpartID]
		if !ok {
			profile, err = s.users.FindByID(conv.CounterpartID)
			if err != nil {
				// A missing profile should not hide the thread.
				profile = &models.User{ID: conv.CounterpartID, Username: conv.CounterpartID}
			}
			profiles[conv.CounterpartID] = profile
		}
		conv.CounterpartName = profile.Username
		conv.CounterpartAvatar = profile.GetAvatarURL()
	}

	return conversations, nil
}
