package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AttachmentType discriminates the attachment union. Consumers must switch on
// it exhaustively; an unknown tag is a decoding error, never silently ignored.
type AttachmentType string

const (
	AttachmentFile           AttachmentType = "file"
	AttachmentCallInvitation AttachmentType = "call_invitation"
)

// CallType distinguishes an immediate call request from a scheduled appointment.
type CallType string

const (
	CallInstant   CallType = "instant"
	CallScheduled CallType = "scheduled"
)

// CallStatus is the negotiation state carried on a call invitation attachment.
// Accepted, Declined and CounterProposed are terminal for the message that
// holds them; a counter-proposal forks into a fresh Pending invitation.
type CallStatus string

const (
	CallPending         CallStatus = "pending"
	CallAccepted        CallStatus = "accepted"
	CallDeclined        CallStatus = "declined"
	CallCounterProposed CallStatus = "counter_proposed"
)

type FileAttachment struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

type CallInvitation struct {
	CallType          CallType   `json:"callType"`
	Status            CallStatus `json:"status"`
	ScheduledAt       *time.Time `json:"scheduledAt,omitempty"`
	IsCounterProposal bool       `json:"isCounterProposal"`
}

// Attachment is a tagged union: exactly one of File or Call is set, matching
// Type. Use the constructors to keep the tag and payload consistent.
type Attachment struct {
	Type AttachmentType  `json:"type"`
	File *FileAttachment `json:"file,omitempty"`
	Call *CallInvitation `json:"call,omitempty"`
}

func NewFileAttachment(f FileAttachment) Attachment {
	return Attachment{Type: AttachmentFile, File: &f}
}

func NewCallAttachment(c CallInvitation) Attachment {
	return Attachment{Type: AttachmentCallInvitation, Call: &c}
}

// Validate checks that the tag agrees with the populated variant.
func (a Attachment) Validate() error {
	switch a.Type {
	case AttachmentFile:
		if a.File == nil || a.Call != nil {
			return fmt.Errorf("file attachment missing file payload")
		}
	case AttachmentCallInvitation:
		if a.Call == nil || a.File != nil {
			return fmt.Errorf("call invitation attachment missing call payload")
		}
	default:
		return fmt.Errorf("unknown attachment type %q", a.Type)
	}
	return nil
}

// EncodeAttachments serializes attachments for the messages table.
func EncodeAttachments(attachments []Attachment) (string, error) {
	if len(attachments) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "", fmt.Errorf("encoding attachments: %w", err)
	}
	return string(data), nil
}

// DecodeAttachments parses the stored attachment column and rejects rows whose
// tags do not match their payloads. The result is never nil so messages
// without attachments serialize as an empty array.
func DecodeAttachments(raw string) ([]Attachment, error) {
	if raw == "" || raw == "[]" {
		return []Attachment{}, nil
	}
	var attachments []Attachment
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return nil, fmt.Errorf("decoding attachments: %w", err)
	}
	for _, a := range attachments {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return attachments, nil
}

// Message is the atomic unit of a conversation. JobID scopes the thread to a
// marketplace job posting; nil means a direct conversation.
type Message struct {
	ID          string       `json:"id"`
	FromID      string       `json:"fromId"`
	ToID        string       `json:"toId"`
	JobID       *string      `json:"jobId,omitempty"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
	ReplyTo     *string      `json:"replyTo,omitempty"`
	IsRead      bool         `json:"isRead"`
	CreatedAt   time.Time    `json:"createdAt"`
	EditedAt    *time.Time   `json:"editedAt,omitempty"`
}

// Invitation returns the call invitation attachment, if the message carries
// one. A message holds at most one.
func (m *Message) Invitation() *CallInvitation {
	for i := range m.Attachments {
		if m.Attachments[i].Type == AttachmentCallInvitation {
			return m.Attachments[i].Call
		}
	}
	return nil
}

// Counterpart returns the other party of the message from viewer's side.
func (m *Message) Counterpart(viewerID string) string {
	if m.FromID == viewerID {
		return m.ToID
	}
	return m.FromID
}
