package models

import "time"

// NotificationType values consumed by the notifications collaborator.
const (
	NotificationNewMessage    = "new_message"
	NotificationJobInvitation = "job_invitation"
	NotificationVideoCall     = "video_call_invitation"
)

// Notification is a best-effort record for an external delivery pipeline.
// Payload carries the job context and originating user so the consumer can
// deep-link back into the thread.
type Notification struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Payload   NotificationPayload `json:"payload"`
	CreatedAt time.Time           `json:"createdAt"`
}

type NotificationPayload struct {
	JobID      *string `json:"jobId,omitempty"`
	FromUserID string  `json:"fromUserId,omitempty"`
}
