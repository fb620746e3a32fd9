package models

import "time"

// Conversation is a derived view, never persisted: one row per
// (job, counterpart) pair, recomputed from the message set on every load.
type Conversation struct {
	JobID             *string   `json:"jobId,omitempty"`
	CounterpartID     string    `json:"counterpartId"`
	CounterpartName   string    `json:"counterpartName"`
	CounterpartAvatar string    `json:"counterpartAvatar,omitempty"`
	LastMessageBody   string    `json:"lastMessageBody"`
	LastMessageAt     time.Time `json:"lastMessageAt"`
	UnreadCount       int       `json:"unreadCount"`
}
