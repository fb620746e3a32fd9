package models

import "time"

// SelfStatus is the status a user reports about themselves. It only matters
// while the user is recently active; presence banding does the rest.
const (
	StatusOnline = "online"
	StatusAway   = "away"
)

// User carries the display profile plus the presence fields written by the
// heartbeat (LastSeenAt, Status) and the privacy opt-out (ShowStatus).
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	AvatarURL  *string    `json:"avatarUrl,omitempty"`
	ShowStatus bool       `json:"showStatus"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (u *User) GetAvatarURL() string {
	if u.AvatarURL != nil {
		return *u.AvatarURL
	}
	return ""
}
