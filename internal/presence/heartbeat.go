package presence

import (
	"context"
	"log/slog"
	"time"

	"courier/internal/db"
)

// Heartbeat periodically writes a user's presence fields while their session
// is active. Write failures are swallowed on purpose: a missed heartbeat must
// never interrupt the session.
type Heartbeat struct {
	users    *db.UserRepository
	interval time.Duration
}

func NewHeartbeat(users *db.UserRepository, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Heartbeat{users: users, interval: interval}
}

// Beat writes a single heartbeat now. Used on session start and whenever the
// client regains foreground visibility.
func (h *Heartbeat) Beat(userID, status string) {
	if err := h.users.UpdateHeartbeat(userID, status, time.Now().UTC()); err != nil {
		slog.Debug("heartbeat write failed", "component", "presence", "user_id", userID, "error", err)
	}
}

// Run beats immediately, then on every tick until ctx is cancelled. status is
// re-read on each beat so a mid-session presence change takes effect. One Run
// per active session; the owner cancels ctx when the session ends so no timer
// leaks.
func (h *Heartbeat) Run(ctx context.Context, userID string, status func() string) {
	h.Beat(userID, status())

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Beat(userID, status())
		}
	}
}
