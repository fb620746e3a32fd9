package notify

import (
	"log/slog"

	"courier/internal/db"
	"courier/internal/metrics"
	"courier/internal/models"
)

// Service writes notification records for the external delivery pipeline.
// Every write is best-effort: failures are logged and counted, never
// propagated, so the primary action stays successful.
type Service struct {
	repo *db.NotificationRepository
}

func NewService(repo *db.NotificationRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(userID, notifType, title, message string, payload models.NotificationPayload) {
	if _, err := s.repo.Create(userID, notifType, title, message, payload); err != nil {
		metrics.NotificationFailures.Inc()
		slog.Error("notification write failed",
			"component", "notify", "user_id", userID, "type", notifType, "error", err)
	}
}
