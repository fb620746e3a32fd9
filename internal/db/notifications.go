package db

import (
	"encoding/json"
	"fmt"
	"time"

	"courier/internal/models"
)

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(userID, notifType, title, message string, payload models.NotificationPayload) (*models.Notification, error) {
	id, err := GenerateID("ntf")
	if err != nil {
		return nil, fmt.Errorf("generating notification ID: %w", err)
	}
	now := time.Now().UTC()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding notification payload: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO notifications (id, user_id, type, title, message, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, notifType, title, message, string(encoded), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	return &models.Notification{
		ID:        id,
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

// ListForUser returns recent notifications, newest first.
func (r *NotificationRepository) ListForUser(userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, user_id, type, title, message, payload, created_at
		 FROM notifications WHERE user_id = ? ORDER BY rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var (
			n       models.Notification
			payload string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &payload, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return nil, fmt.Errorf("decoding notification payload: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}

	return notifications, nil
}
