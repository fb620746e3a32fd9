package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courier/internal/models"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(username string) (*models.User, error) {
	id, err := GenerateID("usr")
	if err != nil {
		return nil, fmt.Errorf("generating user ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.Exec(
		`INSERT INTO users (id, username, show_status, status, created_at) VALUES (?, ?, 1, ?, ?)`,
		id, username, models.StatusOnline, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &models.User{
		ID:         id,
		Username:   username,
		ShowStatus: true,
		Status:     models.StatusOnline,
		CreatedAt:  now,
	}, nil
}

func (r *UserRepository) FindByID(id string) (*models.User, error) {
	var (
		u          models.User
		avatarURL  sql.NullString
		lastSeenAt sql.NullTime
	)

	err := r.db.QueryRow(
		`SELECT id, username, avatar_url, show_status, status, last_seen_at, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &avatarURL, &u.ShowStatus, &u.Status, &lastSeenAt, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.AvatarURL = nullStringToPtr(avatarURL)
	u.LastSeenAt = nullTimeToPtr(lastSeenAt)

	return &u, nil
}

// UpdateHeartbeat writes the presence fields the tracker reads: last write
// wins, no versioning.
func (r *UserRepository) UpdateHeartbeat(id, status string, seenAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE users SET last_seen_at = ?, status = ? WHERE id = ?`,
		seenAt.UTC(), status, id,
	)
	if err != nil {
		return fmt.Errorf("updating heartbeat: %w", err)
	}
	return checkRowsAffected(result)
}

// UpdateShowStatus flips the presence privacy opt-out.
func (r *UserRepository) UpdateShowStatus(id string, show bool) error {
	result, err := r.db.Exec(`UPDATE users SET show_status = ? WHERE id = ?`, show, id)
	if err != nil {
		return fmt.Errorf("updating show_status: %w", err)
	}
	return checkRowsAffected(result)
}
