package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courier/internal/constants"
	"courier/internal/models"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(fromID, toID string, jobID *string, body string, attachments []models.Attachment, replyTo *string) (*models.Message, error) {
	id, err := GenerateID("msg")
	if err != nil {
		return nil, fmt.Errorf("generating message ID: %w", err)
	}
	now := time.Now().UTC()

	encoded, err := models.EncodeAttachments(attachments)
	if err != nil {
		return nil, err
	}

	_, err = r.db.Exec(
		`INSERT INTO messages (id, from_id, to_id, job_id, body, attachments, reply_to, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		id, fromID, toID, jobID, body, encoded, replyTo, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	return &models.Message{
		ID:          id,
		FromID:      fromID,
		ToID:        toID,
		JobID:       jobID,
		Body:        body,
		Attachments: attachments,
		ReplyTo:     replyTo,
		CreatedAt:   now,
	}, nil
}

const messageColumns = `id, from_id, to_id, job_id, body, attachments, reply_to, is_read, created_at, edited_at`

func (r *MessageRepository) FindByID(id string) (*models.Message, error) {
	row := r.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return m, nil
}

// UpdateBody overwrites the message body and stamps edited_at. No audit trail
// of prior bodies is kept.
func (r *MessageRepository) UpdateBody(id, body string, editedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE messages SET body = ?, edited_at = ? WHERE id = ?`,
		body, editedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating message body: %w", err)
	}
	return checkRowsAffected(result)
}

// UpdateAttachments replaces the attachment column wholesale. Used by call
// negotiation to flip an invitation's status in place.
func (r *MessageRepository) UpdateAttachments(id string, attachments []models.Attachment) error {
	encoded, err := models.EncodeAttachments(attachments)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`UPDATE messages SET attachments = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("updating message attachments: %w", err)
	}
	return checkRowsAffected(result)
}

// ListForUser returns every message touching the viewer, newest first.
// Secondary rowid ordering makes the tie-break on equal created_at stable
// across fetches (best effort, no further guarantee).
func (r *MessageRepository) ListForUser(viewerID string) ([]*models.Message, error) {
	rows, err := r.db.Query(
		`SELECT `+messageColumns+` FROM messages
		 WHERE from_id = ? OR to_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		viewerID, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListThread returns the messages of one (job, pair) thread, newest first,
// optionally paginated with beforeID.
func (r *MessageRepository) ListThread(viewerID, counterpartID string, jobID *string, beforeID string, limit int) ([]*models.Message, error) {
	if limit <= 0 || limit > constants.ThreadPageMaxLimit {
		limit = 50
	}

	var args []any
	query := `SELECT ` + messageColumns + ` FROM messages
		 WHERE ((from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?))`
	args = append(args, viewerID, counterpartID, counterpartID, viewerID)
	query += ` AND ` + jobClause("job_id", jobID, &args)

	if beforeID != "" {
		query += ` AND rowid < (SELECT rowid FROM messages WHERE id = ?)`
		args = append(args, beforeID)
	}

	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// MarkRead bulk-sets is_read on every unread message sent by counterpart to
// viewer within the job context. Idempotent; returns the rows flipped.
func (r *MessageRepository) MarkRead(viewerID, counterpartID string, jobID *string) (int64, error) {
	return r.setRead(viewerID, counterpartID, jobID, true)
}

// MarkUnread is the inverse bulk operation with the same matching semantics.
func (r *MessageRepository) MarkUnread(viewerID, counterpartID string, jobID *string) (int64, error) {
	return r.setRead(viewerID, counterpartID, jobID, false)
}

func (r *MessageRepository) setRead(viewerID, counterpartID string, jobID *string, read bool) (int64, error) {
	newVal, oldVal := 1, 0
	if !read {
		newVal, oldVal = 0, 1
	}

	args := []any{newVal, viewerID, counterpartID, oldVal}
	query := `UPDATE messages SET is_read = ?
		 WHERE to_id = ? AND from_id = ? AND is_read = ?
		 AND ` + jobClause("job_id", jobID, &args)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating read state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows, nil
}

// DeleteConversation irreversibly removes every message of the (job, pair)
// thread in both directions, inside a single transaction: either the whole
// thread goes or none of it does.
func (r *MessageRepository) DeleteConversation(jobID *string, userA, userB string) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	args := []any{userA, userB, userB, userA}
	query := `DELETE FROM messages
		 WHERE ((from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?))
		 AND ` + jobClause("job_id", jobID, &args)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete transaction: %w", err)
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m           models.Message
		jobID       sql.NullString
		replyTo     sql.NullString
		attachments string
		editedAt    sql.NullTime
	)

	err := row.Scan(&m.ID, &m.FromID, &m.ToID, &jobID, &m.Body, &attachments, &replyTo, &m.IsRead, &m.CreatedAt, &editedAt)
	if err != nil {
		return nil, err
	}

	m.JobID = nullStringToPtr(jobID)
	m.ReplyTo = nullStringToPtr(replyTo)
	m.EditedAt = nullTimeToPtr(editedAt)

	m.Attachments, err = models.DecodeAttachments(attachments)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", m.ID, err)
	}

	return &m, nil
}

func collectMessages(rows *sql.Rows) ([]*models.Message, error) {
	messages := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}
