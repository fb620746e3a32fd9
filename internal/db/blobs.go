package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BlobRecord tracks one stored upload. attached_at stays NULL until the blob
// is referenced by a sent message; unattached blobs are swept after a TTL.
type BlobRecord struct {
	ID           string
	OwnerID      string
	Kind         string
	StoragePath  string
	MimeType     string
	SizeBytes    int64
	OriginalName string
	AttachedAt   *time.Time
	CreatedAt    time.Time
}

type BlobRepository struct {
	db *DB
}

func NewBlobRepository(db *DB) *BlobRepository {
	return &BlobRepository{db: db}
}

func (r *BlobRepository) Create(rec *BlobRecord) error {
	_, err := r.db.Exec(
		`INSERT INTO blobs (id, owner_id, kind, storage_path, mime_type, size_bytes, original_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Kind, rec.StoragePath, rec.MimeType, rec.SizeBytes, rec.OriginalName, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating blob record: %w", err)
	}
	return nil
}

func (r *BlobRepository) FindByID(id string) (*BlobRecord, error) {
	var (
		rec        BlobRecord
		attachedAt sql.NullTime
	)

	err := r.db.QueryRow(
		`SELECT id, owner_id, kind, storage_path, mime_type, size_bytes, original_name, attached_at, created_at
		 FROM blobs WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &rec.StoragePath, &rec.MimeType, &rec.SizeBytes, &rec.OriginalName, &attachedAt, &rec.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying blob: %w", err)
	}

	rec.AttachedAt = nullTimeToPtr(attachedAt)
	return &rec, nil
}

// MarkAttached stamps the blob as referenced by a persisted message so the
// cleanup sweep leaves it alone.
func (r *BlobRepository) MarkAttached(id string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE blobs SET attached_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("marking blob attached: %w", err)
	}
	return checkRowsAffected(result)
}

// ListExpiredUnattached returns blobs that were uploaded before the cutoff and
// never referenced by a message.
func (r *BlobRepository) ListExpiredUnattached(cutoff time.Time) ([]*BlobRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, owner_id, kind, storage_path, mime_type, size_bytes, original_name, attached_at, created_at
		 FROM blobs WHERE attached_at IS NULL AND created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying expired blobs: %w", err)
	}
	defer rows.Close()

	records := make([]*BlobRecord, 0)
	for rows.Next() {
		var (
			rec        BlobRecord
			attachedAt sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &rec.StoragePath, &rec.MimeType, &rec.SizeBytes, &rec.OriginalName, &attachedAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning blob: %w", err)
		}
		rec.AttachedAt = nullTimeToPtr(attachedAt)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blobs: %w", err)
	}

	return records, nil
}

func (r *BlobRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM blobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting blob record: %w", err)
	}
	return nil
}
