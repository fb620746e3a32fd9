package blob

import (
	"context"
	"log/slog"
	"time"

	"courier/internal/db"
)

const DefaultCleanupInterval = 1 * time.Hour

// CleanupService sweeps uploads that were never attached to a sent message.
// A failed or abandoned send leaves its blobs unattached; they expire after
// the configured TTL and both the file and the record are removed.
type CleanupService struct {
	blobRepo *db.BlobRepository
	blobs    *Service
	ttl      time.Duration
	interval time.Duration
}

func NewCleanupService(blobRepo *db.BlobRepository, blobs *Service, ttl time.Duration) *CleanupService {
	return &CleanupService{
		blobRepo: blobRepo,
		blobs:    blobs,
		ttl:      ttl,
		interval: DefaultCleanupInterval,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting blob cleanup service", "component", "blob_cleanup", "interval", s.interval, "ttl", s.ttl)

	s.runCleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping blob cleanup service", "component", "blob_cleanup")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *CleanupService) runCleanup() {
	cutoff := time.Now().UTC().Add(-s.ttl)

	records, err := s.blobRepo.ListExpiredUnattached(cutoff)
	if err != nil {
		slog.Error("error listing expired blobs", "component", "blob_cleanup", "error", err)
		return
	}

	removed := 0
	for _, rec := range records {
		if err := s.blobs.Delete(rec.StoragePath); err != nil {
			slog.Error("error deleting blob file", "component", "blob_cleanup", "blob_id", rec.ID, "error", err)
			continue
		}
		if err := s.blobRepo.Delete(rec.ID); err != nil {
			slog.Error("error deleting blob record", "component", "blob_cleanup", "blob_id", rec.ID, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("removed expired blobs", "component", "blob_cleanup", "count", removed)
	}
}
