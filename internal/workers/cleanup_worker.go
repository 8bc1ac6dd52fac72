package workers

import (
	"context"
	"errors"
	"time"

	"mediastore/internal/logger"
	"mediastore/internal/repositories"
	"mediastore/internal/storage"
)

const sweepBatchSize = 100

// CleanupWorker reconciles upload records against their backends:
// records whose primary object disappeared (manual deletion on the
// backend, failed rollbacks) are removed so listings stay truthful.
type CleanupWorker struct {
	uploadRepo repositories.UploadRepository
	disks      *storage.Registry
	interval   time.Duration
}

func NewCleanupWorker(uploadRepo repositories.UploadRepository, disks *storage.Registry, interval time.Duration) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupWorker{
		uploadRepo: uploadRepo,
		disks:      disks,
		interval:   interval,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	go w.sweepLoop(ctx)
}

func (w *CleanupWorker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup worker stopped")
			return
		case <-ticker.C:
			removed, err := w.Sweep(ctx)
			if err != nil {
				logger.Error("Orphan sweep failed", "error", err)
			} else if removed > 0 {
				logger.Info("Orphan sweep finished", "removed", removed)
			}
		}
	}
}

// Sweep walks every record once and removes those whose object is gone.
// Backends that are temporarily unreachable are skipped, not treated as
// missing objects.
func (w *CleanupWorker) Sweep(ctx context.Context) (int, error) {
	var removed int
	var afterID string

	for {
		batch, err := w.uploadRepo.FindBatch(ctx, afterID, sweepBatchSize)
		if err != nil {
			return removed, err
		}
		if len(batch) == 0 {
			return removed, nil
		}

		for _, upload := range batch {
			afterID = upload.ID

			driver, ok := w.disks.Disk(upload.Disk)
			if !ok {
				logger.Warn("Record references unknown disk, skipping", "upload_id", upload.ID, "disk", upload.Disk)
				continue
			}

			reader, err := driver.Open(ctx, upload.Path)
			if err == nil {
				reader.Close()
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				logger.Warn("Backend unreachable during sweep, skipping", "disk", upload.Disk, "error", err)
				continue
			}

			if err := w.uploadRepo.Delete(ctx, upload.ID); err != nil {
				logger.Error("Failed to remove orphaned record", "upload_id", upload.ID, "error", err)
				continue
			}
			logger.Info("Removed orphaned upload record", "upload_id", upload.ID, "disk", upload.Disk, "path", upload.Path)
			removed++
		}
	}
}
