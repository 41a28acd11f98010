package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragdex/ragdex/internal/filestore"
)

// ArchiveCleanupJob prunes archived raw uploads past their retention age. The
// vector index is untouched; only the original-bytes copies expire.
type ArchiveCleanupJob struct {
	store      filestore.Store
	maxAgeDays int
}

func NewArchiveCleanupJob(store filestore.Store, maxAgeDays int) *ArchiveCleanupJob {
	return &ArchiveCleanupJob{store: store, maxAgeDays: maxAgeDays}
}

func (j *ArchiveCleanupJob) Name() string {
	return "archive_cleanup"
}

func (j *ArchiveCleanupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	removed, err := j.store.RemoveOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired archives removed", zap.Int("count", removed))
	}
	return nil
}
