package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

// expiredLockDeleter is the slice of the lock repository the job needs.
type expiredLockDeleter interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LockCleanupJobParams configures the expired-hold sweep.
type LockCleanupJobParams struct {
	Logger    *logger.Logger
	Locks     expiredLockDeleter
	Retention time.Duration
}

// NewLockCleanupJob builds the job that deletes long-expired capacity holds.
// Expired holds already count for nothing; this only reclaims storage.
func NewLockCleanupJob(params LockCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock repository required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	return &lockCleanupJob{
		logg:      params.Logger,
		locks:     params.Locks,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type lockCleanupJob struct {
	logg      *logger.Logger
	locks     expiredLockDeleter
	retention time.Duration
	now       func() time.Time
}

func (j *lockCleanupJob) Name() string { return "expired-lock-cleanup" }

func (j *lockCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.locks.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired locks: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	})
	j.logg.Info(logCtx, "expired lock sweep complete")
	return nil
}
