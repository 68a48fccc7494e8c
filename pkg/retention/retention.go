package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/storage"
)

// Daily at midnight.
const defaultSchedule = "0 0 * * *"

// Job purges conversation records older than the retention window.
type Job struct {
	store    *storage.Store
	schedule string
	maxAge   time.Duration
}

func NewJob(store *storage.Store, retentionDays int) *Job {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Job{
		store:    store,
		schedule: defaultSchedule,
		maxAge:   time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Run blocks until ctx is done, firing RunOnce whenever the schedule
// is due. One purge runs immediately on startup to catch records that
// aged out while the process was down.
func (j *Job) Run(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		logger.WarnCF("retention", "Startup purge failed", map[string]any{"error": err.Error()})
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := gronx.New().IsDue(j.schedule, now)
			if err != nil {
				logger.ErrorCF("retention", "Bad schedule expression", map[string]any{
					"schedule": j.schedule,
					"error":    err.Error(),
				})
				return
			}
			if !due {
				continue
			}
			if _, err := j.RunOnce(ctx); err != nil {
				logger.WarnCF("retention", "Scheduled purge failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// RunOnce deletes conversation records older than the retention
// window. Contact profiles and settings are untouched.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-j.maxAge)
	n, err := j.store.PurgeOlderThan(ctx, storage.PrefixConversationRec, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge conversation records: %w", err)
	}
	if n > 0 {
		logger.InfoCF("retention", "Purged expired conversation records", map[string]any{
			"count":  n,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return n, nil
}
