package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/tradegate/pkg/logger"
)

// RetentionJob purges decision records past the retention window.
// Scheduled nightly via the cron scheduler.
type RetentionJob struct {
	repo          *Repository
	logger        *logger.Logger
	retentionDays int
}

// NewRetentionJob creates the purge job
func NewRetentionJob(repo *Repository, log *logger.Logger, retentionDays int) *RetentionJob {
	return &RetentionJob{repo: repo, logger: log, retentionDays: retentionDays}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "audit-retention"
}

// Schedule runs nightly at 03:10 (after the trading session is long closed)
func (j *RetentionJob) Schedule() string {
	return "0 10 3 * * *"
}

// Run deletes records older than the retention window
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	deleted, err := j.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("retention purge failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"deleted": deleted,
		"cutoff":  cutoff.Format("2006-01-02"),
	}).Info("Purged expired decision records")

	return nil
}
