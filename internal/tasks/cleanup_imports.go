package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ImportJobCleaner deletes finished import job records past retention.
type ImportJobCleaner interface {
	DeleteFinishedBefore(cutoff time.Time) (int64, error)
}

// CleanupImportJobsTask removes terminal import jobs older than the
// configured retention period.
type CleanupImportJobsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for import job cleanup.
func (t CleanupImportJobsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_import_jobs",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupImportJobsProcessor creates a processor function for
// CleanupImportJobsTask.
func CleanupImportJobsProcessor(cleaner ImportJobCleaner) backlite.QueueProcessor[CleanupImportJobsTask] {
	return func(ctx context.Context, task CleanupImportJobsTask) error {
		if cleaner == nil {
			return fmt.Errorf("import job cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 30
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)

		deleted, err := cleaner.DeleteFinishedBefore(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup import jobs: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d import jobs older than %d days", deleted, retentionDays)
		return nil
	}
}

// NewCleanupImportJobsQueue creates a backlite queue for import job
// cleanup tasks.
func NewCleanupImportJobsQueue(cleaner ImportJobCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupImportJobsProcessor(cleaner))
}
