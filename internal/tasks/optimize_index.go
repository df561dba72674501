package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// SearchIndexMaintainer merges or rebuilds the full-text index.
type SearchIndexMaintainer interface {
	OptimizeSearchIndex() error
	RebuildSearchIndex() error
}

// OptimizeIndexTask merges the FTS b-tree segments; with Rebuild set
// it repopulates the whole index from the words table instead.
type OptimizeIndexTask struct {
	Rebuild bool `json:"rebuild"`
}

// Config returns the queue configuration for index maintenance.
func (t OptimizeIndexTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "optimize_search_index",
		MaxAttempts: 2,
		Backoff:     10 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OptimizeIndexProcessor creates a processor function for
// OptimizeIndexTask.
func OptimizeIndexProcessor(maintainer SearchIndexMaintainer) backlite.QueueProcessor[OptimizeIndexTask] {
	return func(ctx context.Context, task OptimizeIndexTask) error {
		if maintainer == nil {
			return fmt.Errorf("search index maintainer not configured")
		}

		if task.Rebuild {
			if err := maintainer.RebuildSearchIndex(); err != nil {
				return fmt.Errorf("rebuild search index: %w", err)
			}
			log.Printf("[TASK] Search index rebuilt")
			return nil
		}

		if err := maintainer.OptimizeSearchIndex(); err != nil {
			return fmt.Errorf("optimize search index: %w", err)
		}
		log.Printf("[TASK] Search index optimized")
		return nil
	}
}

// NewOptimizeIndexQueue creates a backlite queue for index maintenance
// tasks.
func NewOptimizeIndexQueue(maintainer SearchIndexMaintainer) backlite.Queue {
	return backlite.NewQueue(OptimizeIndexProcessor(maintainer))
}
