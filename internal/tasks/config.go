package tasks

import "time"

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 10m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long finished import jobs are kept. Default: 30d
	RetentionDuration time.Duration

	// CleanupSchedule is the cron spec for import job retention. Default: nightly.
	CleanupSchedule string

	// OptimizeSchedule is the cron spec for search index maintenance. Default: nightly.
	OptimizeSchedule string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		ReleaseAfter:      10 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 30 * 24 * time.Hour,
		CleanupSchedule:   "0 3 * * *",
		OptimizeSchedule:  "30 3 * * *",
	}
}
