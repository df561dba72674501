package tasks

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Maintenance enqueues the periodic maintenance tasks on a cron
// schedule. The heavy lifting happens in the queue workers; cron only
// drops the task envelopes.
type Maintenance struct {
	client *Client
	config Config

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewMaintenance creates the maintenance schedule around an existing
// task client.
func NewMaintenance(client *Client, cfg Config) *Maintenance {
	return &Maintenance{
		client: client,
		config: cfg,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start registers the cron entries and begins ticking.
func (m *Maintenance) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return nil
	}

	retentionDays := int(m.config.RetentionDuration.Hours() / 24)
	_, err := m.cron.AddFunc(m.config.CleanupSchedule, func() {
		task := CleanupImportJobsTask{RetentionDays: retentionDays}
		if _, err := m.client.Add(task).Save(); err != nil {
			log.Printf("Maintenance: cannot enqueue import cleanup: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", m.config.CleanupSchedule, err)
	}

	_, err = m.cron.AddFunc(m.config.OptimizeSchedule, func() {
		if _, err := m.client.Add(OptimizeIndexTask{}).Save(); err != nil {
			log.Printf("Maintenance: cannot enqueue index optimization: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid optimize schedule %q: %w", m.config.OptimizeSchedule, err)
	}

	m.cron.Start()
	m.isRunning = true
	log.Printf("Maintenance schedule started (cleanup %q, optimize %q)",
		m.config.CleanupSchedule, m.config.OptimizeSchedule)
	return nil
}

// Stop halts the cron ticker. Tasks already enqueued keep running in
// the queue workers.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isRunning {
		return
	}
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.isRunning = false
	log.Println("Maintenance schedule stopped")
}
