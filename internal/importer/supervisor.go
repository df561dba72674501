// Package importer runs bulk vocabulary imports as supervised
// background jobs. The HTTP request that starts an import returns
// immediately with the job id; the job itself survives client
// disconnects and is observed through Progress.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/semaphore"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/entities"
	"github.com/mrlokans/wordflow/internal/parser"
)

// Supervisor owns every running import: the process-wide worker cap,
// the one-import-per-wordbook rule, and graceful shutdown.
type Supervisor struct {
	wordbooks *wordbooks.Repository
	words     *words.Repository
	imports   *imports.Repository

	batchSize    int
	maxRowErrors int

	sem *semaphore.Weighted
	ctx context.Context
	wg  sync.WaitGroup

	mu       sync.Mutex
	inflight map[uint]uint // wordbook id -> running import id
}

// Config tunes the supervisor.
type Config struct {
	Workers      int // concurrent imports across wordbooks
	BatchSize    int // rows per store transaction
	MaxRowErrors int // row diagnostics kept per job
}

// NewSupervisor creates an import supervisor. ctx is the process
// lifetime; cancelling it only prevents queued jobs from starting.
func NewSupervisor(ctx context.Context, wb *wordbooks.Repository, wd *words.Repository, im *imports.Repository, cfg Config) *Supervisor {
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	if cfg.MaxRowErrors < 1 {
		cfg.MaxRowErrors = 50
	}
	return &Supervisor{
		wordbooks:    wb,
		words:        wd,
		imports:      im,
		batchSize:    cfg.BatchSize,
		maxRowErrors: cfg.MaxRowErrors,
		sem:          semaphore.NewWeighted(int64(cfg.Workers)),
		ctx:          ctx,
		inflight:     make(map[uint]uint),
	}
}

// Start registers a job and launches it in the background. With
// wordbookID zero the active wordbook is targeted; when none is
// active, the job is created already failed so the caller still gets
// an id to inspect. A second import for the same wordbook returns
// Conflict carrying the in-flight import id.
func (s *Supervisor) Start(payload []byte, filename string, format parser.Format, wordbookID uint) (*entities.ImportJob, error) {
	if wordbookID == 0 {
		book, err := s.wordbooks.Active()
		if apperr.IsKind(err, apperr.PreconditionFailed) {
			return s.failImmediately(filename, "no active wordbook")
		}
		if err != nil {
			return nil, err
		}
		wordbookID = book.ID
	} else if _, err := s.wordbooks.Get(wordbookID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if running, busy := s.inflight[wordbookID]; busy {
		s.mu.Unlock()
		return nil, apperr.Newf(apperr.Conflict, "an import is already running for wordbook %d", wordbookID).
			WithDetails(map[string]any{"import_id": running})
	}

	job, err := s.imports.Create(wordbookID, filename, 0)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.inflight[wordbookID] = job.ID
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(job.ID, wordbookID, payload, filename, format)
	return job, nil
}

// Progress returns the current job record.
func (s *Supervisor) Progress(importID uint) (*entities.ImportJob, error) {
	return s.imports.Get(importID)
}

// Shutdown waits for running imports to finish, up to the context
// deadline. Jobs are never cancelled mid-flight; a deadline only stops
// the wait.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("imports still running at shutdown: %w", ctx.Err())
	}
}

func (s *Supervisor) failImmediately(filename, reason string) (*entities.ImportJob, error) {
	job, err := s.imports.Create(0, filename, 0)
	if err != nil {
		return nil, err
	}
	return s.imports.Update(job.ID, imports.UpdateParams{
		Status:  ptr(string(entities.ImportStatusFailed)),
		Message: ptr(reason),
	})
}

// run is the job body. It never reports errors to the caller; every
// failure lands in the job record.
func (s *Supervisor) run(jobID, wordbookID uint, payload []byte, filename string, format parser.Format) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, wordbookID)
		s.mu.Unlock()
	}()

	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		s.finishFailed(jobID, "process shut down before the import started")
		return
	}
	defer s.sem.Release(1)

	started := time.Now()
	log.Printf("Import %d started for wordbook %d (%s)", jobID, wordbookID, filename)

	stream, err := parser.New(payload, filename, format)
	if err != nil {
		s.finishFailed(jobID, err.Error())
		return
	}

	totalHint := stream.TotalHint()
	update := imports.UpdateParams{Status: ptr(string(entities.ImportStatusProcessing))}
	if totalHint > 0 {
		update.Total = ptr(totalHint)
	}
	if _, err := s.imports.Update(jobID, update); err != nil {
		log.Printf("Import %d: cannot mark processing: %v", jobID, err)
		return
	}

	counters := s.drain(jobID, wordbookID, stream)

	if counters.streamErr != "" && !counters.processed() {
		s.finishFailed(jobID, counters.streamErr)
		return
	}

	total := totalHint
	if total <= 0 {
		total = counters.succeeded + counters.failed + counters.skipped
	}
	_, err = s.imports.Update(jobID, imports.UpdateParams{
		Status:    ptr(string(entities.ImportStatusCompleted)),
		Total:     ptr(total),
		Succeeded: ptr(counters.succeeded),
		Failed:    ptr(counters.failed),
		Skipped:   ptr(counters.skipped),
		Message:   ptr(counters.message()),
	})
	if err != nil {
		log.Printf("Import %d: cannot mark completed: %v", jobID, err)
		return
	}

	if err := s.wordbooks.RefreshTotalWords(wordbookID); err != nil {
		log.Printf("Import %d: word count refresh failed: %v", jobID, err)
	}
	log.Printf("Import %d finished in %s: %d inserted, %d skipped, %d failed",
		jobID, time.Since(started).Round(time.Millisecond), counters.succeeded, counters.skipped, counters.failed)
}

type counters struct {
	succeeded, failed, skipped int
	rowErrors                  []string
	maxRowErrors               int
	streamErr                  string
}

// processed reports whether any row made it through the parser.
func (c *counters) processed() bool {
	return c.succeeded+c.failed+c.skipped > 0
}

func (c *counters) addRowError(msg string) {
	c.failed++
	if len(c.rowErrors) < c.maxRowErrors {
		c.rowErrors = append(c.rowErrors, msg)
	}
}

func (c *counters) message() string {
	msgs := c.rowErrors
	if c.streamErr != "" {
		msgs = append(msgs, "stream aborted: "+c.streamErr)
	}
	return strings.Join(msgs, "; ")
}

// drain pulls records in batches and commits them. A bad row never
// aborts the job; a batch failing twice on a transient store error is
// counted as failed wholesale and the job moves on.
func (s *Supervisor) drain(jobID, wordbookID uint, stream parser.Stream) *counters {
	c := &counters{maxRowErrors: s.maxRowErrors}

	batch := make([]words.Input, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.commitBatch(wordbookID, batch, c)
		batch = batch[:0]
		s.reportProgress(jobID, c)
	}

	for {
		rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var rowErr *parser.RowError
			if errors.As(err, &rowErr) {
				c.addRowError(rowErr.Error())
				continue
			}
			// The stream itself broke; everything staged so far
			// still commits.
			flush()
			c.streamErr = err.Error()
			break
		}

		batch = append(batch, words.Input{
			Row:          rec.Row,
			Lemma:        rec.Lemma,
			Pos:          rec.Pos,
			Gender:       rec.Gender,
			IPA:          rec.IPA,
			MeaningText:  rec.MeaningText,
			Translations: rec.Translations,
			Lesson:       rec.Lesson,
			CEFR:         rec.CEFR,
			Tags:         rec.Tags,
			Hint:         rec.Hint,
		})
		if len(batch) >= s.batchSize {
			flush()
		}
	}
	flush()
	return c
}

// commitBatch writes one batch, retrying once on transient failures
// with the identical content.
func (s *Supervisor) commitBatch(wordbookID uint, batch []words.Input, c *counters) {
	result, err := retry.DoWithData(
		func() (*words.BulkResult, error) {
			return s.words.BulkUpsert(wordbookID, batch)
		},
		retry.Attempts(2),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return apperr.IsKind(err, apperr.Transient)
		}),
	)
	if err != nil {
		for range batch {
			c.failed++
		}
		if len(c.rowErrors) < c.maxRowErrors {
			c.rowErrors = append(c.rowErrors, fmt.Sprintf("batch of %d rows failed: %v", len(batch), err))
		}
		return
	}

	c.succeeded += len(result.Inserted)
	c.skipped += result.Skipped
	for _, failure := range result.Failed {
		c.addRowError(fmt.Sprintf("row %d: %s", failure.Row, failure.Reason))
	}

	for _, inserted := range result.Inserted {
		if _, err := s.words.CreateCardIfMissing(inserted.WordID, entities.CardTemplateBasic, inserted.Hint); err != nil {
			log.Printf("Import: card creation failed for word %d: %v", inserted.WordID, err)
		}
	}
}

// reportProgress pushes counters to the job record. Counters only grow
// between calls, so the published progress never moves backwards.
func (s *Supervisor) reportProgress(jobID uint, c *counters) {
	_, err := s.imports.Update(jobID, imports.UpdateParams{
		Succeeded: ptr(c.succeeded),
		Failed:    ptr(c.failed),
		Skipped:   ptr(c.skipped),
		Message:   ptr(c.message()),
	})
	if err != nil {
		log.Printf("Import %d: progress update failed: %v", jobID, err)
	}
}

func (s *Supervisor) finishFailed(jobID uint, reason string) {
	_, err := s.imports.Update(jobID, imports.UpdateParams{
		Status:  ptr(string(entities.ImportStatusFailed)),
		Message: ptr(reason),
	})
	if err != nil {
		log.Printf("Import %d: cannot mark failed: %v", jobID, err)
	}
}

func ptr[T any](v T) *T { return &v }
