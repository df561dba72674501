// Package imports provides database operations for import job records.
//
// Terminal jobs (completed, failed) are immutable; the repository
// refuses updates to them so progress can never move backwards after
// the job has been closed out.
package imports

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
)

// Repository handles all import job database operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new import job repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending job record.
func (r *Repository) Create(wordbookID uint, filename string, total int) (*entities.ImportJob, error) {
	job := &entities.ImportJob{
		WordbookID: wordbookID,
		Filename:   filename,
		StartedAt:  time.Now(),
		Status:     entities.ImportStatusPending,
		Total:      total,
	}
	err := r.db.WithRetry(func() error {
		return r.db.DB.Create(job).Error
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns a job by id.
func (r *Repository) Get(id uint) (*entities.ImportJob, error) {
	var job entities.ImportJob
	err := r.db.DB.First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "import %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns all jobs, newest first.
func (r *Repository) List() ([]entities.ImportJob, error) {
	var jobs []entities.ImportJob
	err := r.db.DB.Order("started_at DESC").Find(&jobs).Error
	return jobs, err
}

// UpdateParams carries progress updates. Nil fields stay unchanged.
type UpdateParams struct {
	Status    *string
	Total     *int
	Succeeded *int
	Failed    *int
	Skipped   *int
	Message   *string
}

// Update applies a progress update. Finishing transitions also stamp
// finished_at. Updating a terminal job is a Fatal invariant breach.
func (r *Repository) Update(id uint, params UpdateParams) (*entities.ImportJob, error) {
	job, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, apperr.Newf(apperr.Fatal, "import %d is already %s and cannot change", id, job.Status)
	}

	updates := map[string]any{}
	if params.Status != nil {
		status := entities.ImportStatus(*params.Status)
		updates["status"] = status
		if status.Terminal() {
			updates["finished_at"] = time.Now()
		}
	}
	if params.Total != nil {
		updates["total"] = *params.Total
	}
	if params.Succeeded != nil {
		updates["succeeded"] = *params.Succeeded
	}
	if params.Failed != nil {
		updates["failed"] = *params.Failed
	}
	if params.Skipped != nil {
		updates["skipped"] = *params.Skipped
	}
	if params.Message != nil {
		updates["message"] = *params.Message
	}

	err = r.db.WithRetry(func() error {
		return r.db.DB.Model(job).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(id)
}

// Delete removes a finished job record. Running jobs cannot be
// deleted.
func (r *Repository) Delete(id uint) error {
	job, err := r.Get(id)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return apperr.Newf(apperr.Conflict, "import %d is still %s", id, job.Status)
	}
	return r.db.WithRetry(func() error {
		return r.db.DB.Delete(&entities.ImportJob{}, id).Error
	})
}

// DeleteFinishedBefore removes terminal jobs older than the cutoff and
// returns how many went. Used by the retention maintenance task.
func (r *Repository) DeleteFinishedBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithRetry(func() error {
		res := r.db.DB.
			Where("status IN ? AND finished_at < ?",
				[]entities.ImportStatus{entities.ImportStatusCompleted, entities.ImportStatusFailed}, cutoff).
			Delete(&entities.ImportJob{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
