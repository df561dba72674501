// Package wordbooks provides database operations for wordbook management.
//
// # Usage
//
//	repo := wordbooks.NewRepository(db)
//	book, err := repo.Activate(id)
package wordbooks

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
)

// Repository handles all wordbook database operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new wordbook repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// CreateParams is the caller-supplied part of a new wordbook.
type CreateParams struct {
	Name        string
	Language    string
	Description string
	Author      string
	Version     string
}

// Create inserts a new wordbook. The name must be unique.
func (r *Repository) Create(params CreateParams) (*entities.Wordbook, error) {
	if params.Name == "" {
		return nil, apperr.New(apperr.BadInput, "wordbook name is required")
	}

	book := &entities.Wordbook{
		Name:        params.Name,
		Language:    params.Language,
		Description: params.Description,
		Author:      params.Author,
		Version:     params.Version,
	}
	err := r.db.WithRetry(func() error {
		return r.db.DB.Create(book).Error
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, apperr.Newf(apperr.Conflict, "wordbook %q already exists", params.Name)
		}
		return nil, fmt.Errorf("failed to create wordbook: %w", err)
	}
	return book, nil
}

// List returns all wordbooks, newest first.
func (r *Repository) List() ([]entities.Wordbook, error) {
	var books []entities.Wordbook
	err := r.db.DB.Order("created_at DESC").Find(&books).Error
	return books, err
}

// Get returns a wordbook by id.
func (r *Repository) Get(id uint) (*entities.Wordbook, error) {
	var book entities.Wordbook
	err := r.db.DB.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "wordbook %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Active returns the single active wordbook. No active book is a
// precondition failure, not a missing resource.
func (r *Repository) Active() (*entities.Wordbook, error) {
	var book entities.Wordbook
	err := r.db.DB.Where("is_active = ?", true).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.PreconditionFailed, "no active wordbook")
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateParams carries optional field updates. Nil means unchanged.
type UpdateParams struct {
	Name        *string
	Language    *string
	Description *string
	Author      *string
	Version     *string
}

// Update applies partial updates to a wordbook.
func (r *Repository) Update(id uint, params UpdateParams) (*entities.Wordbook, error) {
	book, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if params.Name != nil {
		updates["name"] = *params.Name
	}
	if params.Language != nil {
		updates["language"] = *params.Language
	}
	if params.Description != nil {
		updates["description"] = *params.Description
	}
	if params.Author != nil {
		updates["author"] = *params.Author
	}
	if params.Version != nil {
		updates["version"] = *params.Version
	}
	if len(updates) == 0 {
		return book, nil
	}

	err = r.db.WithRetry(func() error {
		return r.db.DB.Model(book).Updates(updates).Error
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, apperr.Newf(apperr.Conflict, "wordbook name already exists")
		}
		return nil, err
	}
	return r.Get(id)
}

// Activate makes the given wordbook the single active one. The swap is
// atomic: no observer ever sees two active books.
func (r *Repository) Activate(id uint) (*entities.Wordbook, error) {
	err := r.db.WithRetry(func() error {
		return r.db.DB.Transaction(func(tx *gorm.DB) error {
			var book entities.Wordbook
			if err := tx.First(&book, id).Error; err != nil {
				return err
			}
			if err := tx.Model(&entities.Wordbook{}).Where("is_active = ?", true).
				Update("is_active", false).Error; err != nil {
				return err
			}
			return tx.Model(&book).Update("is_active", true).Error
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "wordbook %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return r.Get(id)
}

// Delete removes an inactive wordbook. Words, cards, SRS state and
// reviews go with it through the cascade.
func (r *Repository) Delete(id uint) (deletedWords int64, err error) {
	book, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	if book.IsActive {
		return 0, apperr.New(apperr.PreconditionFailed, "cannot delete the active wordbook; activate another one first")
	}

	if err := r.db.DB.Model(&entities.Word{}).Where("wordbook_id = ?", id).Count(&deletedWords).Error; err != nil {
		return 0, err
	}

	unlock := r.db.LockWordbook(id)
	defer unlock()

	err = r.db.WithRetry(func() error {
		return r.db.DB.Delete(&entities.Wordbook{}, id).Error
	})
	if err != nil {
		return 0, err
	}
	return deletedWords, nil
}

// Stats aggregates word counts for one wordbook.
type Stats struct {
	TotalWords int64            `json:"total_words"`
	ByCEFR     map[string]int64 `json:"by_cefr"`
	ByPos      map[string]int64 `json:"by_pos"`
	ByLesson   map[string]int64 `json:"by_lesson"`
}

// Stats returns per-book aggregates grouped by cefr, pos and lesson.
func (r *Repository) Stats(id uint) (*Stats, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}

	stats := &Stats{
		ByCEFR:   map[string]int64{},
		ByPos:    map[string]int64{},
		ByLesson: map[string]int64{},
	}
	err := r.db.DB.Model(&entities.Word{}).Where("wordbook_id = ?", id).Count(&stats.TotalWords).Error
	if err != nil {
		return nil, err
	}

	for column, target := range map[string]map[string]int64{
		"cefr":   stats.ByCEFR,
		"pos":    stats.ByPos,
		"lesson": stats.ByLesson,
	} {
		rows := []struct {
			Key   string
			Count int64
		}{}
		err := r.db.DB.Model(&entities.Word{}).
			Select(column+" AS key, COUNT(*) AS count").
			Where("wordbook_id = ? AND "+column+" IS NOT NULL AND "+column+" != ''", id).
			Group(column).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			target[row.Key] = row.Count
		}
	}
	return stats, nil
}

// Words returns every word of a wordbook ordered by lesson and lemma,
// used by the export endpoint.
func (r *Repository) Words(id uint) ([]entities.Word, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}
	var words []entities.Word
	err := r.db.DB.Where("wordbook_id = ?", id).Order("lesson, lemma").Find(&words).Error
	return words, err
}

// RefreshTotalWords recomputes the denormalized word count.
func (r *Repository) RefreshTotalWords(id uint) error {
	var count int64
	if err := r.db.DB.Model(&entities.Word{}).Where("wordbook_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	return r.db.WithRetry(func() error {
		return r.db.DB.Model(&entities.Wordbook{}).Where("id = ?", id).
			Update("total_words", count).Error
	})
}
