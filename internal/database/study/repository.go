// Package study provides database operations for SRS state, the
// append-only review log and the card queries behind the daily queue.
package study

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
)

// Repository handles all study-related database operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new study repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// GetCard returns a card with its word and state, scoped to a wordbook.
func (r *Repository) GetCard(cardID, wordbookID uint) (*entities.Card, error) {
	var card entities.Card
	err := r.db.DB.
		Preload("Word").
		Preload("SRSState").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("cards.id = ? AND words.wordbook_id = ?", cardID, wordbookID).
		First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "card %d not found in the active wordbook", cardID)
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetState returns the scheduling tuple for a card, or NotFound when
// the card has never been scheduled.
func (r *Repository) GetState(cardID uint) (*entities.SRSState, error) {
	var state entities.SRSState
	err := r.db.DB.First(&state, "card_id = ?", cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "card %d has no scheduling state", cardID)
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// EnsureState creates the initial scheduling tuple for a card if it
// does not exist yet. Idempotent; the existing row wins.
func (r *Repository) EnsureState(cardID uint, now time.Time) (*entities.SRSState, error) {
	state := &entities.SRSState{
		CardID:       cardID,
		Algo:         entities.AlgoSM2,
		Due:          now,
		IntervalDays: 0,
		Ease:         entities.InitialEase,
		Reps:         0,
		Lapses:       0,
		FirstSeenAt:  now,
	}
	err := r.db.WithRetry(func() error {
		return r.db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(state).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetState(cardID)
}

// SaveState persists a tuple update outside a grading event, e.g. the
// one-time leech delay.
func (r *Repository) SaveState(state *entities.SRSState) error {
	return r.db.WithRetry(func() error {
		return r.db.DB.Save(state).Error
	})
}

// SaveStateAndReview persists the post-grading tuple and appends the
// review record in one transaction, so the log never disagrees with
// the state.
func (r *Repository) SaveStateAndReview(state *entities.SRSState, review *entities.Review) error {
	return r.db.WithRetry(func() error {
		return r.db.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(state).Error; err != nil {
				return err
			}
			return tx.Create(review).Error
		})
	})
}

func (r *Repository) cardsQuery(wordbookID uint) *gorm.DB {
	return r.db.DB.Model(&entities.Card{}).
		Preload("Word").
		Preload("SRSState").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ?", wordbookID)
}

// DueCards returns all reviewed cards whose due moment has passed,
// most overdue first, then most-lapsed, then oldest card.
func (r *Repository) DueCards(wordbookID uint, now time.Time) ([]entities.Card, error) {
	var cards []entities.Card
	err := r.cardsQuery(wordbookID).
		Joins("JOIN srs_states ON srs_states.card_id = cards.id").
		Where("srs_states.due <= ? AND srs_states.reps > 0", now).
		Order("srs_states.due ASC, srs_states.lapses DESC, cards.id ASC").
		Find(&cards).Error
	return cards, err
}

// SeenBetween returns cards first scheduled inside [from, to), oldest
// card first. The scheduler uses it to build the rolling-review slots.
func (r *Repository) SeenBetween(wordbookID uint, from, to time.Time) ([]entities.Card, error) {
	var cards []entities.Card
	err := r.cardsQuery(wordbookID).
		Joins("JOIN srs_states ON srs_states.card_id = cards.id").
		Where("srs_states.first_seen_at >= ? AND srs_states.first_seen_at < ?", from, to).
		Order("cards.id ASC").
		Find(&cards).Error
	return cards, err
}

// NewCards returns cards that have no scheduling state yet, ordered by
// card id. Lesson ordering is applied by the scheduler, which sorts
// lesson labels naturally rather than lexicographically.
func (r *Repository) NewCards(wordbookID uint) ([]entities.Card, error) {
	var cards []entities.Card
	err := r.cardsQuery(wordbookID).
		Joins("LEFT JOIN srs_states ON srs_states.card_id = cards.id").
		Where("srs_states.card_id IS NULL").
		Order("cards.id ASC").
		Find(&cards).Error
	return cards, err
}

// ReviewedBetween counts grading events inside [from, to). Reviewing
// the same card twice counts twice.
func (r *Repository) ReviewedBetween(wordbookID uint, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.Review{}).
		Joins("JOIN cards ON cards.id = reviews.card_id").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ? AND reviews.ts >= ? AND reviews.ts < ?", wordbookID, from, to).
		Count(&count).Error
	return count, err
}

// ReviewStats aggregates the review log inside [from, to).
type ReviewStats struct {
	Reviews  int64
	AvgGrade float64
}

// ReviewStatsBetween returns review count and mean grade for a window.
func (r *Repository) ReviewStatsBetween(wordbookID uint, from, to time.Time) (*ReviewStats, error) {
	row := struct {
		Reviews  int64
		AvgGrade *float64
	}{}
	err := r.db.DB.Model(&entities.Review{}).
		Select("COUNT(*) AS reviews, AVG(reviews.grade) AS avg_grade").
		Joins("JOIN cards ON cards.id = reviews.card_id").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ? AND reviews.ts >= ? AND reviews.ts < ?", wordbookID, from, to).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	stats := &ReviewStats{Reviews: row.Reviews}
	if row.AvgGrade != nil {
		stats.AvgGrade = *row.AvgGrade
	}
	return stats, nil
}

// NewBetween counts cards first scheduled inside [from, to).
func (r *Repository) NewBetween(wordbookID uint, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.SRSState{}).
		Joins("JOIN cards ON cards.id = srs_states.card_id").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ? AND srs_states.first_seen_at >= ? AND srs_states.first_seen_at < ?",
			wordbookID, from, to).
		Count(&count).Error
	return count, err
}

// DueBetween counts reviewed cards that fall due inside [from, to).
func (r *Repository) DueBetween(wordbookID uint, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.SRSState{}).
		Joins("JOIN cards ON cards.id = srs_states.card_id").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ? AND srs_states.reps > 0 AND srs_states.due >= ? AND srs_states.due < ?",
			wordbookID, from, to).
		Count(&count).Error
	return count, err
}

// TotalCards counts all cards of a wordbook.
func (r *Repository) TotalCards(wordbookID uint) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.Card{}).
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ?", wordbookID).
		Count(&count).Error
	return count, err
}

// ReviewedCards counts cards that have been graded at least once.
func (r *Repository) ReviewedCards(wordbookID uint) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.SRSState{}).
		Joins("JOIN cards ON cards.id = srs_states.card_id").
		Joins("JOIN words ON words.id = cards.word_id").
		Where("words.wordbook_id = ? AND srs_states.reps > 0", wordbookID).
		Count(&count).Error
	return count, err
}
