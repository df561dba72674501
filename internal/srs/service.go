package srs

import (
	"log"
	"time"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database/study"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/entities"
)

// Service grades cards and persists the outcome.
type Service struct {
	study *study.Repository
	words *words.Repository
	now   func() time.Time
}

// NewService creates a grading service. The clock is injectable for
// tests; pass nil for time.Now.
func NewService(studyRepo *study.Repository, wordRepo *words.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{study: studyRepo, words: wordRepo, now: now}
}

// Apply grades a card of the given wordbook and returns the new state.
// The state update and the review record commit in one transaction.
func (s *Service) Apply(cardID, wordbookID uint, grade int, elapsedMs *int) (*entities.SRSState, error) {
	now := s.now()

	card, err := s.study.GetCard(cardID, wordbookID)
	if apperr.IsKind(err, apperr.NotFound) {
		// Grading presumes the card was served from this wordbook's
		// queue; an unknown id is a broken precondition, not a lookup.
		return nil, apperr.Newf(apperr.PreconditionFailed, "card %d is not part of the active wordbook", cardID)
	}
	if err != nil {
		return nil, err
	}

	state, err := s.study.EnsureState(cardID, now)
	if err != nil {
		return nil, err
	}

	next, err := Grade(*state, grade, now)
	if err != nil {
		return nil, err
	}

	if next.Lapses >= entities.LeechLapses {
		if err := s.markLeech(card.WordID, &next); err != nil {
			return nil, err
		}
	}

	review := &entities.Review{
		CardID:       cardID,
		TS:           now,
		Grade:        grade,
		ElapsedMs:    elapsedMs,
		PrevInterval: state.IntervalDays,
		NewInterval:  next.IntervalDays,
	}
	if err := s.study.SaveStateAndReview(&next, review); err != nil {
		return nil, err
	}
	return &next, nil
}

// markLeech tags the word and, the first time only, pushes the due
// moment out one extra day to break the forget-review cycle.
func (s *Service) markLeech(wordID uint, next *entities.SRSState) error {
	added, err := s.words.AddTag(wordID, entities.TagLeech)
	if err != nil {
		return err
	}
	if added {
		next.Due = next.Due.AddDate(0, 0, 1)
		log.Printf("Card %d marked as leech after %d lapses", next.CardID, next.Lapses)
	}
	return nil
}
