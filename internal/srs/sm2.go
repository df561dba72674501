// Package srs applies review grades to card scheduling state.
//
// Grading functions are pure and selected by the algo tag stored on
// the state, so an alternative algorithm is one new function and one
// new tag, with no schema change.
package srs

import (
	"math"
	"time"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/entities"
)

// Grades: 0 = again (forgot), 1 = hard, 2 = good, 3 = easy.
const (
	GradeAgain = 0
	GradeHard  = 1
	GradeGood  = 2
	GradeEasy  = 3
)

// GradeFunc computes the next scheduling tuple. Implementations must
// not mutate the input.
type GradeFunc func(state entities.SRSState, grade int, now time.Time) entities.SRSState

var registry = map[string]GradeFunc{
	entities.AlgoSM2: gradeSM2,
}

// Grade advances the state by one review. The grade must be in [0,3]
// and the state's algo tag must be registered.
func Grade(state entities.SRSState, grade int, now time.Time) (entities.SRSState, error) {
	if grade < GradeAgain || grade > GradeEasy {
		return entities.SRSState{}, apperr.Newf(apperr.BadInput, "grade must be between 0 and 3, got %d", grade)
	}
	fn, ok := registry[state.Algo]
	if !ok {
		return entities.SRSState{}, apperr.Newf(apperr.Fatal, "unknown srs algorithm %q", state.Algo)
	}
	return fn(state, grade, now), nil
}

// gradeSM2 is an SM-2 variant over whole-day intervals.
func gradeSM2(state entities.SRSState, grade int, now time.Time) entities.SRSState {
	next := state

	switch grade {
	case GradeAgain:
		next.Reps = 0
		next.IntervalDays = 1
		next.Ease = math.Max(entities.MinEase, state.Ease-0.20)
		next.Lapses = state.Lapses + 1
	case GradeHard:
		next.Reps = state.Reps + 1
		next.IntervalDays = stepInterval(state, 1, 3, math.Max(1.2, state.Ease-0.15))
		next.Ease = math.Max(entities.MinEase, state.Ease-0.15)
	case GradeGood:
		next.Reps = state.Reps + 1
		next.IntervalDays = stepInterval(state, 1, 3, state.Ease)
	case GradeEasy:
		next.Reps = state.Reps + 1
		next.IntervalDays = stepInterval(state, 2, 5, state.Ease*1.3)
		next.Ease = math.Min(entities.MaxEase, state.Ease+0.10)
	}

	next.Due = now.AddDate(0, 0, next.IntervalDays)
	g := grade
	next.LastGrade = &g
	reviewed := now
	next.LastReviewedAt = &reviewed
	return next
}

// stepInterval applies the graduation steps: a fixed first and second
// interval, then a multiplicative schedule rounded up to whole days.
func stepInterval(state entities.SRSState, first, second int, factor float64) int {
	switch state.Reps {
	case 0:
		return first
	case 1:
		return second
	default:
		return int(math.Ceil(float64(state.IntervalDays) * factor))
	}
}

// Retention estimates the probability the card is still remembered at
// its current interval, an Ebbinghaus-style decay clamped to [0,1].
func Retention(ease float64, intervalDays int) float64 {
	if ease <= 0 {
		return 0
	}
	r := math.Exp(-float64(intervalDays) / ease)
	return math.Max(0, math.Min(1, r))
}
