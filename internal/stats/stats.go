// Package stats aggregates review history into the today, progress and
// forecast read models.
package stats

import (
	"time"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database/study"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/scheduler"
)

// Service computes study statistics for the active wordbook.
type Service struct {
	wordbooks *wordbooks.Repository
	study     *study.Repository
	scheduler *scheduler.Scheduler
	now       func() time.Time
}

// NewService creates a stats service. Pass nil for time.Now.
func NewService(wb *wordbooks.Repository, st *study.Repository, sched *scheduler.Scheduler, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{wordbooks: wb, study: st, scheduler: sched, now: now}
}

// Today mirrors what the learner will see in the study queue; the
// numbers come from a scheduler dry run so they cannot drift from the
// queue itself.
type Today struct {
	TotalCards     int64 `json:"total_cards"`
	DueToday       int   `json:"due_today"`
	NewCards       int   `json:"new_cards"`
	RollingReviews int   `json:"rolling_reviews"`
	ReviewedToday  int64 `json:"reviewed_today"`
	StudyQueueSize int   `json:"study_queue_size"`
}

// Today computes the daily snapshot. With no active wordbook all
// counts are zero.
func (s *Service) Today() (*Today, error) {
	_, queueStats, err := s.scheduler.NextQueue(scheduler.Options{DryRun: true})
	if err != nil {
		return nil, err
	}

	today := &Today{
		DueToday:       queueStats.DueCount,
		NewCards:       queueStats.NewCount,
		RollingReviews: queueStats.RollingCount,
		ReviewedToday:  queueStats.ReviewedToday,
		StudyQueueSize: queueStats.StudyQueueSize,
	}

	book, err := s.wordbooks.Active()
	if apperr.IsKind(err, apperr.PreconditionFailed) {
		return today, nil
	}
	if err != nil {
		return nil, err
	}
	if today.TotalCards, err = s.study.TotalCards(book.ID); err != nil {
		return nil, err
	}
	return today, nil
}

// DayBucket is one day of review history.
type DayBucket struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Reviews      int64   `json:"reviews"`
	AverageGrade float64 `json:"average_grade"`
	NewCards     int64   `json:"new_cards"`
}

// Progress is the review history over a trailing window.
type Progress struct {
	Days         int         `json:"days"`
	Buckets      []DayBucket `json:"buckets"`
	TotalReviews int64       `json:"total_reviews"`
	ActiveDays   int         `json:"active_days"`
	// Accuracy maps the 0-3 grade scale onto percent: average grade
	// times 25.
	Accuracy float64 `json:"accuracy"`
}

var progressWindows = map[int]bool{7: true, 30: true, 90: true, 365: true}

// Progress aggregates the last N days, oldest bucket first. Days with
// no reviews appear with zeroes.
func (s *Service) Progress(days int) (*Progress, error) {
	if !progressWindows[days] {
		return nil, apperr.Newf(apperr.BadInput, "days must be one of 7, 30, 90, 365, got %d", days)
	}

	book, err := s.wordbooks.Active()
	if apperr.IsKind(err, apperr.PreconditionFailed) {
		return &Progress{Days: days, Buckets: []DayBucket{}}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := startOfDay(now)
	progress := &Progress{Days: days, Buckets: make([]DayBucket, 0, days)}

	var gradeSum float64
	for offset := days - 1; offset >= 0; offset-- {
		from := today.AddDate(0, 0, -offset)
		to := from.AddDate(0, 0, 1)

		reviewStats, err := s.study.ReviewStatsBetween(book.ID, from, to)
		if err != nil {
			return nil, err
		}
		newCards, err := s.study.NewBetween(book.ID, from, to)
		if err != nil {
			return nil, err
		}

		progress.Buckets = append(progress.Buckets, DayBucket{
			Date:         from.Format("2006-01-02"),
			Reviews:      reviewStats.Reviews,
			AverageGrade: reviewStats.AvgGrade,
			NewCards:     newCards,
		})
		progress.TotalReviews += reviewStats.Reviews
		gradeSum += reviewStats.AvgGrade * float64(reviewStats.Reviews)
		if reviewStats.Reviews > 0 {
			progress.ActiveDays++
		}
	}

	if progress.TotalReviews > 0 {
		progress.Accuracy = gradeSum / float64(progress.TotalReviews) * 25
	}
	return progress, nil
}

// ForecastBucket is one future day of scheduled reviews.
type ForecastBucket struct {
	Date string `json:"date"`
	Due  int64  `json:"due"`
}

// DueForecast counts, per future day, the cards whose current due
// moment falls on that day. Day zero is today.
func (s *Service) DueForecast(days int) ([]ForecastBucket, error) {
	if days < 1 || days > 60 {
		days = 7
	}

	book, err := s.wordbooks.Active()
	if apperr.IsKind(err, apperr.PreconditionFailed) {
		return []ForecastBucket{}, nil
	}
	if err != nil {
		return nil, err
	}

	today := startOfDay(s.now())
	forecast := make([]ForecastBucket, 0, days)
	for offset := 0; offset < days; offset++ {
		from := today.AddDate(0, 0, offset)
		to := from.AddDate(0, 0, 1)
		if offset == 0 {
			// Overdue backlog counts toward today.
			from = time.Time{}
		}
		due, err := s.study.DueBetween(book.ID, from, to)
		if err != nil {
			return nil, err
		}
		forecast = append(forecast, ForecastBucket{
			Date: today.AddDate(0, 0, offset).Format("2006-01-02"),
			Due:  due,
		})
	}
	return forecast, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
