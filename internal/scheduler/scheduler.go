// Package scheduler builds the daily study queue from three sources:
// overdue reviews, rolling re-exposure of recently learned words, and
// new cards, with adaptive damping of new material under backlog.
package scheduler

import (
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database/settings"
	"github.com/mrlokans/wordflow/internal/database/study"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/entities"
	"github.com/mrlokans/wordflow/internal/srs"
)

// RollingOffsets are the day distances from first exposure at which a
// card is re-surfaced regardless of its SRS due date.
var RollingOffsets = []int{1, 2, 4, 7}

const (
	DefaultLimit    = 30
	MaxLimit        = 100
	DefaultNewLimit = 10
)

// Options tunes one queue computation. Nil limits fall back to the
// stored preferences, then to the package defaults; an explicit zero
// Limit yields an empty queue with the stats still populated.
type Options struct {
	Limit          *int
	NewLimit       *int
	IncludeRolling *bool
	WordbookID     uint      // 0 means the active wordbook
	Now            time.Time // zero means the scheduler clock
	DryRun         bool      // compute stats without creating state or tagging
}

// CardType says which queue slot produced a card.
type CardType string

const (
	CardTypeDue     CardType = "due"
	CardTypeRolling CardType = "rolling"
	CardTypeNew     CardType = "new"
)

// SRSView is the scheduling summary attached to a queue item.
type SRSView struct {
	Due           *time.Time `json:"due,omitempty"`
	Interval      int        `json:"interval"`
	Ease          float64    `json:"ease"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	RetentionRate float64    `json:"retention_rate"`
}

// QueueItem is one card of the study queue with everything the client
// needs to render it.
type QueueItem struct {
	CardID       uint              `json:"card_id"`
	WordID       uint              `json:"word_id"`
	Lemma        string            `json:"lemma"`
	MeaningZh    string            `json:"meaning_zh,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
	Pos          string            `json:"pos,omitempty"`
	Gender       string            `json:"gender,omitempty"`
	IPA          string            `json:"ipa,omitempty"`
	Lesson       string            `json:"lesson,omitempty"`
	CEFR         string            `json:"cefr,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CardType     CardType          `json:"card_type"`
	Template     string            `json:"template"`
	Hint         string            `json:"hint,omitempty"`
	SRS          SRSView           `json:"srs"`
}

// QueueStats reports the pre-truncation pool sizes next to what the
// learner will actually see today.
type QueueStats struct {
	DueCount          int   `json:"due_count"`
	RollingCount      int   `json:"rolling_count"`
	NewCount          int   `json:"new_count"`
	NewLimitEffective int   `json:"new_limit_effective"`
	ReviewedToday     int64 `json:"reviewed_today"`
	StudyQueueSize    int   `json:"study_queue_size"`
}

// Scheduler composes the daily queue.
type Scheduler struct {
	wordbooks *wordbooks.Repository
	study     *study.Repository
	words     *words.Repository
	settings  *settings.Repository
	now       func() time.Time
}

// New creates a scheduler. The clock is injectable for tests; pass nil
// for time.Now.
func New(wb *wordbooks.Repository, st *study.Repository, wd *words.Repository, pref *settings.Repository, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{wordbooks: wb, study: st, words: wd, settings: pref, now: now}
}

// NextQueue builds today's queue. With no active wordbook the queue is
// empty and the stats are all zero; that is not an error.
func (s *Scheduler) NextQueue(opts Options) ([]QueueItem, *QueueStats, error) {
	stats := &QueueStats{}

	wordbookID := opts.WordbookID
	if wordbookID == 0 {
		book, err := s.wordbooks.Active()
		if apperr.IsKind(err, apperr.PreconditionFailed) {
			return []QueueItem{}, stats, nil
		}
		if err != nil {
			return nil, nil, err
		}
		wordbookID = book.ID
	}

	limit, newLimit, includeRolling, err := s.resolveLimits(opts)
	if err != nil {
		return nil, nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = s.now()
	}
	today := startOfDay(now)

	due, err := s.dueSet(wordbookID, now, opts.DryRun)
	if err != nil {
		return nil, nil, err
	}

	var rolling []entities.Card
	if includeRolling {
		dueIDs := lo.SliceToMap(due, func(c entities.Card) (uint, struct{}) {
			return c.ID, struct{}{}
		})
		rolling, err = s.rollingSet(wordbookID, today, dueIDs)
		if err != nil {
			return nil, nil, err
		}
	}

	fresh, err := s.study.NewCards(wordbookID)
	if err != nil {
		return nil, nil, err
	}
	sortNewCards(fresh)

	// Damp the inflow of new material when a review backlog exists.
	effNewLimit := newLimit
	backlog := len(due) + len(rolling)
	if backlog > 2*limit {
		effNewLimit = max(0, newLimit-ceilDiv(backlog-2*limit, 10))
	}
	newTaken := min(len(fresh), effNewLimit)

	queue := make([]QueueItem, 0, limit)
	for _, c := range due {
		queue = append(queue, buildItem(c, CardTypeDue))
	}
	for _, c := range rolling {
		queue = append(queue, buildItem(c, CardTypeRolling))
	}
	for _, c := range fresh[:newTaken] {
		queue = append(queue, buildItem(c, CardTypeNew))
	}
	if len(queue) > limit {
		queue = queue[:limit]
	}

	if !opts.DryRun {
		if err := s.scheduleNewCards(queue, now); err != nil {
			return nil, nil, err
		}
	}

	reviewedToday, err := s.study.ReviewedBetween(wordbookID, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, nil, err
	}

	stats.DueCount = len(due)
	stats.RollingCount = len(rolling)
	stats.NewCount = len(fresh)
	stats.NewLimitEffective = effNewLimit
	stats.ReviewedToday = reviewedToday
	stats.StudyQueueSize = len(due) + len(rolling) + newTaken
	return queue, stats, nil
}

// resolveLimits layers request options over stored preferences over
// package defaults, clamping to valid ranges.
func (s *Scheduler) resolveLimits(opts Options) (limit, newLimit int, includeRolling bool, err error) {
	pref := settings.Defaults()
	if s.settings != nil {
		if pref, err = s.settings.Get(); err != nil {
			return 0, 0, false, err
		}
	}

	limit = pref.DailyLimit
	if limit < 1 {
		limit = DefaultLimit
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	newLimit = pref.NewLimit
	if newLimit < 0 {
		newLimit = DefaultNewLimit
	}
	if opts.NewLimit != nil {
		newLimit = *opts.NewLimit
	}
	if newLimit < 0 {
		newLimit = 0
	}

	includeRolling = pref.IncludeRolling
	if opts.IncludeRolling != nil {
		includeRolling = *opts.IncludeRolling
	}
	return limit, newLimit, includeRolling, nil
}

// dueSet loads overdue cards and applies leech protection: a card
// crossing the lapse threshold is tagged on its word and softly
// delayed one extra day, once, instead of being scheduled.
func (s *Scheduler) dueSet(wordbookID uint, now time.Time, dryRun bool) ([]entities.Card, error) {
	cards, err := s.study.DueCards(wordbookID, now)
	if err != nil {
		return nil, err
	}

	kept := cards[:0]
	for _, card := range cards {
		state := card.SRSState
		if state != nil && state.Lapses >= entities.LeechLapses && !card.Word.Tags.Contains(entities.TagLeech) {
			if dryRun {
				continue
			}
			if _, err := s.words.AddTag(card.WordID, entities.TagLeech); err != nil {
				return nil, err
			}
			state.Due = state.Due.AddDate(0, 0, 1)
			if err := s.study.SaveState(state); err != nil {
				return nil, err
			}
			log.Printf("Card %d delayed one day as a new leech (%d lapses)", card.ID, state.Lapses)
			if state.Due.After(now) {
				continue
			}
		}
		kept = append(kept, card)
	}
	return kept, nil
}

// rollingSet gathers cards first seen exactly 1, 2, 4 or 7 days ago,
// skipping anything already due.
func (s *Scheduler) rollingSet(wordbookID uint, today time.Time, exclude map[uint]struct{}) ([]entities.Card, error) {
	var rolling []entities.Card
	for _, d := range RollingOffsets {
		from := today.AddDate(0, 0, -d)
		seen, err := s.study.SeenBetween(wordbookID, from, from.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		for _, card := range seen {
			if _, dup := exclude[card.ID]; dup {
				continue
			}
			exclude[card.ID] = struct{}{}
			rolling = append(rolling, card)
		}
	}
	return rolling, nil
}

// scheduleNewCards lazily creates the initial state for new cards the
// moment they enter a queue.
func (s *Scheduler) scheduleNewCards(queue []QueueItem, now time.Time) error {
	for _, item := range queue {
		if item.CardType != CardTypeNew {
			continue
		}
		if _, err := s.study.EnsureState(item.CardID, now); err != nil {
			return err
		}
	}
	return nil
}

func buildItem(card entities.Card, cardType CardType) QueueItem {
	item := QueueItem{
		CardID:       card.ID,
		WordID:       card.WordID,
		Lemma:        card.Word.Lemma,
		MeaningZh:    card.Word.MeaningZh(),
		Translations: card.Word.Translations,
		Pos:          card.Word.Pos,
		Gender:       card.Word.Gender,
		IPA:          card.Word.IPA,
		Lesson:       card.Word.Lesson,
		CEFR:         card.Word.CEFR,
		Tags:         card.Word.Tags,
		CardType:     cardType,
		Template:     card.Template,
		Hint:         card.Hint,
		SRS: SRSView{
			Ease: entities.InitialEase,
		},
	}
	if state := card.SRSState; state != nil {
		due := state.Due
		item.SRS = SRSView{
			Due:           &due,
			Interval:      state.IntervalDays,
			Ease:          state.Ease,
			Reps:          state.Reps,
			Lapses:        state.Lapses,
			RetentionRate: srs.Retention(state.Ease, state.IntervalDays),
		}
	}
	return item
}

// sortNewCards orders by lesson with natural numeric comparison, then
// by word id, so "lesson 2" sorts before "lesson 10".
func sortNewCards(cards []entities.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		if a.Word.Lesson != b.Word.Lesson {
			return naturalLess(a.Word.Lesson, b.Word.Lesson)
		}
		return a.Word.ID < b.Word.ID
	})
}

// naturalLess compares strings chunk-wise, treating digit runs as
// numbers.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		aChunk, aNum, aRest := chunk(a)
		bChunk, bNum, bRest := chunk(b)
		if aNum >= 0 && bNum >= 0 {
			if aNum != bNum {
				return aNum < bNum
			}
		} else if aChunk != bChunk {
			return aChunk < bChunk
		}
		a, b = aRest, bRest
	}
	return a == "" && b != ""
}

// chunk splits off the leading digit run or non-digit run. The numeric
// value is -1 for non-digit chunks.
func chunk(s string) (string, int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		n, _ := strconv.Atoi(s[:i])
		return s[:i], n, s[i:]
	}
	for i < len(s) && (s[i] < '0' || s[i] > '9') {
		i++
	}
	return strings.ToLower(s[:i]), -1, s[i:]
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
