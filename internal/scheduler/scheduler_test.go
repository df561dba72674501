package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/database/settings"
	"github.com/mrlokans/wordflow/internal/database/study"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/entities"
)

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db        *database.Database
	scheduler *Scheduler
	study     *study.Repository
	words     *words.Repository
	bookID    uint
}

func intp(v int) *int { return &v }

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	book := &entities.Wordbook{Name: "test book", IsActive: true}
	require.NoError(t, db.DB.Create(book).Error)

	wbRepo := wordbooks.NewRepository(db)
	stRepo := study.NewRepository(db)
	wdRepo := words.NewRepository(db)
	prefRepo := settings.NewRepository(db)

	return &fixture{
		db:        db,
		scheduler: New(wbRepo, stRepo, wdRepo, prefRepo, func() time.Time { return testNow }),
		study:     stRepo,
		words:     wdRepo,
		bookID:    book.ID,
	}
}

func (f *fixture) newCard(t *testing.T, lemma, lesson string) *entities.Card {
	t.Helper()
	word := &entities.Word{WordbookID: f.bookID, Lemma: lemma, LemmaFolded: lemma, Lesson: lesson}
	require.NoError(t, f.db.DB.Create(word).Error)
	card := &entities.Card{WordID: word.ID, Template: entities.CardTemplateBasic}
	require.NoError(t, f.db.DB.Create(card).Error)
	return card
}

// reviewedCard seeds a graded state: firstSeen controls the rolling
// window, due the overdue set.
func (f *fixture) reviewedCard(t *testing.T, lemma string, firstSeen, due time.Time, lapses int) *entities.Card {
	t.Helper()
	card := f.newCard(t, lemma, "1")
	state, err := f.study.EnsureState(card.ID, firstSeen)
	require.NoError(t, err)
	state.Reps = 1
	state.IntervalDays = 1
	state.Due = due
	state.Lapses = lapses
	require.NoError(t, f.study.SaveState(state))
	return card
}

func cardIDs(queue []QueueItem) []uint {
	ids := make([]uint, len(queue))
	for i, item := range queue {
		ids[i] = item.CardID
	}
	return ids
}

func TestEmptyWithoutActiveWordbook(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.DB.Model(&entities.Wordbook{}).Where("1 = 1").Update("is_active", false).Error)

	queue, stats, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Zero(t, stats.StudyQueueSize)
}

func TestDueBeforeRollingBeforeNew(t *testing.T) {
	f := setup(t)
	due := f.reviewedCard(t, "overdue", testNow.AddDate(0, 0, -3), testNow.Add(-time.Hour), 0)
	rolling := f.reviewedCard(t, "rolling", startOfDay(testNow).AddDate(0, 0, -1).Add(10*time.Hour), testNow.AddDate(0, 0, 3), 0)
	fresh := f.newCard(t, "fresh", "1")

	queue, stats, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []uint{due.ID, rolling.ID, fresh.ID}, cardIDs(queue))
	assert.Equal(t, CardTypeDue, queue[0].CardType)
	assert.Equal(t, CardTypeRolling, queue[1].CardType)
	assert.Equal(t, CardTypeNew, queue[2].CardType)
	assert.Equal(t, 1, stats.DueCount)
	assert.Equal(t, 1, stats.RollingCount)
	assert.Equal(t, 1, stats.NewCount)
	assert.Equal(t, 3, stats.StudyQueueSize)
}

func TestRollingWindows(t *testing.T) {
	f := setup(t)
	today := startOfDay(testNow)

	hit1 := f.reviewedCard(t, "d1", today.AddDate(0, 0, -1).Add(8*time.Hour), testNow.AddDate(0, 0, 5), 0)
	hit4 := f.reviewedCard(t, "d4", today.AddDate(0, 0, -4).Add(8*time.Hour), testNow.AddDate(0, 0, 5), 0)
	f.reviewedCard(t, "d3-miss", today.AddDate(0, 0, -3).Add(8*time.Hour), testNow.AddDate(0, 0, 5), 0)
	f.reviewedCard(t, "d9-miss", today.AddDate(0, 0, -9).Add(8*time.Hour), testNow.AddDate(0, 0, 5), 0)

	queue, stats, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	assert.Equal(t, 2, stats.RollingCount)
	assert.ElementsMatch(t, []uint{hit1.ID, hit4.ID}, cardIDs(queue))
}

func TestRollingExcludesDue(t *testing.T) {
	f := setup(t)
	today := startOfDay(testNow)
	both := f.reviewedCard(t, "both", today.AddDate(0, 0, -2).Add(8*time.Hour), testNow.Add(-time.Hour), 0)

	queue, stats, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, both.ID, queue[0].CardID)
	assert.Equal(t, CardTypeDue, queue[0].CardType, "a due card never doubles as rolling")
	assert.Equal(t, 0, stats.RollingCount)
}

func TestRollingDisabled(t *testing.T) {
	f := setup(t)
	today := startOfDay(testNow)
	f.reviewedCard(t, "d1", today.AddDate(0, 0, -1).Add(8*time.Hour), testNow.AddDate(0, 0, 5), 0)

	off := false
	queue, stats, err := f.scheduler.NextQueue(Options{IncludeRolling: &off})

	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Zero(t, stats.RollingCount)
}

func TestNewCardsNaturalLessonOrder(t *testing.T) {
	f := setup(t)
	f.newCard(t, "late", "10")
	f.newCard(t, "early", "2")
	f.newCard(t, "mid", "2")

	queue, _, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, "early", queue[0].Lemma)
	assert.Equal(t, "mid", queue[1].Lemma)
	assert.Equal(t, "late", queue[2].Lemma, "lesson 2 before lesson 10")
}

func TestNewLimitApplies(t *testing.T) {
	f := setup(t)
	for i := 0; i < 15; i++ {
		f.newCard(t, "w"+string(rune('a'+i)), "1")
	}

	queue, stats, err := f.scheduler.NextQueue(Options{NewLimit: intp(4)})

	require.NoError(t, err)
	assert.Len(t, queue, 4)
	assert.Equal(t, 15, stats.NewCount, "the pool size is reported pre-cap")
	assert.Equal(t, 4, stats.NewLimitEffective)
}

func TestAdaptiveNewCap(t *testing.T) {
	f := setup(t)
	// 25 overdue cards against a daily limit of 5 leaves a backlog of
	// 15 over the 2x threshold; the new cap drops by ceil(15/10) = 2.
	for i := 0; i < 25; i++ {
		f.reviewedCard(t, "due"+string(rune('a'+i)), testNow.AddDate(0, 0, -20), testNow.Add(-time.Hour), 0)
	}
	f.newCard(t, "fresh", "1")

	_, stats, err := f.scheduler.NextQueue(Options{Limit: intp(5), NewLimit: intp(3)})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewLimitEffective)
}

func TestAdaptiveNewCapFloorsAtZero(t *testing.T) {
	f := setup(t)
	for i := 0; i < 60; i++ {
		f.reviewedCard(t, "due"+string(rune('0'+i%10))+string(rune('a'+i/10)), testNow.AddDate(0, 0, -20), testNow.Add(-time.Hour), 0)
	}
	f.newCard(t, "fresh", "1")

	queue, stats, err := f.scheduler.NextQueue(Options{Limit: intp(5), NewLimit: intp(3)})

	require.NoError(t, err)
	assert.Zero(t, stats.NewLimitEffective)
	for _, item := range queue {
		assert.NotEqual(t, CardTypeNew, item.CardType)
	}
}

func TestQueueTruncatedToLimit(t *testing.T) {
	f := setup(t)
	for i := 0; i < 10; i++ {
		f.reviewedCard(t, "due"+string(rune('a'+i)), testNow.AddDate(0, 0, -10), testNow.Add(-time.Hour), 0)
	}

	queue, stats, err := f.scheduler.NextQueue(Options{Limit: intp(6)})

	require.NoError(t, err)
	assert.Len(t, queue, 6)
	assert.Equal(t, 10, stats.DueCount, "counts reflect the pool, not the page")
}

func TestExplicitZeroLimit(t *testing.T) {
	f := setup(t)
	for i := 0; i < 5; i++ {
		f.reviewedCard(t, "due"+string(rune('a'+i)), testNow.AddDate(0, 0, -10), testNow.Add(-time.Hour), 0)
	}
	f.newCard(t, "fresh", "1")

	queue, stats, err := f.scheduler.NextQueue(Options{Limit: intp(0)})

	require.NoError(t, err)
	assert.Empty(t, queue, "limit=0 serves no cards")
	assert.Equal(t, 5, stats.DueCount, "the stats still describe the pool")
	assert.Equal(t, 1, stats.NewCount)
}

func TestExplicitZeroNewLimit(t *testing.T) {
	f := setup(t)
	f.newCard(t, "fresh", "1")

	queue, stats, err := f.scheduler.NextQueue(Options{NewLimit: intp(0)})

	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Equal(t, 1, stats.NewCount)
	assert.Zero(t, stats.NewLimitEffective)
}

func TestNewCardsGetStateOnServe(t *testing.T) {
	f := setup(t)
	card := f.newCard(t, "fresh", "1")

	_, _, err := f.scheduler.NextQueue(Options{})
	require.NoError(t, err)

	state, err := f.study.GetState(card.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Reps)
	assert.Equal(t, testNow.Unix(), state.FirstSeenAt.Unix())
}

func TestDryRunCreatesNoState(t *testing.T) {
	f := setup(t)
	card := f.newCard(t, "fresh", "1")

	_, _, err := f.scheduler.NextQueue(Options{DryRun: true})
	require.NoError(t, err)

	_, err = f.study.GetState(card.ID)
	assert.Error(t, err, "dry runs must not schedule anything")
}

func TestLeechTaggedAndDelayed(t *testing.T) {
	f := setup(t)
	card := f.reviewedCard(t, "leechy", testNow.AddDate(0, 0, -30), testNow.Add(-time.Hour), entities.LeechLapses)

	queue, _, err := f.scheduler.NextQueue(Options{})
	require.NoError(t, err)

	assert.Empty(t, queue, "a fresh leech sits out one extra day")

	word, err := f.words.Get(card.WordID, f.bookID)
	require.NoError(t, err)
	assert.True(t, word.Tags.Contains(entities.TagLeech))

	state, err := f.study.GetState(card.ID)
	require.NoError(t, err)
	assert.True(t, state.Due.After(testNow))
}

func TestLeechDelayedOnlyOnce(t *testing.T) {
	f := setup(t)
	card := f.reviewedCard(t, "leechy", testNow.AddDate(0, 0, -30), testNow.Add(-time.Hour), entities.LeechLapses)

	_, _, err := f.scheduler.NextQueue(Options{})
	require.NoError(t, err)

	// Push the due moment back into the past, as if the extra day passed.
	state, err := f.study.GetState(card.ID)
	require.NoError(t, err)
	state.Due = testNow.Add(-time.Minute)
	require.NoError(t, f.study.SaveState(state))

	queue, _, err := f.scheduler.NextQueue(Options{})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, card.ID, queue[0].CardID, "an already tagged leech schedules normally")
}

func TestStoredPreferencesApply(t *testing.T) {
	f := setup(t)
	prefRepo := settings.NewRepository(f.db)
	_, err := prefRepo.Set(settings.App{DailyLimit: 30, NewLimit: 2, IncludeRolling: true})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		f.newCard(t, "w"+string(rune('a'+i)), "1")
	}

	queue, _, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	assert.Len(t, queue, 2, "stored new_limit caps the queue")
}

func TestSRSViewOnQueueItems(t *testing.T) {
	f := setup(t)
	f.reviewedCard(t, "seen", testNow.AddDate(0, 0, -3), testNow.Add(-time.Hour), 2)

	queue, _, err := f.scheduler.NextQueue(Options{})

	require.NoError(t, err)
	require.Len(t, queue, 1)
	srsView := queue[0].SRS
	assert.Equal(t, 1, srsView.Interval)
	assert.Equal(t, 2, srsView.Lapses)
	assert.Greater(t, srsView.RetentionRate, 0.0)
	assert.LessOrEqual(t, srsView.RetentionRate, 1.0)
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"2", "10", true},
		{"10", "2", false},
		{"lesson 2", "lesson 10", true},
		{"a", "b", true},
		{"1a", "1b", true},
		{"", "1", true},
		{"1", "", false},
		{"3", "3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, naturalLess(tt.a, tt.b), "%q < %q", tt.a, tt.b)
	}
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, 2, ceilDiv(15, 10))
	assert.Equal(t, 1, ceilDiv(10, 10))
	assert.Equal(t, 1, ceilDiv(1, 10))
}
