package words

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, *Repository, uint) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	book := &entities.Wordbook{Name: "test book", Language: "fr", IsActive: true}
	require.NoError(t, db.DB.Create(book).Error)

	return db, NewRepository(db), book.ID
}

func TestUpsertInsertsAndSkips(t *testing.T) {
	_, repo, bookID := setupTestDB(t)

	inserted, wordID, err := repo.Upsert(bookID, Input{Lemma: "bonjour", Pos: "interj", MeaningText: "你好"})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, wordID)

	inserted, wordID, err = repo.Upsert(bookID, Input{Lemma: "bonjour", Pos: "interj", MeaningText: "different gloss"})
	require.NoError(t, err)
	assert.False(t, inserted, "same (wordbook, lemma, pos) is a skip")
	assert.Zero(t, wordID)
}

func TestUpsertSamePosInOtherWordbook(t *testing.T) {
	db, repo, bookID := setupTestDB(t)
	other := &entities.Wordbook{Name: "other book"}
	require.NoError(t, db.DB.Create(other).Error)

	_, _, err := repo.Upsert(bookID, Input{Lemma: "pain", Pos: "noun"})
	require.NoError(t, err)

	inserted, _, err := repo.Upsert(other.ID, Input{Lemma: "pain", Pos: "noun"})
	require.NoError(t, err)
	assert.True(t, inserted, "identity is scoped per wordbook")
}

func TestUpsertNormalizesLemma(t *testing.T) {
	_, repo, bookID := setupTestDB(t)

	_, wordID, err := repo.Upsert(bookID, Input{Lemma: " école "})
	require.NoError(t, err)

	word, err := repo.Get(wordID, bookID)
	require.NoError(t, err)
	assert.Equal(t, "école", word.Lemma)
	assert.Equal(t, "ecole", word.LemmaFolded)
}

func TestUpsertEmptyLemma(t *testing.T) {
	_, repo, bookID := setupTestDB(t)

	_, _, err := repo.Upsert(bookID, Input{Lemma: "   "})

	assert.True(t, apperr.IsKind(err, apperr.BadInput))
}

func TestBulkUpsert(t *testing.T) {
	_, repo, bookID := setupTestDB(t)

	batch := []Input{
		{Row: 2, Lemma: "un", Pos: "num", Hint: "first hint"},
		{Row: 3, Lemma: "deux", Pos: "num"},
		{Row: 4, Lemma: "un", Pos: "num"}, // duplicate of row 2
		{Row: 5, Lemma: ""},               // bad row
	}

	result, err := repo.BulkUpsert(bookID, batch)

	require.NoError(t, err)
	require.Len(t, result.Inserted, 2)
	assert.Equal(t, 2, result.Inserted[0].Row)
	assert.Equal(t, "first hint", result.Inserted[0].Hint)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 5, result.Failed[0].Row)
}

func TestCreateCardIfMissing(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	_, wordID, err := repo.Upsert(bookID, Input{Lemma: "chat"})
	require.NoError(t, err)

	card, err := repo.CreateCardIfMissing(wordID, "", "feline")
	require.NoError(t, err)
	assert.Equal(t, entities.CardTemplateBasic, card.Template)
	assert.Equal(t, "feline", card.Hint)

	again, err := repo.CreateCardIfMissing(wordID, entities.CardTemplateBasic, "other hint")
	require.NoError(t, err)
	assert.Equal(t, card.ID, again.ID, "second call returns the existing card")
}

func TestAddTag(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	_, wordID, err := repo.Upsert(bookID, Input{Lemma: "oubli", Tags: []string{"hard"}})
	require.NoError(t, err)

	added, err := repo.AddTag(wordID, entities.TagLeech)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddTag(wordID, entities.TagLeech)
	require.NoError(t, err)
	assert.False(t, added, "second add is a no-op")

	word, err := repo.Get(wordID, bookID)
	require.NoError(t, err)
	assert.Equal(t, entities.TagList{"hard", "leech"}, word.Tags)
}

func TestGetScopedToWordbook(t *testing.T) {
	db, repo, bookID := setupTestDB(t)
	other := &entities.Wordbook{Name: "other"}
	require.NoError(t, db.DB.Create(other).Error)
	_, wordID, err := repo.Upsert(other.ID, Input{Lemma: "ailleurs"})
	require.NoError(t, err)

	_, err = repo.Get(wordID, bookID)

	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func seedSearchWords(t *testing.T, repo *Repository, bookID uint) {
	t.Helper()
	for _, in := range []Input{
		{Lemma: "bonjour", Pos: "interj", MeaningText: "你好", Translations: map[string]string{"zh-cn": "你好", "en": "hello"}, Lesson: "1", CEFR: "A1"},
		{Lemma: "bonsoir", Pos: "interj", MeaningText: "晚上好", Translations: map[string]string{"zh-cn": "晚上好", "en": "good evening"}, Lesson: "1", CEFR: "A1"},
		{Lemma: "pain", Pos: "noun", MeaningText: "面包", Translations: map[string]string{"zh-cn": "面包", "en": "bread"}, Lesson: "2", CEFR: "A1"},
		{Lemma: "école", Pos: "noun", MeaningText: "学校", Lesson: "10", CEFR: "A2"},
	} {
		_, _, err := repo.Upsert(bookID, in)
		require.NoError(t, err)
	}
}

func TestQueryFilters(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	words, total, err := repo.Query(Filter{WordbookID: bookID, Lesson: "1"})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, words, 2)
	assert.Equal(t, "bonjour", words[0].Lemma)
}

func TestQueryPagination(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	words, total, err := repo.Query(Filter{WordbookID: bookID, Page: 2, PerPage: 3})

	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, words, 1)
}

func TestMatchIndexByLemma(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	words, total, err := repo.MatchIndex(`"bonjour"`, Filter{WordbookID: bookID})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, words, 1)
	assert.Equal(t, "bonjour", words[0].Lemma)
}

func TestMatchIndexByMeaning(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	words, _, err := repo.MatchIndex(`"bread"`, Filter{WordbookID: bookID})

	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "pain", words[0].Lemma)
}

func TestMatchIndexPrefix(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	_, total, err := repo.MatchIndex(`"bon"*`, Filter{WordbookID: bookID})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestMatchIndexSyntaxError(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	_, _, err := repo.MatchIndex(`AND AND (`, Filter{WordbookID: bookID})

	assert.True(t, apperr.IsKind(err, apperr.BadInput))
}

func TestMatchIndexSeesUpdates(t *testing.T) {
	db, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	require.NoError(t, db.DB.Model(&entities.Word{}).
		Where("lemma = ? AND wordbook_id = ?", "pain", bookID).
		Update("search_text", "面包 loaf").Error)

	words, _, err := repo.MatchIndex(`"loaf"`, Filter{WordbookID: bookID})

	require.NoError(t, err)
	require.Len(t, words, 1, "the update trigger reindexes the row")
	assert.Equal(t, "pain", words[0].Lemma)
}

func TestLikeFallbackEscapesWildcards(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	_, total, err := repo.LikeFallback("%", Filter{WordbookID: bookID})

	require.NoError(t, err)
	assert.Zero(t, total, "a literal percent matches nothing")
}

func TestSuggestLemmas(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	lemmas, err := repo.SuggestLemmas(bookID, "bon", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"bonjour", "bonsoir"}, lemmas)

	lemmas, err = repo.SuggestLemmas(bookID, "ECO", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"école"}, lemmas, "folded prefix matches diacritics")

	lemmas, err = repo.SuggestLemmas(bookID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, lemmas)
}

func TestCount(t *testing.T) {
	_, repo, bookID := setupTestDB(t)
	seedSearchWords(t, repo, bookID)

	count, err := repo.Count(bookID)

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
