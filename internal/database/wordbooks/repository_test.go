package wordbooks

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, *Repository) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewRepository(db)
}

func createTestWordbook(t *testing.T, repo *Repository, name string) *entities.Wordbook {
	t.Helper()
	book, err := repo.Create(CreateParams{Name: name, Language: "fr"})
	require.NoError(t, err)
	return book
}

func TestCreate(t *testing.T) {
	_, repo := setupTestDB(t)

	book, err := repo.Create(CreateParams{
		Name:        "HSK French",
		Language:    "fr",
		Description: "semester one",
		Author:      "me",
		Version:     "1.0",
	})

	require.NoError(t, err)
	assert.NotZero(t, book.ID)
	assert.False(t, book.IsActive)
}

func TestCreateRequiresName(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.Create(CreateParams{Language: "fr"})

	assert.True(t, apperr.IsKind(err, apperr.BadInput))
}

func TestCreateDuplicateName(t *testing.T) {
	_, repo := setupTestDB(t)
	createTestWordbook(t, repo, "A1 Vocab")

	_, err := repo.Create(CreateParams{Name: "A1 Vocab"})

	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestActiveWithoutAnyBook(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.Active()

	assert.True(t, apperr.IsKind(err, apperr.PreconditionFailed))
}

func TestActivateSwapsSingleActive(t *testing.T) {
	_, repo := setupTestDB(t)
	first := createTestWordbook(t, repo, "first")
	second := createTestWordbook(t, repo, "second")

	_, err := repo.Activate(first.ID)
	require.NoError(t, err)
	_, err = repo.Activate(second.ID)
	require.NoError(t, err)

	active, err := repo.Active()
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	books, err := repo.List()
	require.NoError(t, err)
	activeCount := 0
	for _, b := range books {
		if b.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestActivateUnknownID(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.Activate(999)

	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestUpdatePartial(t *testing.T) {
	_, repo := setupTestDB(t)
	book := createTestWordbook(t, repo, "draft")

	name := "final"
	updated, err := repo.Update(book.ID, UpdateParams{Name: &name})

	require.NoError(t, err)
	assert.Equal(t, "final", updated.Name)
	assert.Equal(t, "fr", updated.Language, "unset fields stay put")
}

func TestDeleteActiveIsRefused(t *testing.T) {
	_, repo := setupTestDB(t)
	book := createTestWordbook(t, repo, "busy")
	_, err := repo.Activate(book.ID)
	require.NoError(t, err)

	_, err = repo.Delete(book.ID)

	assert.True(t, apperr.IsKind(err, apperr.PreconditionFailed))
}

func TestDeleteInactive(t *testing.T) {
	db, repo := setupTestDB(t)
	book := createTestWordbook(t, repo, "stale")

	word := &entities.Word{WordbookID: book.ID, Lemma: "bonjour", LemmaFolded: "bonjour"}
	require.NoError(t, db.DB.Create(word).Error)

	deleted, err := repo.Delete(book.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	_, err = repo.Get(book.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestStats(t *testing.T) {
	db, repo := setupTestDB(t)
	book := createTestWordbook(t, repo, "counted")

	seed := []entities.Word{
		{WordbookID: book.ID, Lemma: "un", LemmaFolded: "un", CEFR: "A1", Pos: "noun", Lesson: "1"},
		{WordbookID: book.ID, Lemma: "deux", LemmaFolded: "deux", CEFR: "A1", Pos: "verb", Lesson: "1"},
		{WordbookID: book.ID, Lemma: "trois", LemmaFolded: "trois", CEFR: "B1", Pos: "noun", Lesson: "2"},
	}
	for i := range seed {
		require.NoError(t, db.DB.Create(&seed[i]).Error)
	}

	stats, err := repo.Stats(book.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalWords)
	assert.Equal(t, int64(2), stats.ByCEFR["A1"])
	assert.Equal(t, int64(1), stats.ByCEFR["B1"])
	assert.Equal(t, int64(2), stats.ByPos["noun"])
	assert.Equal(t, int64(2), stats.ByLesson["1"])
}

func TestRefreshTotalWords(t *testing.T) {
	db, repo := setupTestDB(t)
	book := createTestWordbook(t, repo, "refreshed")
	require.NoError(t, db.DB.Create(&entities.Word{WordbookID: book.ID, Lemma: "mot", LemmaFolded: "mot"}).Error)

	require.NoError(t, repo.RefreshTotalWords(book.ID))

	got, err := repo.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalWords)
}
