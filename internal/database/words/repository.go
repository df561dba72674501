// Package words provides database operations for word storage and the
// queries behind search and suggest.
//
// All writes compose the denormalized lemma_folded and search_text
// columns before they hit the database, so the FTS triggers installed
// by the database package always index current gloss text.
package words

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
	"github.com/mrlokans/wordflow/internal/textutil"
)

// Repository handles all word database operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new word repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Input is one normalized word ready for insertion.
type Input struct {
	Row          int // source row number, for diagnostics
	Lemma        string
	Pos          string
	Gender       string
	IPA          string
	MeaningText  string
	Translations map[string]string
	Lesson       string
	CEFR         string
	Tags         []string
	Hint         string // carried to the default card
}

// RowFailure reports one row that could not be inserted.
type RowFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Inserted identifies one row that made it into the words table.
type Inserted struct {
	WordID uint
	Row    int
	Hint   string
}

// BulkResult summarizes one batch upsert.
type BulkResult struct {
	Inserted []Inserted
	Skipped  int
	Failed   []RowFailure
}

func buildWord(wordbookID uint, in Input) (*entities.Word, error) {
	lemma := textutil.NFC(in.Lemma)
	if lemma == "" {
		return nil, apperr.New(apperr.BadInput, "lemma is empty")
	}

	word := &entities.Word{
		WordbookID:   wordbookID,
		Lemma:        lemma,
		Pos:          strings.TrimSpace(in.Pos),
		Gender:       strings.TrimSpace(in.Gender),
		IPA:          strings.TrimSpace(in.IPA),
		MeaningText:  strings.TrimSpace(in.MeaningText),
		Translations: in.Translations,
		Lesson:       strings.TrimSpace(in.Lesson),
		CEFR:         strings.TrimSpace(in.CEFR),
		Tags:         entities.TagList(in.Tags),
	}
	word.LemmaFolded = textutil.Fold(lemma)
	word.SearchText = composeSearchText(word)
	return word, nil
}

// composeSearchText joins the primary gloss with every translation
// value; this is the "meanings" field of the FTS index.
func composeSearchText(w *entities.Word) string {
	parts := make([]string, 0, len(w.Translations)+1)
	if w.MeaningText != "" {
		parts = append(parts, w.MeaningText)
	}
	keys := make([]string, 0, len(w.Translations))
	for k := range w.Translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := w.Translations[k]; v != "" && v != w.MeaningText {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Upsert inserts one word, skipping silently when
// (wordbook_id, lemma, pos) is already present.
func (r *Repository) Upsert(wordbookID uint, in Input) (inserted bool, wordID uint, err error) {
	word, err := buildWord(wordbookID, in)
	if err != nil {
		return false, 0, err
	}

	unlock := r.db.LockWordbook(wordbookID)
	defer unlock()

	err = r.db.WithRetry(func() error {
		return r.db.DB.Transaction(func(tx *gorm.DB) error {
			return upsertInTx(tx, word)
		})
	})
	if err != nil {
		return false, 0, err
	}
	return word.ID != 0, word.ID, nil
}

// upsertInTx inserts with ON CONFLICT DO NOTHING; word.ID stays zero
// on skip.
func upsertInTx(tx *gorm.DB, word *entities.Word) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(word)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		word.ID = 0
	}
	return nil
}

// BulkUpsert inserts a batch inside a single transaction. Individual
// bad rows are reported in the result without aborting the batch;
// duplicates count as skipped.
func (r *Repository) BulkUpsert(wordbookID uint, batch []Input) (*BulkResult, error) {
	result := &BulkResult{}

	unlock := r.db.LockWordbook(wordbookID)
	defer unlock()

	err := r.db.WithRetry(func() error {
		// Reset in case the first attempt failed halfway through.
		*result = BulkResult{}
		return r.db.DB.Transaction(func(tx *gorm.DB) error {
			for _, in := range batch {
				word, err := buildWord(wordbookID, in)
				if err != nil {
					result.Failed = append(result.Failed, RowFailure{Row: in.Row, Reason: err.Error()})
					continue
				}
				if err := upsertInTx(tx, word); err != nil {
					if database.IsTransient(err) {
						return err
					}
					result.Failed = append(result.Failed, RowFailure{Row: in.Row, Reason: err.Error()})
					continue
				}
				if word.ID == 0 {
					result.Skipped++
					continue
				}
				result.Inserted = append(result.Inserted, Inserted{WordID: word.ID, Row: in.Row, Hint: in.Hint})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateCardIfMissing creates a card for the word, idempotent on
// (word_id, template).
func (r *Repository) CreateCardIfMissing(wordID uint, template, hint string) (*entities.Card, error) {
	if template == "" {
		template = entities.CardTemplateBasic
	}
	card := &entities.Card{WordID: wordID, Template: template, Hint: hint}
	err := r.db.WithRetry(func() error {
		res := r.db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(card)
		return res.Error
	})
	if err != nil {
		return nil, err
	}
	if card.ID == 0 {
		// Already present; fetch the existing row.
		err = r.db.DB.Where("word_id = ? AND template = ?", wordID, template).First(card).Error
		if err != nil {
			return nil, err
		}
	}
	return card, nil
}

// Get returns one word scoped to a wordbook.
func (r *Repository) Get(id, wordbookID uint) (*entities.Word, error) {
	var word entities.Word
	err := r.db.DB.Where("id = ? AND wordbook_id = ?", id, wordbookID).First(&word).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "word %d not found in the active wordbook", id)
	}
	if err != nil {
		return nil, err
	}
	return &word, nil
}

// AddTag appends a tag to a word if not already present. Used for
// leech marking; safe to call repeatedly.
func (r *Repository) AddTag(wordID uint, tag string) (added bool, err error) {
	var word entities.Word
	if err := r.db.DB.First(&word, wordID).Error; err != nil {
		return false, err
	}
	if word.Tags.Contains(tag) {
		return false, nil
	}
	word.Tags = word.Tags.Add(tag)
	err = r.db.WithRetry(func() error {
		return r.db.DB.Model(&word).Update("tags", word.Tags).Error
	})
	return err == nil, err
}

// Filter narrows word queries. Zero values mean "no constraint".
type Filter struct {
	WordbookID uint
	Lesson     string
	CEFR       string
	Pos        string
	Page       int // 1-based
	PerPage    int // clamped to [1,100], default 20
}

func (f *Filter) clamp() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	q = q.Where("words.wordbook_id = ?", f.WordbookID)
	if f.Lesson != "" {
		q = q.Where("words.lesson = ?", f.Lesson)
	}
	if f.CEFR != "" {
		q = q.Where("words.cefr = ?", f.CEFR)
	}
	if f.Pos != "" {
		q = q.Where("words.pos = ?", f.Pos)
	}
	return q
}

// Query lists words without a search term, ordered by lesson then
// lemma.
func (r *Repository) Query(f Filter) ([]entities.Word, int64, error) {
	f.clamp()

	var total int64
	if err := f.apply(r.db.DB.Model(&entities.Word{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var words []entities.Word
	err := f.apply(r.db.DB.Model(&entities.Word{})).
		Order("words.lesson, words.lemma").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&words).Error
	return words, total, err
}

// MatchIndex runs an FTS5 MATCH query ranked by bm25 with field
// weights lemma 3.0, meanings 1.0; ties break on lemma. The caller
// builds the match expression; a syntax error surfaces as BadInput so
// the search layer can fall back to a plain term match.
func (r *Repository) MatchIndex(match string, f Filter) ([]entities.Word, int64, error) {
	f.clamp()

	joined := func(q *gorm.DB) *gorm.DB {
		return f.apply(q.Joins("JOIN words_fts ON words_fts.rowid = words.id").
			Where("words_fts MATCH ?", match))
	}

	var total int64
	if err := joined(r.db.DB.Model(&entities.Word{})).Count(&total).Error; err != nil {
		return nil, 0, classifyMatchErr(err)
	}

	var words []entities.Word
	err := joined(r.db.DB.Model(&entities.Word{})).
		Select("words.*").
		Order("bm25(words_fts, 3.0, 1.0), words.lemma ASC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&words).Error
	if err != nil {
		return nil, 0, classifyMatchErr(err)
	}
	return words, total, nil
}

func classifyMatchErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "fts5: syntax error") || strings.Contains(err.Error(), "unknown special query") {
		return apperr.Wrap(apperr.BadInput, err, "unsupported search syntax")
	}
	return err
}

// LikeFallback is the non-FTS term match used when the query cannot be
// expressed as an FTS expression.
func (r *Repository) LikeFallback(term string, f Filter) ([]entities.Word, int64, error) {
	f.clamp()
	pattern := "%" + escapeLike(term) + "%"

	base := func() *gorm.DB {
		return f.apply(r.db.DB.Model(&entities.Word{})).
			Where("words.lemma LIKE ? ESCAPE '\\' OR words.search_text LIKE ? ESCAPE '\\'", pattern, pattern)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var words []entities.Word
	err := base().
		Order("words.lemma ASC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&words).Error
	return words, total, err
}

// SuggestLemmas returns distinct lemmas whose folded form starts with
// the folded prefix, shortest first, then lexicographic.
func (r *Repository) SuggestLemmas(wordbookID uint, prefix string, limit int) ([]string, error) {
	folded := textutil.Fold(prefix)
	if folded == "" {
		return []string{}, nil
	}
	if limit < 1 {
		limit = 10
	}

	var lemmas []string
	err := r.db.DB.Model(&entities.Word{}).
		Distinct("lemma").
		Where("wordbook_id = ? AND lemma_folded LIKE ? ESCAPE '\\'", wordbookID, escapeLike(folded)+"%").
		Order("length(lemma) ASC, lemma ASC").
		Limit(limit).
		Pluck("lemma", &lemmas).Error
	if err != nil {
		return nil, err
	}
	if lemmas == nil {
		lemmas = []string{}
	}
	return lemmas, nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// Count returns the number of words in a wordbook.
func (r *Repository) Count(wordbookID uint) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.Word{}).Where("wordbook_id = ?", wordbookID).Count(&count).Error
	return count, err
}
