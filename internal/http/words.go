package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/search"
)

// WordController answers word list, detail, search and suggest
// queries against the active wordbook.
type WordController struct {
	wordbooks *wordbooks.Repository
	words     *words.Repository
	search    *search.Service
}

func NewWordController(wb *wordbooks.Repository, wd *words.Repository, sv *search.Service) *WordController {
	return &WordController{wordbooks: wb, words: wd, search: sv}
}

// activeID resolves the active wordbook or writes the error response.
func (wc *WordController) activeID(c *gin.Context) (uint, bool) {
	book, err := wc.wordbooks.Active()
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	return book.ID, true
}

// List returns a filtered page of words ordered by lesson then lemma.
// GET /api/v1/words
func (wc *WordController) List(c *gin.Context) {
	wordbookID, ok := wc.activeID(c)
	if !ok {
		return
	}

	result, total, err := wc.words.Query(words.Filter{
		WordbookID: wordbookID,
		Lesson:     c.Query("lesson"),
		CEFR:       c.Query("cefr"),
		Pos:        c.Query("pos"),
		Page:       queryInt(c, "page", 1),
		PerPage:    queryInt(c, "per_page", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"words": result,
		"total": total,
	})
}

// Get returns one word of the active wordbook.
// GET /api/v1/words/:id
func (wc *WordController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	wordbookID, ok := wc.activeID(c)
	if !ok {
		return
	}
	word, err := wc.words.Get(id, wordbookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, word)
}

// Search runs a ranked full-text query with filters.
// GET /api/v1/words/search
func (wc *WordController) Search(c *gin.Context) {
	wordbookID, ok := wc.activeID(c)
	if !ok {
		return
	}

	result, err := wc.search.Search(wordbookID, search.Request{
		Q:       c.Query("q"),
		Lesson:  c.Query("lesson"),
		CEFR:    c.Query("cefr"),
		Pos:     c.Query("pos"),
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Suggest returns lemma completions for a prefix.
// GET /api/v1/words/suggest
func (wc *WordController) Suggest(c *gin.Context) {
	wordbookID, ok := wc.activeID(c)
	if !ok {
		return
	}
	lemmas, err := wc.search.Suggest(wordbookID, c.Query("q"), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lemmas)
}

// GlobalStats aggregates the active wordbook.
// GET /api/v1/stats
func (wc *WordController) GlobalStats(c *gin.Context) {
	wordbookID, ok := wc.activeID(c)
	if !ok {
		return
	}
	stats, err := wc.wordbooks.Stats(wordbookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_words": stats.TotalWords,
		"by_lesson":   stats.ByLesson,
		"by_cefr":     stats.ByCEFR,
		"by_pos":      stats.ByPos,
	})
}
