package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordflow/internal/database/wordbooks"
)

// WordbookController manages wordbook CRUD and activation.
type WordbookController struct {
	store *wordbooks.Repository
}

func NewWordbookController(store *wordbooks.Repository) *WordbookController {
	return &WordbookController{store: store}
}

// CreateWordbookRequest is the request body for creating a wordbook.
type CreateWordbookRequest struct {
	Name        string `json:"name" binding:"required"`
	Language    string `json:"language"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Version     string `json:"version"`
}

// Create adds a new wordbook.
// POST /api/v1/wordbooks
func (wc *WordbookController) Create(c *gin.Context) {
	var req CreateWordbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	book, err := wc.store.Create(wordbooks.CreateParams{
		Name:        req.Name,
		Language:    req.Language,
		Description: req.Description,
		Author:      req.Author,
		Version:     req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

// List returns all wordbooks, newest first.
// GET /api/v1/wordbooks
func (wc *WordbookController) List(c *gin.Context) {
	books, err := wc.store.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// Active returns the currently active wordbook.
// GET /api/v1/wordbooks/active
func (wc *WordbookController) Active(c *gin.Context) {
	book, err := wc.store.Active()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Get returns a wordbook by id.
// GET /api/v1/wordbooks/:id
func (wc *WordbookController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := wc.store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// UpdateWordbookRequest carries optional field updates.
type UpdateWordbookRequest struct {
	Name        *string `json:"name"`
	Language    *string `json:"language"`
	Description *string `json:"description"`
	Author      *string `json:"author"`
	Version     *string `json:"version"`
}

// Update applies partial updates to a wordbook.
// PUT /api/v1/wordbooks/:id
func (wc *WordbookController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateWordbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := wc.store.Update(id, wordbooks.UpdateParams{
		Name:        req.Name,
		Language:    req.Language,
		Description: req.Description,
		Author:      req.Author,
		Version:     req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Activate makes the wordbook the single active one.
// POST /api/v1/wordbooks/:id/activate
func (wc *WordbookController) Activate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := wc.store.Activate(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "wordbook activated",
		"wordbook": book,
	})
}

// Delete removes an inactive wordbook and everything under it.
// DELETE /api/v1/wordbooks/:id
func (wc *WordbookController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	deletedWords, err := wc.store.Delete(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "wordbook deleted",
		"deleted_words": deletedWords,
	})
}

// Stats returns per-book word aggregates.
// GET /api/v1/wordbooks/:id/stats
func (wc *WordbookController) Stats(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := wc.store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := wc.store.Stats(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wordbook":    book,
		"total_words": stats.TotalWords,
		"by_cefr":     stats.ByCEFR,
		"by_pos":      stats.ByPos,
		"by_lesson":   stats.ByLesson,
	})
}

// Export streams every word of the wordbook as JSON.
// POST /api/v1/wordbooks/:id/export
func (wc *WordbookController) Export(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := wc.store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	words, err := wc.store.Words(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wordbook": book,
		"words":    words,
	})
}
