package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordflow/internal/database/settings"
)

// SettingsController exposes the user preference blob.
type SettingsController struct {
	store *settings.Repository
}

func NewSettingsController(store *settings.Repository) *SettingsController {
	return &SettingsController{store: store}
}

// Get returns the stored preferences, defaults included.
// GET /api/v1/settings
func (sc *SettingsController) Get(c *gin.Context) {
	app, err := sc.store.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Put replaces the preferences. Unknown fields are preserved
// untouched for forward compatibility.
// PUT /api/v1/settings
func (sc *SettingsController) Put(c *gin.Context) {
	var app settings.App
	if err := c.ShouldBindJSON(&app); err != nil {
		respondBadRequest(c, "invalid settings payload")
		return
	}
	saved, err := sc.store.Set(app)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
