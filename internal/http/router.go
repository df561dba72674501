// Package http is the versioned JSON API over the study, search and
// import services.
package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.DB, cfg.Version)
	router.GET("/health", health.Status)

	wordbookController := NewWordbookController(cfg.Wordbooks)
	wordController := NewWordController(cfg.Wordbooks, cfg.Words, cfg.Search)
	importController := NewImportController(cfg.Supervisor, cfg.Imports)
	studyController := NewStudyController(cfg.Scheduler, cfg.SRS, cfg.Stats, cfg.Wordbooks)
	settingsController := NewSettingsController(cfg.Settings)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/wordbooks", wordbookController.Create)
		v1.GET("/wordbooks", wordbookController.List)
		v1.GET("/wordbooks/active", wordbookController.Active)
		v1.GET("/wordbooks/:id", wordbookController.Get)
		v1.PUT("/wordbooks/:id", wordbookController.Update)
		v1.POST("/wordbooks/:id/activate", wordbookController.Activate)
		v1.DELETE("/wordbooks/:id", wordbookController.Delete)
		v1.GET("/wordbooks/:id/stats", wordbookController.Stats)
		v1.POST("/wordbooks/:id/export", wordbookController.Export)

		v1.GET("/words", wordController.List)
		v1.GET("/words/search", wordController.Search)
		v1.GET("/words/suggest", wordController.Suggest)
		v1.GET("/words/:id", wordController.Get)
		v1.GET("/stats", wordController.GlobalStats)

		v1.POST("/words/bulk", importController.Upload)
		v1.GET("/imports", importController.List)
		v1.GET("/imports/:id", importController.Progress)
		v1.DELETE("/imports/:id", importController.Delete)

		v1.GET("/study/next", studyController.Next)
		v1.POST("/review", studyController.Review)
		v1.GET("/study/stats", studyController.TodayStats)
		v1.GET("/study/progress", studyController.Progress)
		v1.GET("/study/due-forecast", studyController.DueForecast)

		v1.GET("/settings", settingsController.Get)
		v1.PUT("/settings", settingsController.Put)
	}

	return router
}
