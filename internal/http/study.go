package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/scheduler"
	"github.com/mrlokans/wordflow/internal/srs"
	"github.com/mrlokans/wordflow/internal/stats"
)

// secondsPerCard is the linear estimate behind estimated_minutes.
const secondsPerCard = 30

// StudyController serves the daily queue, grading, and the study
// statistics views.
type StudyController struct {
	scheduler *scheduler.Scheduler
	srs       *srs.Service
	stats     *stats.Service
	wordbooks *wordbooks.Repository
}

func NewStudyController(sched *scheduler.Scheduler, srsService *srs.Service, statsService *stats.Service, wb *wordbooks.Repository) *StudyController {
	return &StudyController{scheduler: sched, srs: srsService, stats: statsService, wordbooks: wb}
}

// Next builds today's study queue.
// GET /api/v1/study/next
func (sc *StudyController) Next(c *gin.Context) {
	var includeRolling *bool
	if raw := c.Query("include_rolling"); raw != "" {
		v := raw == "true" || raw == "1"
		includeRolling = &v
	}

	cards, queueStats, err := sc.scheduler.NextQueue(scheduler.Options{
		Limit:          queryIntPtr(c, "limit"),
		NewLimit:       queryIntPtr(c, "new_limit"),
		IncludeRolling: includeRolling,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":      cards,
		"stats":      queueStats,
		"session_id": uuid.NewString(),
		"queue_info": gin.H{
			"count":             len(cards),
			"estimated_minutes": (len(cards)*secondsPerCard + 59) / 60,
		},
	})
}

// ReviewRequest is the request body for submitting a grade.
type ReviewRequest struct {
	CardID    uint `json:"card_id" binding:"required"`
	Grade     *int `json:"grade" binding:"required"`
	ElapsedMs *int `json:"elapsed_ms"`
}

// Review applies a grade to a card of the active wordbook.
// POST /api/v1/review
func (sc *StudyController) Review(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "card_id and grade are required")
		return
	}

	book, err := sc.wordbooks.Active()
	if err != nil {
		respondError(c, err)
		return
	}

	state, err := sc.srs.Apply(req.CardID, book.ID, *req.Grade, req.ElapsedMs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "review recorded",
		"result":  state,
	})
}

// TodayStats returns the daily snapshot.
// GET /api/v1/study/stats
func (sc *StudyController) TodayStats(c *gin.Context) {
	today, err := sc.stats.Today()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, today)
}

// Progress returns per-day review history.
// GET /api/v1/study/progress?days=N
func (sc *StudyController) Progress(c *gin.Context) {
	progress, err := sc.stats.Progress(queryInt(c, "days", 7))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// DueForecast returns upcoming review load per day.
// GET /api/v1/study/due-forecast?days=N
func (sc *StudyController) DueForecast(c *gin.Context) {
	forecast, err := sc.stats.DueForecast(queryInt(c, "days", 7))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecast": forecast})
}
