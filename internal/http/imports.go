package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/entities"
	"github.com/mrlokans/wordflow/internal/importer"
	"github.com/mrlokans/wordflow/internal/parser"
)

// maxUploadBytes caps an import payload; uploads are buffered in
// memory before parsing.
const maxUploadBytes = 32 << 20

// ImportController starts bulk imports and answers progress polls.
type ImportController struct {
	supervisor *importer.Supervisor
	store      *imports.Repository
}

func NewImportController(supervisor *importer.Supervisor, store *imports.Repository) *ImportController {
	return &ImportController{supervisor: supervisor, store: store}
}

// importJobView adds the derived progress percent to the wire form.
func importJobView(job *entities.ImportJob) gin.H {
	return gin.H{
		"import_id":        job.ID,
		"wordbook_id":      job.WordbookID,
		"filename":         job.Filename,
		"started_at":       job.StartedAt,
		"finished_at":      job.FinishedAt,
		"status":           job.Status,
		"total":            job.Total,
		"succeeded":        job.Succeeded,
		"failed":           job.Failed,
		"skipped":          job.Skipped,
		"message":          job.Message,
		"progress_percent": job.ProgressPercent(),
	}
}

// Upload accepts a multipart vocabulary file and kicks off a
// background import. The response is 202 with the job id; the client
// polls for progress.
// POST /api/v1/words/bulk
func (ic *ImportController) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "multipart field 'file' is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respondBadRequest(c, "file exceeds the 32 MiB upload limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(payload) > maxUploadBytes {
		respondBadRequest(c, "file exceeds the 32 MiB upload limit")
		return
	}

	var wordbookID uint
	if raw := c.PostForm("wordbook_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid wordbook_id")
			return
		}
		wordbookID = uint(id)
	}

	format := parser.Format(c.DefaultPostForm("format", string(parser.FormatAuto)))

	job, err := ic.supervisor.Start(payload, fileHeader.Filename, format, wordbookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"import_id": job.ID,
		"status":    job.Status,
		"message":   "import started",
	})
}

// Progress polls one job.
// GET /api/v1/imports/:id
func (ic *ImportController) Progress(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	job, err := ic.supervisor.Progress(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, importJobView(job))
}

// List returns recent jobs, newest first.
// GET /api/v1/imports
func (ic *ImportController) List(c *gin.Context) {
	jobs, err := ic.store.List()
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]gin.H, 0, len(jobs))
	for i := range jobs {
		views = append(views, importJobView(&jobs[i]))
	}
	c.JSON(http.StatusOK, views)
}

// Delete removes a finished job record.
// DELETE /api/v1/imports/:id
func (ic *ImportController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ic.store.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "import deleted"})
}
