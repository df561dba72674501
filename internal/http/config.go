package http

import (
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/database/settings"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/importer"
	"github.com/mrlokans/wordflow/internal/scheduler"
	"github.com/mrlokans/wordflow/internal/search"
	"github.com/mrlokans/wordflow/internal/srs"
	"github.com/mrlokans/wordflow/internal/stats"
)

// RouterConfig carries every dependency the router needs, so wiring
// stays in one place and handler tests can pass in only what they use.
type RouterConfig struct {
	DB *database.Database

	Wordbooks *wordbooks.Repository
	Words     *words.Repository
	Imports   *imports.Repository
	Settings  *settings.Repository

	Supervisor *importer.Supervisor
	Search     *search.Service
	Scheduler  *scheduler.Scheduler
	SRS        *srs.Service
	Stats      *stats.Service

	Version string
}
