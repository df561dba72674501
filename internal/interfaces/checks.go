// Package interfaces holds compile-time interface implementation
// checks, so a missing method is caught by the build instead of at
// wiring time.
package interfaces

import (
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/tasks"
)

var _ tasks.ImportJobCleaner = (*imports.Repository)(nil)

var _ tasks.SearchIndexMaintainer = (*database.Database)(nil)
