// Package settings provides database operations for user preferences.
//
// Preferences are stored as one JSON blob under a fixed key; the
// scheduler reads its default limits from it, everything else is
// passed through to clients untouched.
package settings

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/entities"
)

// App is the known slice of the preferences blob. Unknown fields sent
// by clients survive round-trips through Extra.
type App struct {
	DailyLimit     int  `json:"daily_limit"`
	NewLimit       int  `json:"new_limit"`
	IncludeRolling bool `json:"include_rolling"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Defaults returns the out-of-the-box preferences.
func Defaults() App {
	return App{
		DailyLimit:     30,
		NewLimit:       10,
		IncludeRolling: true,
	}
}

// MarshalJSON flattens Extra back into the object.
func (a App) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	for k, v := range a.Extra {
		out[k] = v
	}
	for k, v := range map[string]any{
		"daily_limit":     a.DailyLimit,
		"new_limit":       a.NewLimit,
		"include_rolling": a.IncludeRolling,
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON keeps unknown keys in Extra.
func (a *App) UnmarshalJSON(data []byte) error {
	*a = Defaults()
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := struct {
		DailyLimit     *int  `json:"daily_limit"`
		NewLimit       *int  `json:"new_limit"`
		IncludeRolling *bool `json:"include_rolling"`
	}{}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	if known.DailyLimit != nil {
		a.DailyLimit = *known.DailyLimit
	}
	if known.NewLimit != nil {
		a.NewLimit = *known.NewLimit
	}
	if known.IncludeRolling != nil {
		a.IncludeRolling = *known.IncludeRolling
	}
	delete(raw, "daily_limit")
	delete(raw, "new_limit")
	delete(raw, "include_rolling")
	if len(raw) > 0 {
		a.Extra = raw
	}
	return nil
}

// Repository handles all settings database operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new settings repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Get returns the stored preferences, or defaults when nothing has
// been saved yet.
func (r *Repository) Get() (App, error) {
	var setting entities.Setting
	err := r.db.DB.Where("key = ?", entities.SettingKeyApp).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return App{}, err
	}

	var app App
	if err := json.Unmarshal([]byte(setting.Value), &app); err != nil {
		return App{}, apperr.Wrap(apperr.Fatal, err, "stored settings are corrupted")
	}
	return app, nil
}

// Set validates and persists the preferences blob.
func (r *Repository) Set(app App) (App, error) {
	if app.DailyLimit < 1 || app.DailyLimit > 100 {
		return App{}, apperr.New(apperr.BadInput, "daily_limit must be between 1 and 100")
	}
	if app.NewLimit < 0 || app.NewLimit > 100 {
		return App{}, apperr.New(apperr.BadInput, "new_limit must be between 0 and 100")
	}

	value, err := json.Marshal(app)
	if err != nil {
		return App{}, err
	}

	err = r.db.WithRetry(func() error {
		setting := entities.Setting{Key: entities.SettingKeyApp, Value: string(value)}
		return r.db.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&setting).Error
	})
	if err != nil {
		return App{}, err
	}
	return app, nil
}
