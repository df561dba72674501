package entities

import "time"

// Setting rows hold opaque JSON blobs of user preferences. The core
// never interprets the value.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// SettingKeyApp is the single record of process-wide user preferences.
const SettingKeyApp = "app"
