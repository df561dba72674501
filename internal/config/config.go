package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultDatabasePath = "./wordflow.db"

type (
	Config struct {
		HTTP
		Database
		Global
		Importer
		Tasks
		CORS
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		ReadTimeout              time.Duration // soft deadline for read endpoints
	}
	Importer struct {
		Workers      int // process-wide cap on concurrent imports
		BatchSize    int // rows per store transaction
		MaxRowErrors int // row diagnostics kept per job
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
		CleanupSchedule   string // cron format
		OptimizeSchedule  string // cron format
	}
	CORS struct {
		Origins []string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("read_timeout", 5*time.Second)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_url", "")
	v.SetDefault("import_workers", 2)
	v.SetDefault("import_batch_size", 500)
	v.SetDefault("import_max_row_errors", 50)
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_workers", 2)
	v.SetDefault("tasks_release_after", 10*time.Minute)
	v.SetDefault("tasks_cleanup_interval", time.Hour)
	v.SetDefault("tasks_retention_duration", 30*24*time.Hour)
	v.SetDefault("tasks_cleanup_schedule", "0 3 * * *")
	v.SetDefault("tasks_optimize_schedule", "30 3 * * *")
	v.SetDefault("app_origins", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("port"),
			Host: v.GetString("host"),
		},
		Database: Database{
			Path: databasePath(v),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("shutdown_timeout_in_seconds"),
			ReadTimeout:              v.GetDuration("read_timeout"),
		},
		Importer: Importer{
			Workers:      v.GetInt("import_workers"),
			BatchSize:    v.GetInt("import_batch_size"),
			MaxRowErrors: v.GetInt("import_max_row_errors"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("tasks_enabled"),
			Workers:           v.GetInt("tasks_workers"),
			ReleaseAfter:      v.GetDuration("tasks_release_after"),
			CleanupInterval:   v.GetDuration("tasks_cleanup_interval"),
			RetentionDuration: v.GetDuration("tasks_retention_duration"),
			CleanupSchedule:   v.GetString("tasks_cleanup_schedule"),
			OptimizeSchedule:  v.GetString("tasks_optimize_schedule"),
		},
		CORS: CORS{
			Origins: splitOrigins(v.GetString("app_origins")),
		},
	}
}

// databasePath prefers DATABASE_URL over DATABASE_PATH. URL values may
// carry a sqlite:// scheme, which is stripped down to the file path.
func databasePath(v *viper.Viper) string {
	if url := v.GetString("database_url"); url != "" {
		for _, prefix := range []string{"sqlite3://", "sqlite://"} {
			if strings.HasPrefix(url, prefix) {
				return strings.TrimPrefix(url, prefix)
			}
		}
		return url
	}
	return v.GetString("database_path")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
