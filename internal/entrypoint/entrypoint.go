// Package entrypoint wires the configuration, database, services and
// HTTP server together and owns the process lifecycle.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/mrlokans/wordflow/internal/config"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/database/settings"
	"github.com/mrlokans/wordflow/internal/database/study"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	http_controllers "github.com/mrlokans/wordflow/internal/http"
	"github.com/mrlokans/wordflow/internal/importer"
	"github.com/mrlokans/wordflow/internal/scheduler"
	"github.com/mrlokans/wordflow/internal/search"
	"github.com/mrlokans/wordflow/internal/srs"
	"github.com/mrlokans/wordflow/internal/stats"
	"github.com/mrlokans/wordflow/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// newServer builds the HTTP server with the configured read deadline,
// so a stalled client cannot hold a connection open indefinitely.
func newServer(handler http.Handler, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:     handler,
		ReadTimeout: cfg.Global.ReadTimeout,
	}
}

// Serve blocks until SIGINT/SIGTERM, then drains in-flight work within
// the configured shutdown timeout.
func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := newServer(handler, cfg)

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run builds the whole application and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Wordflow v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	wordbookRepo := wordbooks.NewRepository(db)
	wordRepo := words.NewRepository(db)
	studyRepo := study.NewRepository(db)
	importRepo := imports.NewRepository(db)
	settingsRepo := settings.NewRepository(db)

	importCtx, importCancel := context.WithCancel(context.Background())
	defer importCancel()
	supervisor := importer.NewSupervisor(importCtx, wordbookRepo, wordRepo, importRepo, importer.Config{
		Workers:      cfg.Importer.Workers,
		BatchSize:    cfg.Importer.BatchSize,
		MaxRowErrors: cfg.Importer.MaxRowErrors,
	})

	searchService := search.NewService(wordRepo)
	studyScheduler := scheduler.New(wordbookRepo, studyRepo, wordRepo, settingsRepo, nil)
	srsService := srs.NewService(studyRepo, wordRepo, nil)
	statsService := stats.NewService(wordbookRepo, studyRepo, studyScheduler, nil)

	// Background maintenance: import job retention and FTS index upkeep.
	var taskClient *tasks.Client
	var maintenance *tasks.Maintenance
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
			CleanupSchedule:   cfg.Tasks.CleanupSchedule,
			OptimizeSchedule:  cfg.Tasks.OptimizeSchedule,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCleanupImportJobsQueue(importRepo),
			tasks.NewOptimizeIndexQueue(db),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		maintenance = tasks.NewMaintenance(taskClient, taskCfg)
		if err := maintenance.Start(); err != nil {
			log.Fatalf("Failed to start maintenance schedule: %v", err)
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		DB:         db,
		Wordbooks:  wordbookRepo,
		Words:      wordRepo,
		Imports:    importRepo,
		Settings:   settingsRepo,
		Supervisor: supervisor,
		Search:     searchService,
		Scheduler:  studyScheduler,
		SRS:        srsService,
		Stats:      statsService,
		Version:    version,
	})

	handler := corsHandler(cfg).Handler(router)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		importCancel()
		if err := supervisor.Shutdown(ctx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}

	Serve(handler, cfg, onShutdown)
}

// corsHandler builds the allow-list from APP_ORIGINS; with no origins
// configured, cross-origin browsers are shut out and same-origin
// clients are unaffected.
func corsHandler(cfg *config.Config) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
