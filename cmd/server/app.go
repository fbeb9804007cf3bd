package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/phrazzld/newswire/internal/platform/gemini"
	"github.com/phrazzld/newswire/internal/platform/postgres"
	"github.com/phrazzld/newswire/internal/publisher"
	"github.com/phrazzld/newswire/internal/scraper"
	"github.com/phrazzld/newswire/internal/service"
	"github.com/phrazzld/newswire/internal/store"
	"github.com/phrazzld/newswire/internal/task"
)

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	articleStore store.ArticleStore
	registry     *scraper.Registry

	engine *task.Engine
}

// buildApplication constructs the full dependency graph: database, stores,
// extractors, the summarizer and publish sink, the use cases, and finally
// the task engine with its handler table.
func buildApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	articleStore := postgres.NewPostgresArticleStore(db, logger)

	registry, err := scraper.NewRegistryFromDir(
		cfg.Scraper.SchemaDir,
		&http.Client{Timeout: cfg.Scraper.Timeout},
		cfg.Scraper.Timeout,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build extractor registry: %w", err)
	}
	logger.Info("extractor registry loaded", "sources", registry.Sources())

	summarizer, err := gemini.NewSummarizer(context.Background(), logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer: %w", err)
	}

	sink := publisher.NewWordPressSink(cfg.WordPress, logger)

	processService := service.NewProcessService(registry, summarizer, articleStore)
	publishService := service.NewPublishService(articleStore, sink)
	combinedService := service.NewProcessAndPublishService(processService, publishService)

	taskRegistry := task.NewRegistry()
	engineConfig := task.DefaultEngineConfig()
	engineConfig.WorkerCount = cfg.Task.WorkerCount
	engineConfig.QueueSize = cfg.Task.QueueSize
	engine := task.NewEngine(taskRegistry, engineConfig, logger)

	handlers := task.NewHandlers(
		engine,
		processService,
		publishService,
		combinedService,
		articleStore,
		registry,
	)
	if err := handlers.Register(taskRegistry); err != nil {
		return nil, fmt.Errorf("failed to register task handlers: %w", err)
	}

	return &application{
		config:       cfg,
		logger:       logger,
		db:           db,
		articleStore: articleStore,
		registry:     registry,
		engine:       engine,
	}, nil
}

// run starts the engine and the HTTP server, blocking until shutdown.
func (app *application) run() error {
	app.engine.Start()
	defer app.cleanup()

	return app.startHTTPServer(context.Background(), app.setupRouter())
}

// cleanup releases resources in reverse dependency order. The engine stops
// first so no job can hit a closed database connection.
func (app *application) cleanup() {
	app.engine.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
}
