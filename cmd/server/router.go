package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/newswire/internal/api"
	apiMiddleware "github.com/phrazzld/newswire/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Enqueue endpoints sit behind the API key; status and
// inspection endpoints stay open.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.engine, app.registry)
	contentHandler := api.NewContentHandler(app.articleStore, app.registry, app.config.Scraper.SchemaDir)
	healthHandler := api.NewHealthHandler(app.engine)

	r.Route("/api", func(r chi.Router) {
		// Mutating endpoints, guarded by the API key
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.APIKeyMiddleware(app.config.Server.APIKey))
			r.Post("/process", taskHandler.Process)
			r.Post("/process/batch", taskHandler.ProcessBatch)
			r.Post("/process-and-publish", taskHandler.ProcessAndPublish)
			r.Post("/publish", taskHandler.Publish)
			r.Post("/publish/batch", taskHandler.PublishBatch)
			r.Delete("/tasks/{taskID}", taskHandler.CancelTask)
		})

		// Read endpoints
		r.Get("/tasks/{taskID}", taskHandler.GetTask)
		r.Get("/schemas", contentHandler.ListSchemas)
		r.Get("/sources", contentHandler.ListSources)
		r.Get("/stats", contentHandler.GetStats)
		r.Get("/articles/recent", contentHandler.ListRecent)
		r.Get("/articles/published", contentHandler.ListPublished)
	})

	// Health check endpoint
	r.Get("/health", healthHandler.Health)

	return r
}
