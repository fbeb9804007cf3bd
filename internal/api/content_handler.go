package api

import (
	"net/http"
	"strconv"

	"github.com/phrazzld/newswire/internal/api/shared"
	"github.com/phrazzld/newswire/internal/scraper"
	"github.com/phrazzld/newswire/internal/store"
)

// maxListLimit caps the limit query parameter on listing endpoints.
const maxListLimit = 100

// ContentHandler serves the read-only inspection endpoints: configured
// schemas and sources, publication stats and article listings.
type ContentHandler struct {
	articleStore store.ArticleStore
	sources      SourceDirectory
	schemaDir    string
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(articleStore store.ArticleStore, sources SourceDirectory, schemaDir string) *ContentHandler {
	return &ContentHandler{
		articleStore: articleStore,
		sources:      sources,
		schemaDir:    schemaDir,
	}
}

// ListSchemas handles GET /api/schemas requests. It reads the schema
// directory so schemas dropped in after startup are visible, even though
// extractors for them only load on restart.
func (h *ContentHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := scraper.ListSchemas(h.schemaDir)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list schemas", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"schemas": schemas,
		"total":   len(schemas),
	})
}

// ListSources handles GET /api/sources requests, reporting the sources
// with a live extractor.
func (h *ContentHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources := h.sources.Sources()
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

// GetStats handles GET /api/stats requests.
func (h *ContentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.articleStore.Stats(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to compute stats", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// ListRecent handles GET /api/articles/recent requests.
func (h *ContentHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	articles, err := h.articleStore.ListRecent(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list articles", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"articles": articles,
		"total":    len(articles),
	})
}

// ListPublished handles GET /api/articles/published requests.
func (h *ContentHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	articles, err := h.articleStore.ListPublished(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list articles", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"articles": articles,
		"total":    len(articles),
	})
}

// parseLimit reads the limit query parameter, responding with 400 when it
// is not a positive integer within bounds.
func parseLimit(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxListLimit {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"limit must be an integer between 1 and "+strconv.Itoa(maxListLimit))
		return 0, false
	}
	return limit, true
}
