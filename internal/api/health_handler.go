package api

import (
	"net/http"

	"github.com/phrazzld/newswire/internal/api/shared"
)

// HealthHandler serves the liveness probe. The probe runs a real job
// through the queue and worker pool, so a green response means the whole
// asynchronous path is live, not just the HTTP listener.
type HealthHandler struct {
	engine TaskEngine
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(engine TaskEngine) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.engine.HealthCheck(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
			"Task engine is not responding", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}
