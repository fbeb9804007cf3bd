package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/api/shared"
	"github.com/phrazzld/newswire/internal/scraper"
	"github.com/phrazzld/newswire/internal/task"
)

// TaskEngine is the orchestration surface the HTTP handlers depend on.
type TaskEngine interface {
	EnqueueProcess(url, schemaName string) (task.Handle, error)
	EnqueueProcessBatch(urls []string, schemaName string) (task.Handle, error)
	EnqueuePublish(documentID uuid.UUID) (task.Handle, error)
	EnqueuePublishBatch(documentIDs []uuid.UUID, publishPending bool, limit int) (task.Handle, error)
	EnqueueProcessAndPublish(url, schemaName string) (task.Handle, error)
	Status(handle task.Handle) (*task.JobStatus, error)
	Cancel(handle task.Handle) error
	HealthCheck(ctx context.Context) (*task.Outcome, error)
}

// SourceDirectory resolves schema names to registered extractors, used to
// reject unknown schemas before any job is enqueued.
type SourceDirectory interface {
	ForSource(name string) (scraper.Extractor, bool)
	Sources() []string
}

// ProcessRequest represents the request body for processing a single URL
type ProcessRequest struct {
	URL        string `json:"url"        validate:"required,url"`
	SchemaName string `json:"schema_name,omitempty"`
}

// ProcessBatchRequest represents the request body for processing a batch of URLs
type ProcessBatchRequest struct {
	URLs       []string `json:"urls"       validate:"required,min=1,max=50,dive,required,url"`
	SchemaName string   `json:"schema_name,omitempty"`
}

// PublishRequest represents the request body for publishing a stored document
type PublishRequest struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
}

// PublishBatchRequest represents the request body for batch publishing.
// DocumentIDs and PublishPending are mutually exclusive.
type PublishBatchRequest struct {
	DocumentIDs    []string `json:"document_ids,omitempty"    validate:"omitempty,max=100,dive,uuid"`
	PublishPending bool     `json:"publish_pending,omitempty"`
	Limit          int      `json:"limit,omitempty"           validate:"omitempty,min=1,max=100"`
}

// TaskAcceptedResponse acknowledges an enqueued job with the handle to
// poll for its result.
type TaskAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Type   string `json:"type"`
	State  string `json:"state"`
}

// TaskHandler handles job submission and lifecycle HTTP requests
type TaskHandler struct {
	engine  TaskEngine
	sources SourceDirectory
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(engine TaskEngine, sources SourceDirectory) *TaskHandler {
	return &TaskHandler{
		engine:  engine,
		sources: sources,
	}
}

// Process handles POST /api/process requests
func (h *TaskHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if !h.schemaKnown(req.SchemaName) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown schema: "+req.SchemaName)
		return
	}

	handle, err := h.engine.EnqueueProcess(req.URL, req.SchemaName)
	if err != nil {
		respondEnqueueError(w, r, err)
		return
	}
	respondAccepted(w, r, handle, task.TypeProcess)
}

// ProcessBatch handles POST /api/process/batch requests
func (h *TaskHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req ProcessBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if !h.schemaKnown(req.SchemaName) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown schema: "+req.SchemaName)
		return
	}

	handle, err := h.engine.EnqueueProcessBatch(req.URLs, req.SchemaName)
	if err != nil {
		respondEnqueueError(w, r, err)
		return
	}
	respondAccepted(w, r, handle, task.TypeProcessBatch)
}

// ProcessAndPublish handles POST /api/process-and-publish requests
func (h *TaskHandler) ProcessAndPublish(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if !h.schemaKnown(req.SchemaName) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown schema: "+req.SchemaName)
		return
	}

	handle, err := h.engine.EnqueueProcessAndPublish(req.URL, req.SchemaName)
	if err != nil {
		respondEnqueueError(w, r, err)
		return
	}
	respondAccepted(w, r, handle, task.TypeProcessAndPublish)
}

// Publish handles POST /api/publish requests
func (h *TaskHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid document ID")
		return
	}

	handle, err := h.engine.EnqueuePublish(documentID)
	if err != nil {
		respondEnqueueError(w, r, err)
		return
	}
	respondAccepted(w, r, handle, task.TypePublish)
}

// PublishBatch handles POST /api/publish/batch requests
func (h *TaskHandler) PublishBatch(w http.ResponseWriter, r *http.Request) {
	var req PublishBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.PublishPending && len(req.DocumentIDs) > 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"document_ids and publish_pending are mutually exclusive")
		return
	}
	if !req.PublishPending && len(req.DocumentIDs) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"either document_ids or publish_pending is required")
		return
	}

	documentIDs := make([]uuid.UUID, 0, len(req.DocumentIDs))
	for _, raw := range req.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid document ID: "+raw)
			return
		}
		documentIDs = append(documentIDs, id)
	}

	handle, err := h.engine.EnqueuePublishBatch(documentIDs, req.PublishPending, req.Limit)
	if err != nil {
		respondEnqueueError(w, r, err)
		return
	}
	respondAccepted(w, r, handle, task.TypePublishBatch)
}

// GetTask handles GET /api/tasks/{taskID} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	status, err := h.engine.Status(handle)
	if err != nil {
		if errors.Is(err, task.ErrUnknownHandle) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to get task status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// CancelTask handles DELETE /api/tasks/{taskID} requests
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	if err := h.engine.Cancel(handle); err != nil {
		switch {
		case errors.Is(err, task.ErrUnknownHandle):
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		case errors.Is(err, task.ErrJobFinished):
			shared.RespondWithError(w, r, http.StatusConflict, "Task already finished")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to cancel task", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"task_id": handle.String(),
		"state":   "cancel_requested",
	})
}

// schemaKnown reports whether the schema name resolves to a registered
// extractor. The empty name means "pick by URL" and is always allowed.
func (h *TaskHandler) schemaKnown(name string) bool {
	if name == "" {
		return true
	}
	_, ok := h.sources.ForSource(name)
	return ok
}

// parseTaskID extracts and parses the task ID path parameter, responding
// with 400 on malformed input.
func parseTaskID(w http.ResponseWriter, r *http.Request) (task.Handle, bool) {
	raw := chi.URLParam(r, "taskID")
	handle, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return handle, true
}

// respondAccepted acknowledges an enqueued job.
func respondAccepted(w http.ResponseWriter, r *http.Request, handle task.Handle, taskType string) {
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: handle.String(),
		Type:   taskType,
		State:  string(task.StatusQueued),
	})
}

// respondEnqueueError maps enqueue failures to status codes: a stopped
// engine or full queue means the service cannot accept work right now.
func respondEnqueueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, task.ErrEngineStopped), errors.Is(err, task.ErrQueueClosed):
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
			"Service is shutting down", err)
	case errors.Is(err, task.ErrQueueFull):
		shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
			"Queue is full, try again later", err)
	case errors.Is(err, task.ErrUnknownType):
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Task type not registered", err)
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
	}
}
