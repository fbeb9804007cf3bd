package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/platform/logger"
	"github.com/phrazzld/newswire/internal/service"
)

// Job payloads. These are the engine's wire format between enqueue and
// handler; callers never build them directly.
type processPayload struct {
	URL        string `json:"url"`
	SchemaName string `json:"schema_name,omitempty"`
}

type processBatchPayload struct {
	URLs       []string `json:"urls"`
	SchemaName string   `json:"schema_name,omitempty"`
}

type publishPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

type publishBatchPayload struct {
	DocumentIDs    []uuid.UUID `json:"document_ids,omitempty"`
	PublishPending bool        `json:"publish_pending,omitempty"`
	Limit          int         `json:"limit,omitempty"`
}

// PendingFinder resolves the documents that still need publishing: not yet
// published and under the publish attempt ceiling.
type PendingFinder interface {
	FindPendingPublish(ctx context.Context, limit int) ([]*domain.Article, error)
}

// SourceLister reports the configured source names, used by the health
// check outcome.
type SourceLister interface {
	Sources() []string
}

// Handlers binds the task types to the application use cases. Batch
// handlers enqueue child jobs through the engine, which is why Handlers is
// constructed with the engine and registered afterwards.
type Handlers struct {
	engine   *Engine
	process  service.ProcessService
	publish  service.PublishService
	combined service.ProcessAndPublishService
	pending  PendingFinder
	sources  SourceLister
}

// NewHandlers creates the handler set over the given engine and use cases.
func NewHandlers(
	engine *Engine,
	process service.ProcessService,
	publish service.PublishService,
	combined service.ProcessAndPublishService,
	pending PendingFinder,
	sources SourceLister,
) *Handlers {
	return &Handlers{
		engine:   engine,
		process:  process,
		publish:  publish,
		combined: combined,
		pending:  pending,
		sources:  sources,
	}
}

// DefaultDefinitions returns the full task-type table: handler, retry
// policy and rate ceiling per type.
//
// Single-item types carry the real retry budgets. Batch parents allow one
// retry only, because the parent's own work is a cheap fan-out; the spawned
// children carry their own budgets. The health check never retries, a
// failed probe should report immediately.
func (h *Handlers) DefaultDefinitions() []Definition {
	return []Definition{
		{
			Type: TypeProcess,
			Policy: RetryPolicy{
				MaxAttempts: 3,
				BaseDelay:   60 * time.Second,
				Backoff:     BackoffExponential,
				Jitter:      true,
			},
			RatePerMinute: 10,
			Handler:       h.handleProcess,
		},
		{
			Type: TypeProcessBatch,
			Policy: RetryPolicy{
				MaxAttempts: 2,
				BaseDelay:   30 * time.Second,
				Backoff:     BackoffFixed,
			},
			Handler: h.handleProcessBatch,
		},
		{
			Type: TypePublish,
			Policy: RetryPolicy{
				MaxAttempts: 3,
				BaseDelay:   30 * time.Second,
				Backoff:     BackoffExponential,
			},
			RatePerMinute: 30,
			Handler:       h.handlePublish,
		},
		{
			Type: TypePublishBatch,
			Policy: RetryPolicy{
				MaxAttempts: 2,
				BaseDelay:   30 * time.Second,
				Backoff:     BackoffFixed,
			},
			Handler: h.handlePublishBatch,
		},
		{
			Type: TypeProcessAndPublish,
			Policy: RetryPolicy{
				MaxAttempts: 3,
				BaseDelay:   60 * time.Second,
				Backoff:     BackoffExponential,
			},
			RatePerMinute: 5,
			Handler:       h.handleProcessAndPublish,
		},
		{
			Type: TypeHealthCheck,
			Policy: RetryPolicy{
				MaxAttempts: 1,
			},
			Handler: h.handleHealthCheck,
		},
	}
}

// Register installs every default definition into the registry.
func (h *Handlers) Register(registry *Registry) error {
	for _, def := range h.DefaultDefinitions() {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register task type: %w", err)
		}
	}
	return nil
}

func (h *Handlers) handleProcess(ctx context.Context, payload json.RawMessage) (*Outcome, error) {
	var p processPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return &Outcome{
			Status:  OutcomeError,
			Message: fmt.Sprintf("invalid payload: %v", err),
		}, nil
	}

	output, err := h.process.Execute(ctx, service.ProcessInput{
		URL:        p.URL,
		SchemaName: p.SchemaName,
	})
	if err != nil {
		return nil, err
	}

	if output.Status == service.StatusError {
		return &Outcome{
			Status:  OutcomeError,
			URL:     output.URL,
			Message: output.Error,
		}, nil
	}
	return &Outcome{
		Status:        OutcomeSuccess,
		DocumentID:    output.DocumentID.String(),
		URL:           output.URL,
		Title:         output.Title,
		SchemaUsed:    output.SchemaUsed,
		Summary:       output.Summary,
		SummaryStatus: string(output.SummaryStatus),
	}, nil
}

// handleProcessBatch fans out one processing job per URL. Children are
// fully independent: they retry on their own budgets and one child's
// failure never touches its siblings. The parent reports the spawned
// handles and finishes; it does not await the children.
func (h *Handlers) handleProcessBatch(ctx context.Context, payload json.RawMessage) (*Outcome, error) {
	var p processBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return &Outcome{
			Status:  OutcomeError,
			Message: fmt.Sprintf("invalid payload: %v", err),
		}, nil
	}

	log := logger.FromContext(ctx)
	children := make([]ChildRef, 0, len(p.URLs))
	for _, url := range p.URLs {
		handle, err := h.engine.EnqueueProcess(url, p.SchemaName)
		if err != nil {
			// Children spawned so far keep running. A parent retry after
			// this fault may re-spawn them, which the URL upsert makes safe.
			return nil, fmt.Errorf("failed to enqueue child for %s: %w", url, err)
		}
		children = append(children, ChildRef{URL: url, TaskID: handle})
	}

	log.Info("process batch fanned out", "children", len(children))
	return &Outcome{
		Status: OutcomeBatchQueued,
		Tasks:  children,
		Total:  len(children),
	}, nil
}

func (h *Handlers) handlePublish(ctx context.Context, payload json.RawMessage) (*Outcome, error) {
	var p publishPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return &Outcome{
			Status:  OutcomeError,
			Message: fmt.Sprintf("invalid payload: %v", err),
		}, nil
	}

	output, err := h.publish.Execute(ctx, p.DocumentID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		DocumentID: output.DocumentID.String(),
		PostID:     output.PostID,
		PostURL:    output.PostURL,
	}
	switch output.Status {
	case service.StatusPublished:
		outcome.Status = OutcomePublished
	case service.StatusAlreadyPublished:
		outcome.Status = OutcomeAlreadyPublished
	default:
		outcome.Status = OutcomeError
		outcome.Message = output.Error
	}
	return outcome, nil
}

// handlePublishBatch resolves the target document set, either the explicit
// id list or the store's pending-publish query, then fans out one publish
// job per document.
func (h *Handlers) handlePublishBatch(ctx context.Context, payload json.RawMessage) (*Outcome, error) {
	var p publishBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return &Outcome{
			Status:  OutcomeError,
			Message: fmt.Sprintf("invalid payload: %v", err),
		}, nil
	}

	log := logger.FromContext(ctx)

	ids := p.DocumentIDs
	if p.PublishPending {
		limit := p.Limit
		if limit <= 0 {
			limit = DefaultPublishPending
		}
		articles, err := h.pending.FindPendingPublish(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve pending documents: %w", err)
		}
		ids = make([]uuid.UUID, 0, len(articles))
		for _, article := range articles {
			ids = append(ids, article.ID)
		}
	}

	if len(ids) == 0 {
		log.Info("publish batch found nothing to publish")
		return &Outcome{
			Status:  OutcomeNoItems,
			Message: "no pending documents to publish",
		}, nil
	}

	children := make([]ChildRef, 0, len(ids))
	for _, id := range ids {
		handle, err := h.engine.EnqueuePublish(id)
		if err != nil {
			// Already-spawned children keep running; a parent retry is safe
			// because publishing short-circuits on the published flag.
			return nil, fmt.Errorf("failed to enqueue child for %s: %w", id, err)
		}
		children = append(children, ChildRef{DocumentID: id.String(), TaskID: handle})
	}

	log.Info("publish batch fanned out", "children", len(children))
	return &Outcome{
		Status: OutcomeBatchQueued,
		Tasks:  children,
		Total:  len(children),
	}, nil
}

func (h *Handlers) handleProcessAndPublish(ctx context.Context, payload json.RawMessage) (*Outcome, error) {
	var p processPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return &Outcome{
			Status:  OutcomeError,
			Message: fmt.Sprintf("invalid payload: %v", err),
		}, nil
	}

	output, err := h.combined.Execute(ctx, service.ProcessInput{
		URL:        p.URL,
		SchemaName: p.SchemaName,
	})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		URL:           output.URL,
		Title:         output.Title,
		SchemaUsed:    output.SchemaUsed,
		Summary:       output.Summary,
		SummaryStatus: string(output.SummaryStatus),
		PostID:        output.PostID,
		PostURL:       output.PostURL,
	}
	if output.DocumentID != uuid.Nil {
		outcome.DocumentID = output.DocumentID.String()
	}
	switch output.Status {
	case service.StatusPublished:
		outcome.Status = OutcomePublished
	case service.StatusAlreadyPublished:
		outcome.Status = OutcomeAlreadyPublished
	case service.StatusProcessingError:
		outcome.Status = OutcomeProcessingError
		outcome.Message = output.Error
	default:
		outcome.Status = OutcomePublishError
		outcome.Message = output.Error
	}
	return outcome, nil
}

// handleHealthCheck proves the queue and worker path are live. It reports
// the configured sources so the probe doubles as a wiring check.
func (h *Handlers) handleHealthCheck(_ context.Context, _ json.RawMessage) (*Outcome, error) {
	outcome := &Outcome{Status: OutcomeHealthy}
	if h.sources != nil {
		outcome.Sources = h.sources.Sources()
	}
	return outcome, nil
}
