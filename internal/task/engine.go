package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/platform/logger"
)

// Batch bounds, validated at enqueue time. Oversized batches never become
// jobs.
const (
	MaxProcessBatchSize   = 50
	MaxPublishBatchLimit  = 100
	DefaultPublishPending = 50
)

// EngineConfig holds configuration for the task engine.
type EngineConfig struct {
	// WorkerCount determines how many jobs run in parallel. All engine
	// contracts hold for any value >= 1.
	WorkerCount int

	// QueueSize is the buffer size of the in-memory job queue.
	QueueSize int

	// ResultRetention is how long terminal jobs stay queryable by handle
	// before the janitor prunes them.
	ResultRetention time.Duration

	// JanitorInterval is how often pruning runs.
	JanitorInterval time.Duration

	// HealthCheckTimeout bounds HealthCheck when the caller's context
	// carries no earlier deadline.
	HealthCheckTimeout time.Duration
}

// DefaultEngineConfig returns an EngineConfig with reasonable defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WorkerCount:        2,
		QueueSize:          100,
		ResultRetention:    time.Hour,
		JanitorInterval:    5 * time.Minute,
		HealthCheckTimeout: 5 * time.Second,
	}
}

// JobStatus is the snapshot returned by a status poll. Result is populated
// only in terminal success, Error only in terminal failure.
type JobStatus struct {
	Handle   Handle   `json:"task_id"`
	Type     string   `json:"type"`
	State    Status   `json:"state"`
	Attempts int      `json:"attempts"`
	Result   *Outcome `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// jobRecord is the engine's mutable lifecycle state for one job. All fields
// are guarded by the engine mutex; done is closed exactly once when the job
// reaches a terminal state.
type jobRecord struct {
	job             *Job
	state           Status
	attempts        int
	outcome         *Outcome
	errMsg          string
	cancelRequested bool
	cancelRun       context.CancelFunc
	retryTimer      *time.Timer
	rateReserved    bool
	done            chan struct{}
	enqueuedAt      time.Time
	finishedAt      time.Time
}

// Engine is the task orchestration core: it translates logical work
// requests into independently scheduled jobs, tracks each job's lifecycle
// in an in-memory job table, applies per-type retry policies and rate
// ceilings, and exposes status, cancellation and health by handle.
//
// The engine holds no lock across a handler invocation; all cross-job
// coordination happens through the store the handlers share.
type Engine struct {
	registry *Registry
	queue    *Queue
	pool     *WorkerPool
	config   EngineConfig
	logger   *slog.Logger

	mu      sync.RWMutex
	jobs    map[uuid.UUID]*jobRecord
	stopped bool

	janitorCtx    context.Context
	janitorCancel context.CancelFunc
	janitorWG     sync.WaitGroup
}

// NewEngine creates an engine over the given task-type registry. Call
// Start before enqueuing.
func NewEngine(registry *Registry, config EngineConfig, log *slog.Logger) *Engine {
	if config.WorkerCount < 1 {
		config.WorkerCount = DefaultEngineConfig().WorkerCount
	}
	if config.QueueSize < 1 {
		config.QueueSize = DefaultEngineConfig().QueueSize
	}
	if config.ResultRetention <= 0 {
		config.ResultRetention = DefaultEngineConfig().ResultRetention
	}
	if config.JanitorInterval <= 0 {
		config.JanitorInterval = DefaultEngineConfig().JanitorInterval
	}
	if config.HealthCheckTimeout <= 0 {
		config.HealthCheckTimeout = DefaultEngineConfig().HealthCheckTimeout
	}

	janitorCtx, janitorCancel := context.WithCancel(context.Background())

	engine := &Engine{
		registry:      registry,
		queue:         NewQueue(config.QueueSize, log),
		config:        config,
		logger:        log,
		jobs:          make(map[uuid.UUID]*jobRecord),
		janitorCtx:    janitorCtx,
		janitorCancel: janitorCancel,
	}
	engine.pool = NewWorkerPool(engine.queue, engine, config.WorkerCount, log)

	return engine
}

// Start launches the worker pool and the result janitor.
func (e *Engine) Start() {
	e.pool.Start()

	e.janitorWG.Add(1)
	go e.janitor()
}

// Stop shuts the engine down: new enqueues are rejected, pending retries
// are failed, in-flight jobs run to completion.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	for _, rec := range e.jobs {
		// Covers retry waits and rate-limit waits alike
		if rec.retryTimer != nil {
			rec.retryTimer.Stop()
			rec.retryTimer = nil
			e.finishLocked(rec, StatusFailed, nil, "engine stopped before retry")
		}
	}
	e.mu.Unlock()

	e.pool.Stop()
	e.queue.Close()

	e.janitorCancel()
	e.janitorWG.Wait()

	e.logger.Info("task engine stopped")
}

// EnqueueProcess schedules one processing job for the URL. The returned
// handle resolves to a success outcome carrying the document identity, or
// to a terminal failure.
func (e *Engine) EnqueueProcess(url, schemaName string) (Handle, error) {
	return e.enqueue(TypeProcess, processPayload{URL: url, SchemaName: schemaName})
}

// EnqueueProcessBatch schedules a parent job that fans out one processing
// job per URL. The parent's outcome lists the child handles; it never
// awaits the children. Cardinality outside 1..MaxProcessBatchSize is
// rejected here, before any job exists.
func (e *Engine) EnqueueProcessBatch(urls []string, schemaName string) (Handle, error) {
	if len(urls) == 0 {
		return uuid.Nil, fmt.Errorf("batch must contain at least one URL")
	}
	if len(urls) > MaxProcessBatchSize {
		return uuid.Nil, fmt.Errorf("batch exceeds %d URLs", MaxProcessBatchSize)
	}
	return e.enqueue(TypeProcessBatch, processBatchPayload{URLs: urls, SchemaName: schemaName})
}

// EnqueuePublish schedules one publish job for a stored document.
func (e *Engine) EnqueuePublish(documentID uuid.UUID) (Handle, error) {
	return e.enqueue(TypePublish, publishPayload{DocumentID: documentID})
}

// EnqueuePublishBatch schedules a parent job that fans out publish jobs.
// The two modes are mutually exclusive: an explicit document id list, or
// pending reconciliation, which resolves the id set from the store's
// pending-publish query bounded by limit.
func (e *Engine) EnqueuePublishBatch(documentIDs []uuid.UUID, publishPending bool, limit int) (Handle, error) {
	if publishPending && len(documentIDs) > 0 {
		return uuid.Nil, fmt.Errorf("document ids and pending mode are mutually exclusive")
	}
	if !publishPending && len(documentIDs) == 0 {
		return uuid.Nil, fmt.Errorf("batch requires document ids or pending mode")
	}
	if limit < 0 || limit > MaxPublishBatchLimit {
		return uuid.Nil, fmt.Errorf("limit must be between 0 and %d", MaxPublishBatchLimit)
	}
	if limit == 0 {
		limit = DefaultPublishPending
	}
	return e.enqueue(TypePublishBatch, publishBatchPayload{
		DocumentIDs:    documentIDs,
		PublishPending: publishPending,
		Limit:          limit,
	})
}

// EnqueueProcessAndPublish schedules one job that processes the URL and,
// if processing succeeded, publishes the stored document inline.
func (e *Engine) EnqueueProcessAndPublish(url, schemaName string) (Handle, error) {
	return e.enqueue(TypeProcessAndPublish, processPayload{URL: url, SchemaName: schemaName})
}

// Status returns a non-blocking snapshot of the job's lifecycle state.
func (e *Engine) Status(handle Handle) (*JobStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.jobs[handle]
	if !ok {
		return nil, ErrUnknownHandle
	}

	status := &JobStatus{
		Handle:   handle,
		Type:     rec.job.Type(),
		State:    rec.state,
		Attempts: rec.attempts,
	}
	switch rec.state {
	case StatusSucceeded:
		status.Result = rec.outcome
	case StatusFailed, StatusCanceled:
		status.Error = rec.errMsg
	}
	return status, nil
}

// Cancel requests best-effort termination of the job. A queued job is
// dropped at pickup, a retry or rate-limit wait is aborted immediately, a
// running job has its context canceled. There is no guarantee once the job
// is past irrevocable side effects; a job that finishes normally despite
// the request keeps its real outcome.
func (e *Engine) Cancel(handle Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.jobs[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if rec.state.Terminal() {
		return fmt.Errorf("%w: job is %s", ErrJobFinished, rec.state)
	}

	rec.cancelRequested = true
	switch rec.state {
	case StatusRetrying:
		if rec.retryTimer != nil {
			rec.retryTimer.Stop()
			rec.retryTimer = nil
		}
		e.finishLocked(rec, StatusCanceled, nil, "canceled while waiting to retry")
	case StatusQueued:
		// A queued job with a timer is parked on a rate-limit slot; free
		// it now. A job still in the queue is dropped at pickup instead.
		if rec.retryTimer != nil {
			rec.retryTimer.Stop()
			rec.retryTimer = nil
			e.finishLocked(rec, StatusCanceled, nil, "canceled while rate limited")
		}
	case StatusRunning:
		if rec.cancelRun != nil {
			rec.cancelRun()
		}
	}

	return nil
}

// HealthCheck runs a trivial job through the full queue/worker path and
// waits for it, bounded by the caller's deadline or the configured
// timeout. A timeout means the queue or its workers are not live.
func (e *Engine) HealthCheck(ctx context.Context) (*Outcome, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.HealthCheckTimeout)
		defer cancel()
	}

	handle, err := e.enqueue(TypeHealthCheck, struct{}{})
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	rec := e.jobs[handle]
	e.mu.RUnlock()

	select {
	case <-rec.done:
		e.mu.RLock()
		defer e.mu.RUnlock()
		if rec.state != StatusSucceeded {
			return nil, fmt.Errorf("health check job %s: %s", rec.state, rec.errMsg)
		}
		return rec.outcome, nil
	case <-ctx.Done():
		return nil, ErrHealthTimeout
	}
}

// ExecuteJob runs one attempt of the job: cancellation gate, rate gate,
// handler invocation, then the retry-or-finish decision. Called by pool
// workers.
func (e *Engine) ExecuteJob(poolCtx context.Context, job *Job) {
	e.mu.Lock()
	rec, ok := e.jobs[job.ID()]
	if !ok {
		// Pruned or never tracked; nothing to account the work against
		e.mu.Unlock()
		return
	}
	if rec.cancelRequested {
		e.finishLocked(rec, StatusCanceled, nil, "canceled before start")
		e.mu.Unlock()
		return
	}
	def, registered := e.registry.get(job.Type())
	if !registered {
		e.finishLocked(rec, StatusFailed, nil, fmt.Sprintf("no handler registered for task type %q", job.Type()))
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	// Rate gate: protects the external collaborator behind this task type.
	// A job whose start slot lies in the future goes back on a timer with
	// its slot reserved instead of parking the worker, so a backlog of one
	// rate-limited type cannot starve the pool for every other type.
	if def.limiter != nil {
		e.mu.Lock()
		reserved := rec.rateReserved
		rec.rateReserved = false
		e.mu.Unlock()

		if !reserved {
			reservation := def.limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				id := job.ID()
				e.mu.Lock()
				if rec.cancelRequested {
					reservation.Cancel()
					e.finishLocked(rec, StatusCanceled, nil, "canceled before start")
					e.mu.Unlock()
					return
				}
				rec.rateReserved = true
				rec.retryTimer = time.AfterFunc(delay, func() { e.requeue(id) })
				e.mu.Unlock()
				return
			}
		}
	}

	runCtx, cancelRun := context.WithCancel(poolCtx)
	defer cancelRun()

	jobLogger := e.logger.With("job_id", job.ID(), "task_type", job.Type())
	runCtx = logger.WithLogger(runCtx, jobLogger)

	e.mu.Lock()
	rec.state = StatusRunning
	rec.attempts++
	attempt := rec.attempts
	rec.cancelRun = cancelRun
	e.mu.Unlock()

	jobLogger.Info("job started",
		"attempt", attempt,
		"max_attempts", def.Policy.MaxAttempts)

	outcome, err := def.Handler(runCtx, job.Payload())

	e.mu.Lock()
	defer e.mu.Unlock()
	rec.cancelRun = nil

	if err != nil {
		if rec.cancelRequested {
			jobLogger.Info("job canceled", "attempt", attempt)
			e.finishLocked(rec, StatusCanceled, nil, "canceled")
			return
		}
		if e.stopped {
			e.finishLocked(rec, StatusFailed, nil, err.Error())
			return
		}
		if def.Policy.ShouldRetry(rec.attempts) {
			delay := def.Policy.Delay(rec.attempts)
			rec.state = StatusRetrying
			jobLogger.Warn("job attempt failed, retry scheduled",
				"error", err,
				"attempt", attempt,
				"retry_delay", delay)
			id := job.ID()
			rec.retryTimer = time.AfterFunc(delay, func() { e.requeue(id) })
			return
		}
		jobLogger.Error("job failed after exhausting attempts",
			"error", err,
			"attempts", rec.attempts)
		e.finishLocked(rec, StatusFailed, nil, err.Error())
		return
	}

	if outcome == nil {
		// Handlers must return an outcome on the nil-error path; treat a
		// missing one as a handler bug, not a retriable fault.
		e.finishLocked(rec, StatusFailed, nil, "handler returned no outcome")
		return
	}

	if outcome.IsError() {
		jobLogger.Warn("job failed with structured error",
			"outcome_status", outcome.Status,
			"message", outcome.ErrorMessage())
		e.finishLocked(rec, StatusFailed, outcome, outcome.ErrorMessage())
		return
	}

	jobLogger.Info("job succeeded", "outcome_status", outcome.Status)
	e.finishLocked(rec, StatusSucceeded, outcome, "")
}

// enqueue creates the job record and pushes the job onto the queue.
func (e *Engine) enqueue(taskType string, payload any) (Handle, error) {
	if _, ok := e.registry.get(taskType); !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownType, taskType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := NewJob(taskType, raw)
	rec := &jobRecord{
		job:        job,
		state:      StatusQueued,
		done:       make(chan struct{}),
		enqueuedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return uuid.Nil, ErrEngineStopped
	}
	e.jobs[job.ID()] = rec
	e.mu.Unlock()

	if err := e.queue.Enqueue(job); err != nil {
		e.mu.Lock()
		delete(e.jobs, job.ID())
		e.mu.Unlock()
		return uuid.Nil, err
	}

	return job.ID(), nil
}

// requeue pushes a job back on the queue after its retry delay has passed.
func (e *Engine) requeue(id uuid.UUID) {
	e.mu.Lock()
	rec, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	rec.retryTimer = nil
	if rec.cancelRequested {
		e.finishLocked(rec, StatusCanceled, nil, "canceled while waiting to retry")
		e.mu.Unlock()
		return
	}
	if e.stopped {
		e.finishLocked(rec, StatusFailed, nil, "engine stopped before retry")
		e.mu.Unlock()
		return
	}
	rec.state = StatusQueued
	job := rec.job
	e.mu.Unlock()

	if err := e.queue.Enqueue(job); err != nil {
		e.mu.Lock()
		e.finishLocked(rec, StatusFailed, nil, fmt.Sprintf("failed to requeue for retry: %v", err))
		e.mu.Unlock()
	}
}

// finishLocked moves the record to a terminal state. Callers must hold the
// engine mutex.
func (e *Engine) finishLocked(rec *jobRecord, state Status, outcome *Outcome, errMsg string) {
	if rec.state.Terminal() {
		return
	}
	rec.state = state
	rec.outcome = outcome
	rec.errMsg = errMsg
	rec.finishedAt = time.Now().UTC()
	close(rec.done)
}

// janitor periodically prunes terminal jobs past the retention window so
// the job table cannot grow without bound.
func (e *Engine) janitor() {
	defer e.janitorWG.Done()

	ticker := time.NewTicker(e.config.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.janitorCtx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-e.config.ResultRetention)

			e.mu.Lock()
			pruned := 0
			for id, rec := range e.jobs {
				if rec.state.Terminal() && rec.finishedAt.Before(cutoff) {
					delete(e.jobs, id)
					pruned++
				}
			}
			e.mu.Unlock()

			if pruned > 0 {
				e.logger.Debug("pruned finished jobs", "count", pruned)
			}
		}
	}
}
