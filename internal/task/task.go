package task

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Status represents the current state of a job. A job moves
// queued → running → {succeeded, failed}, looping through retrying back to
// queued while attempts remain. Canceled is terminal and only reachable
// from queued, retrying or early running.
type Status string

// Possible job status values
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Task type identifiers. Each has a registered handler, retry policy and
// rate ceiling; see DefaultDefinitions.
const (
	TypeProcess           = "article_process"
	TypeProcessBatch      = "article_process_batch"
	TypePublish           = "article_publish"
	TypePublishBatch      = "article_publish_batch"
	TypeProcessAndPublish = "article_process_publish"
	TypeHealthCheck       = "health_check"
)

// Common errors returned by the engine's handle-facing surface.
var (
	ErrUnknownHandle = errors.New("unknown job handle")
	ErrJobFinished   = errors.New("job already finished")
	ErrUnknownType   = errors.New("unknown task type")
	ErrEngineStopped = errors.New("engine is stopped")
	ErrHealthTimeout = errors.New("health check did not complete in time")
)

// Handle is the opaque reference returned at enqueue time and used to poll
// a job's status and result. It maps 1:1 to exactly one job.
type Handle = uuid.UUID

// Job is one independently scheduled, retryable unit of asynchronous work:
// a task type plus its serialized payload. Jobs are immutable after
// creation; all mutable lifecycle state lives in the engine's job table.
type Job struct {
	id       uuid.UUID
	taskType string
	payload  json.RawMessage
}

// NewJob creates a job of the given type with the given payload.
func NewJob(taskType string, payload json.RawMessage) *Job {
	return &Job{
		id:       uuid.New(),
		taskType: taskType,
		payload:  payload,
	}
}

// ID returns the job's unique identifier, which doubles as its handle.
func (j *Job) ID() uuid.UUID { return j.id }

// Type returns the task type identifier used for registry routing.
func (j *Job) Type() string { return j.taskType }

// Payload returns the serialized task arguments.
func (j *Job) Payload() json.RawMessage { return j.payload }

// HandlerFunc executes one job attempt.
//
// The return contract drives the retry machinery: a non-nil error is a
// transport or infrastructure fault and is retried per the task type's
// policy; a structured error outcome (see Outcome.IsError) is a terminal
// failure that retrying cannot change; any other outcome is terminal
// success, including degraded ones.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (*Outcome, error)
