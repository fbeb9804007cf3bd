package task

import "github.com/google/uuid"

// OutcomeStatus tags the result payload of a finished job.
type OutcomeStatus string

// Possible outcome status values. The error family (error,
// processing_error, publish_error) marks terminal failures; everything else
// is a success variant, including degraded and no-op ones.
const (
	OutcomeSuccess          OutcomeStatus = "success"
	OutcomeError            OutcomeStatus = "error"
	OutcomePublished        OutcomeStatus = "published"
	OutcomeAlreadyPublished OutcomeStatus = "already_published"
	OutcomeProcessingError  OutcomeStatus = "processing_error"
	OutcomePublishError     OutcomeStatus = "publish_error"
	OutcomeBatchQueued      OutcomeStatus = "batch_queued"
	OutcomeNoItems          OutcomeStatus = "no_items"
	OutcomeHealthy          OutcomeStatus = "healthy"
)

// ChildRef points a batch parent's result at one spawned child job.
type ChildRef struct {
	URL        string    `json:"url,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	TaskID     uuid.UUID `json:"task_id"`
}

// Outcome is the serializable result payload of every job; it is exactly
// what a status query returns once the job is terminal. Only the fields
// relevant to the outcome's status are populated.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message,omitempty"`

	// Processing fields
	DocumentID    string `json:"document_id,omitempty"`
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	SchemaUsed    string `json:"schema_used,omitempty"`
	Summary       string `json:"summary,omitempty"`
	SummaryStatus string `json:"summary_status,omitempty"`

	// Publishing fields
	PostID  int    `json:"post_id,omitempty"`
	PostURL string `json:"post_url,omitempty"`

	// Batch fan-out fields: the handles of independently spawned children.
	// The parent never awaits these.
	Tasks []ChildRef `json:"tasks,omitempty"`
	Total int        `json:"total,omitempty"`

	// Health fields
	Sources []string `json:"sources,omitempty"`
}

// IsError reports whether the outcome is a structured terminal failure.
// Structured failures are never retried; retrying cannot change them.
func (o *Outcome) IsError() bool {
	switch o.Status {
	case OutcomeError, OutcomeProcessingError, OutcomePublishError:
		return true
	default:
		return false
	}
}

// ErrorMessage returns the message to report for a failed outcome.
func (o *Outcome) ErrorMessage() string {
	if o.Message != "" {
		return o.Message
	}
	return string(o.Status)
}
