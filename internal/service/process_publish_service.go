package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/domain"
)

// ProcessAndPublishOutput is the combined result of processing a URL and
// immediately publishing the stored document. Status is StatusPublished on
// full success, StatusProcessingError or StatusPublishError when the
// respective half failed terminally, or StatusAlreadyPublished when the
// document had been published before this run.
type ProcessAndPublishOutput struct {
	Status        string               `json:"status"`
	DocumentID    uuid.UUID            `json:"document_id,omitempty"`
	URL           string               `json:"url,omitempty"`
	Title         string               `json:"title,omitempty"`
	SchemaUsed    string               `json:"schema_used,omitempty"`
	Summary       string               `json:"summary,omitempty"`
	SummaryStatus domain.SummaryStatus `json:"summary_status,omitempty"`
	PostID        int                  `json:"post_id,omitempty"`
	PostURL       string               `json:"post_url,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// ProcessAndPublishService runs the processing use case and, only if it
// succeeded, the publish use case, as one unit of work.
type ProcessAndPublishService interface {
	Execute(ctx context.Context, input ProcessInput) (*ProcessAndPublishOutput, error)
}

// NewProcessAndPublishService composes the two underlying use cases.
func NewProcessAndPublishService(
	process ProcessService,
	publish PublishService,
) ProcessAndPublishService {
	return &processAndPublishImpl{
		process: process,
		publish: publish,
	}
}

type processAndPublishImpl struct {
	process ProcessService
	publish PublishService
}

// Execute follows the same error contract as the underlying use cases:
// non-nil error means transport fault (retriable end to end), structured
// failures are terminal. A retry after a successful first half is safe
// because processing upserts by URL and publishing short-circuits on the
// published flag.
func (s *processAndPublishImpl) Execute(
	ctx context.Context,
	input ProcessInput,
) (*ProcessAndPublishOutput, error) {
	processed, err := s.process.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	if processed.Status == StatusError {
		return &ProcessAndPublishOutput{
			Status: StatusProcessingError,
			URL:    input.URL,
			Error:  processed.Error,
		}, nil
	}

	published, err := s.publish.Execute(ctx, processed.DocumentID)
	if err != nil {
		return nil, err
	}

	output := &ProcessAndPublishOutput{
		DocumentID:    processed.DocumentID,
		URL:           processed.URL,
		Title:         processed.Title,
		SchemaUsed:    processed.SchemaUsed,
		Summary:       processed.Summary,
		SummaryStatus: processed.SummaryStatus,
		PostID:        published.PostID,
		PostURL:       published.PostURL,
	}

	switch published.Status {
	case StatusPublished:
		output.Status = StatusPublished
	case StatusAlreadyPublished:
		output.Status = StatusAlreadyPublished
	default:
		output.Status = StatusPublishError
		output.Error = published.Error
	}
	return output, nil
}
