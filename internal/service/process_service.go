// Package service implements the application use cases: processing a news
// URL into a stored document, publishing a stored document to the CMS, and
// the combination of the two. Use cases are pure orchestration; they have no
// queue awareness and are invoked by the task engine's handlers.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/platform/logger"
	"github.com/phrazzld/newswire/internal/scraper"
	"github.com/phrazzld/newswire/internal/store"
	"github.com/phrazzld/newswire/internal/summarize"
)

// Use case outcome statuses shared across services.
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusPublished        = "published"
	StatusAlreadyPublished = "already_published"
	StatusProcessingError  = "processing_error"
	StatusPublishError     = "publish_error"
)

// ExtractorRegistry is the subset of the scraper registry the processing use
// case depends on.
type ExtractorRegistry interface {
	// ForURL returns the first extractor that can handle the URL.
	ForURL(url string) (scraper.Extractor, error)

	// ForSource returns the extractor registered for the named source, if
	// any.
	ForSource(name string) (scraper.Extractor, bool)
}

// ProcessInput carries the arguments of one processing run.
type ProcessInput struct {
	URL        string
	SchemaName string
}

// ProcessOutput is the structured result of one processing run. Status is
// StatusSuccess or StatusError; Error is set only in the error case.
type ProcessOutput struct {
	Status        string               `json:"status"`
	DocumentID    uuid.UUID            `json:"document_id,omitempty"`
	URL           string               `json:"url,omitempty"`
	Title         string               `json:"title,omitempty"`
	SchemaUsed    string               `json:"schema_used,omitempty"`
	Summary       string               `json:"summary,omitempty"`
	SummaryStatus domain.SummaryStatus `json:"summary_status,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// ProcessService orchestrates extraction, summarization and persistence for
// one URL.
type ProcessService interface {
	Execute(ctx context.Context, input ProcessInput) (*ProcessOutput, error)
}

// NewProcessService creates the processing use case with its capability
// dependencies. All dependencies are shared by reference across jobs and
// must be safe for concurrent use.
func NewProcessService(
	registry ExtractorRegistry,
	summarizer summarize.Summarizer,
	articleStore store.ArticleStore,
) ProcessService {
	return &processServiceImpl{
		registry:     registry,
		summarizer:   summarizer,
		articleStore: articleStore,
	}
}

type processServiceImpl struct {
	registry     ExtractorRegistry
	summarizer   summarize.Summarizer
	articleStore store.ArticleStore
}

// Execute runs the processing pipeline for one URL.
//
// Error contract: a non-nil error is a transport or infrastructure fault
// (network failure on scrape, store unavailable) that the caller's retry
// policy should see. Everything the pipeline can decide terminally, such as
// an unsupported URL or extraction yielding nothing, comes back as a
// StatusError output with a nil error, and must not be retried. A degraded
// summary is a success with the degradation recorded in SummaryStatus.
func (s *processServiceImpl) Execute(ctx context.Context, input ProcessInput) (*ProcessOutput, error) {
	log := logger.FromContext(ctx).With("url", input.URL, "schema", input.SchemaName)

	extractor := s.selectExtractor(input)
	if extractor == nil {
		log.Warn("no extractor can handle URL")
		return &ProcessOutput{
			Status: StatusError,
			URL:    input.URL,
			Error:  fmt.Sprintf("URL not supported by any registered source: %s", input.URL),
		}, nil
	}

	log.Info("extracting article", "source", extractor.SourceName())
	article, err := extractor.Scrape(ctx, input.URL)
	if err != nil {
		return nil, fmt.Errorf("extraction transport fault: %w", err)
	}
	if article == nil {
		log.Warn("extraction yielded no article")
		return &ProcessOutput{
			Status: StatusError,
			URL:    input.URL,
			Error:  "could not extract article from page",
		}, nil
	}

	log.Info("summarizing article", "title", article.Title)
	summary := s.summarizer.Summarize(ctx, article.Content, article.Title, article.Subtitle)
	article.Summary = summary.Text
	article.SummaryStatus = summary.Status
	log.Info("summarization finished", "summary_status", summary.Status)

	if err := article.Validate(); err != nil {
		// Extractor produced a structurally unusable article; retrying
		// the same page cannot change that.
		return &ProcessOutput{
			Status: StatusError,
			URL:    input.URL,
			Error:  fmt.Sprintf("extracted article is invalid: %v", err),
		}, nil
	}

	id, err := s.articleStore.UpsertByURL(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert article: %w", err)
	}

	log.Info("article persisted", "document_id", id)
	return &ProcessOutput{
		Status:        StatusSuccess,
		DocumentID:    id,
		URL:           article.URL,
		Title:         article.Title,
		SchemaUsed:    article.SchemaUsed,
		Summary:       article.Summary,
		SummaryStatus: article.SummaryStatus,
	}, nil
}

// selectExtractor prefers the extractor registered for the requested schema
// when it can handle the URL, then falls back to the ordered registry scan.
func (s *processServiceImpl) selectExtractor(input ProcessInput) scraper.Extractor {
	if input.SchemaName != "" {
		if preferred, ok := s.registry.ForSource(input.SchemaName); ok && preferred.CanHandle(input.URL) {
			return preferred
		}
	}

	extractor, err := s.registry.ForURL(input.URL)
	if err != nil {
		if !errors.Is(err, scraper.ErrNoExtractor) {
			// Registry only returns ErrNoExtractor today; anything else
			// still means "cannot process this URL".
			return nil
		}
		return nil
	}
	return extractor
}
