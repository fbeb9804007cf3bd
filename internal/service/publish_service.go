package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/platform/logger"
	"github.com/phrazzld/newswire/internal/publisher"
	"github.com/phrazzld/newswire/internal/store"
)

// PublishOutput is the structured result of one publish run. Status is
// StatusPublished, StatusAlreadyPublished or StatusError.
type PublishOutput struct {
	Status     string    `json:"status"`
	DocumentID uuid.UUID `json:"document_id"`
	PostID     int       `json:"post_id,omitempty"`
	PostURL    string    `json:"post_url,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// PublishService orchestrates store lookup, sink delivery and status
// bookkeeping for one stored document.
type PublishService interface {
	Execute(ctx context.Context, documentID uuid.UUID) (*PublishOutput, error)
}

// NewPublishService creates the publish use case.
func NewPublishService(
	articleStore store.ArticleStore,
	sink publisher.Sink,
) PublishService {
	return &publishServiceImpl{
		articleStore: articleStore,
		sink:         sink,
	}
}

type publishServiceImpl struct {
	articleStore store.ArticleStore
	sink         publisher.Sink
}

// Execute publishes the document with the given identity.
//
// Error contract mirrors ProcessService: a non-nil error is a transport
// fault (sink unreachable, store unavailable) and retriable; a missing
// document or a rejection by the remote CMS is a terminal StatusError
// output. Publishing an already-published document is an idempotent no-op
// reported as StatusAlreadyPublished with the stored identifiers; it never
// contacts the sink.
func (s *publishServiceImpl) Execute(ctx context.Context, documentID uuid.UUID) (*PublishOutput, error) {
	log := logger.FromContext(ctx).With("document_id", documentID)

	article, err := s.articleStore.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("document not found for publish")
			return &PublishOutput{
				Status:     StatusError,
				DocumentID: documentID,
				Error:      "article not found in store",
			}, nil
		}
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	if article.Published {
		log.Info("document already published",
			"post_id", article.PublishPostID,
			"post_url", article.PublishPostURL)
		output := &PublishOutput{
			Status:     StatusAlreadyPublished,
			DocumentID: documentID,
			PostURL:    article.PublishPostURL,
		}
		if article.PublishPostID != nil {
			output.PostID = *article.PublishPostID
		}
		return output, nil
	}

	log.Info("publishing article", "title", article.Title)
	result, err := s.sink.Publish(ctx, publisher.PostFromArticle(article, nil, nil))
	if err != nil {
		return nil, fmt.Errorf("publish transport fault: %w", err)
	}

	if !result.Success {
		log.Warn("publish rejected by sink", "error", result.Error)
		if markErr := s.articleStore.MarkPublishError(ctx, documentID, result.Error); markErr != nil {
			log.Error("failed to record publish error", "error", markErr)
		}
		return &PublishOutput{
			Status:     StatusError,
			DocumentID: documentID,
			Error:      result.Error,
		}, nil
	}

	if err := s.articleStore.MarkPublished(ctx, documentID, result.PostID, result.PostURL); err != nil {
		// The remote post exists; failing here would re-publish on retry.
		// Surface the fault, the already_published gate stays closed until
		// the flag lands, and the operator can reconcile.
		return nil, fmt.Errorf("failed to mark article published: %w", err)
	}

	log.Info("article published",
		"post_id", result.PostID,
		"post_url", result.PostURL)
	return &PublishOutput{
		Status:     StatusPublished,
		DocumentID: documentID,
		PostID:     result.PostID,
		PostURL:    result.PostURL,
	}, nil
}
