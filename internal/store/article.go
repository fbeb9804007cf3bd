package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/domain"
)

// PublishStats summarizes publication state across the whole store.
type PublishStats struct {
	Total      int `json:"total"`
	Published  int `json:"published"`
	Pending    int `json:"pending"`
	WithErrors int `json:"with_errors"`
}

// ArticleStore defines the persistence contract for scraped articles.
//
// UpsertByURL is the only write path for content fields and must be atomic
// per document: concurrent processing runs for the same URL resolve to
// last-write-wins on content while identity and publication fields are
// preserved. Publication fields are mutated only through MarkPublished and
// MarkPublishError.
type ArticleStore interface {
	// UpsertByURL inserts the article if no document exists for its URL,
	// otherwise updates the existing document's content fields in place.
	// Returns the identity of the affected document.
	UpsertByURL(ctx context.Context, article *domain.Article) (uuid.UUID, error)

	// FindByURL retrieves an article by its natural key.
	// Returns ErrArticleNotFound if no document exists for the URL.
	FindByURL(ctx context.Context, url string) (*domain.Article, error)

	// FindByID retrieves an article by its store-assigned identity.
	// Returns ErrArticleNotFound if no document exists.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)

	// MarkPublished records a successful remote publication: sets the
	// published flag and remote identifiers, clears any prior publish
	// error. The attempt counter is left untouched.
	MarkPublished(ctx context.Context, id uuid.UUID, postID int, postURL string) error

	// MarkPublishError records a failed publish attempt and increments the
	// attempt counter by exactly one.
	MarkPublishError(ctx context.Context, id uuid.UUID, publishErr string) error

	// FindPendingPublish returns at most limit unpublished articles that
	// are still under the publish attempt ceiling, newest first.
	FindPendingPublish(ctx context.Context, limit int) ([]*domain.Article, error)

	// ListRecent returns at most limit articles, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Article, error)

	// ListPublished returns at most limit published articles, most
	// recently published first.
	ListPublished(ctx context.Context, limit int) ([]*domain.Article, error)

	// Stats returns publication counters for the whole store.
	Stats(ctx context.Context) (*PublishStats, error)
}
