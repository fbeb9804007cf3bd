package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/store"
)

// MockArticleStore implements store.ArticleStore for testing. The default
// implementation is a thread-safe in-memory store with real upsert
// semantics; individual methods can be overridden through function fields
// or forced to fail through error fields.
type MockArticleStore struct {
	// Function fields for customizable behavior
	UpsertByURLFn      func(ctx context.Context, article *domain.Article) (uuid.UUID, error)
	FindByIDFn         func(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	MarkPublishedFn    func(ctx context.Context, id uuid.UUID, postID int, postURL string) error
	MarkPublishErrorFn func(ctx context.Context, id uuid.UUID, publishErr string) error

	// Forced errors for the default implementation
	UpsertError  error
	FindError    error
	MarkError    error
	PendingError error
	StatsError   error

	mu       sync.Mutex
	articles map[uuid.UUID]*domain.Article
}

// NewMockArticleStore creates a new mock store with initialized defaults.
func NewMockArticleStore() *MockArticleStore {
	return &MockArticleStore{
		articles: make(map[uuid.UUID]*domain.Article),
	}
}

var _ store.ArticleStore = (*MockArticleStore)(nil)

// Seed inserts an article directly, bypassing upsert semantics. Returns
// the stored copy's ID for convenience.
func (m *MockArticleStore) Seed(article *domain.Article) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}
	copied := *article
	m.articles[article.ID] = &copied
	return article.ID
}

// Count returns the number of stored articles.
func (m *MockArticleStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles)
}

// UpsertByURL implements the ArticleStore interface with real
// last-write-wins content semantics keyed on URL.
func (m *MockArticleStore) UpsertByURL(ctx context.Context, article *domain.Article) (uuid.UUID, error) {
	if m.UpsertByURLFn != nil {
		return m.UpsertByURLFn(ctx, article)
	}
	if m.UpsertError != nil {
		return uuid.Nil, m.UpsertError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, existing := range m.articles {
		if existing.URL == article.URL {
			// Refresh content fields, preserve identity and publication
			existing.Title = article.Title
			existing.Subtitle = article.Subtitle
			existing.Content = article.Content
			existing.Author = article.Author
			existing.PubDate = article.PubDate
			existing.Images = article.Images
			existing.Source = article.Source
			existing.Summary = article.Summary
			existing.SummaryStatus = article.SummaryStatus
			existing.SchemaUsed = article.SchemaUsed
			existing.UpdatedAt = now
			return existing.ID, nil
		}
	}

	id := article.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	copied := *article
	copied.ID = id
	copied.CreatedAt = now
	copied.UpdatedAt = now
	m.articles[id] = &copied
	return id, nil
}

// FindByURL implements the ArticleStore interface.
func (m *MockArticleStore) FindByURL(ctx context.Context, url string) (*domain.Article, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, article := range m.articles {
		if article.URL == url {
			copied := *article
			return &copied, nil
		}
	}
	return nil, store.ErrArticleNotFound
}

// FindByID implements the ArticleStore interface.
func (m *MockArticleStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.articles[id]
	if !ok {
		return nil, store.ErrArticleNotFound
	}
	copied := *article
	return &copied, nil
}

// MarkPublished implements the ArticleStore interface.
func (m *MockArticleStore) MarkPublished(ctx context.Context, id uuid.UUID, postID int, postURL string) error {
	if m.MarkPublishedFn != nil {
		return m.MarkPublishedFn(ctx, id, postID, postURL)
	}
	if m.MarkError != nil {
		return m.MarkError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.articles[id]
	if !ok {
		return store.ErrArticleNotFound
	}
	now := time.Now().UTC()
	article.Published = true
	article.PublishPostID = &postID
	article.PublishPostURL = postURL
	article.PublishError = ""
	article.PublishErrorAt = nil
	article.PublishedAt = &now
	article.UpdatedAt = now
	return nil
}

// MarkPublishError implements the ArticleStore interface.
func (m *MockArticleStore) MarkPublishError(ctx context.Context, id uuid.UUID, publishErr string) error {
	if m.MarkPublishErrorFn != nil {
		return m.MarkPublishErrorFn(ctx, id, publishErr)
	}
	if m.MarkError != nil {
		return m.MarkError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.articles[id]
	if !ok {
		return store.ErrArticleNotFound
	}
	now := time.Now().UTC()
	article.PublishError = publishErr
	article.PublishAttempts++
	article.PublishErrorAt = &now
	article.UpdatedAt = now
	return nil
}

// FindPendingPublish implements the ArticleStore interface.
func (m *MockArticleStore) FindPendingPublish(ctx context.Context, limit int) ([]*domain.Article, error) {
	if m.PendingError != nil {
		return nil, m.PendingError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := []*domain.Article{}
	for _, article := range m.articles {
		if article.EligibleForPublish() {
			copied := *article
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// ListRecent implements the ArticleStore interface.
func (m *MockArticleStore) ListRecent(ctx context.Context, limit int) ([]*domain.Article, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all := []*domain.Article{}
	for _, article := range m.articles {
		copied := *article
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListPublished implements the ArticleStore interface.
func (m *MockArticleStore) ListPublished(ctx context.Context, limit int) ([]*domain.Article, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	published := []*domain.Article{}
	for _, article := range m.articles {
		if article.Published {
			copied := *article
			published = append(published, &copied)
		}
	}
	sort.Slice(published, func(i, j int) bool {
		var ti, tj time.Time
		if published[i].PublishedAt != nil {
			ti = *published[i].PublishedAt
		}
		if published[j].PublishedAt != nil {
			tj = *published[j].PublishedAt
		}
		return ti.After(tj)
	})
	if limit > 0 && len(published) > limit {
		published = published[:limit]
	}
	return published, nil
}

// Stats implements the ArticleStore interface.
func (m *MockArticleStore) Stats(ctx context.Context) (*store.PublishStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &store.PublishStats{Total: len(m.articles)}
	for _, article := range m.articles {
		if article.Published {
			stats.Published++
		}
		if article.EligibleForPublish() {
			stats.Pending++
		}
		if article.PublishError != "" {
			stats.WithErrors++
		}
	}
	return stats, nil
}
