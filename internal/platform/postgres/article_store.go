package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/platform/logger"
	"github.com/phrazzld/newswire/internal/store"
)

// articleColumns is the scan order shared by every article query.
const articleColumns = `
	id, url, title, subtitle, content, author, pub_date, images, source,
	summary, summary_status, schema_used,
	published, publish_post_id, publish_post_url, publish_error,
	publish_attempts, published_at, publish_error_at,
	created_at, updated_at`

// PostgresArticleStore implements the store.ArticleStore interface using a
// PostgreSQL database as the storage backend.
type PostgresArticleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArticleStore creates a new PostgreSQL implementation of the
// ArticleStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresArticleStore(db store.DBTX, logger *slog.Logger) *PostgresArticleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArticleStore{
		db:     db,
		logger: logger.With(slog.String("component", "article_store")),
	}
}

// Ensure PostgresArticleStore implements store.ArticleStore interface
var _ store.ArticleStore = (*PostgresArticleStore)(nil)

// UpsertByURL implements store.ArticleStore.UpsertByURL.
//
// The unique index on url makes the upsert atomic: concurrent runs for the
// same URL resolve to last-write-wins on content columns, while id and the
// publication columns are never touched by the conflict branch.
func (s *PostgresArticleStore) UpsertByURL(
	ctx context.Context,
	article *domain.Article,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := article.Validate(); err != nil {
		log.Warn("article validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("url", article.URL))
		return uuid.Nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	images, err := json.Marshal(article.Images)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode images: %w", err)
	}

	id := article.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO articles (
			id, url, title, subtitle, content, author, pub_date, images,
			source, summary, summary_status, schema_used,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle,
			content = EXCLUDED.content,
			author = EXCLUDED.author,
			pub_date = EXCLUDED.pub_date,
			images = EXCLUDED.images,
			source = EXCLUDED.source,
			summary = EXCLUDED.summary,
			summary_status = EXCLUDED.summary_status,
			schema_used = EXCLUDED.schema_used,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var storedID uuid.UUID
	err = s.db.QueryRowContext(
		ctx,
		query,
		id,
		article.URL,
		article.Title,
		article.Subtitle,
		article.Content,
		article.Author,
		article.PubDate,
		images,
		article.Source,
		article.Summary,
		string(article.SummaryStatus),
		article.SchemaUsed,
		now,
	).Scan(&storedID)
	if err != nil {
		if IsUniqueViolation(err) {
			// ON CONFLICT covers the url index, so a violation here means
			// the caller pinned an id that belongs to another row.
			return uuid.Nil, fmt.Errorf("%w: conflicting article identifier", store.ErrInvalidEntity)
		}
		log.Error("failed to upsert article",
			slog.String("error", err.Error()),
			slog.String("url", article.URL))
		return uuid.Nil, err
	}

	log.Info("article upserted",
		slog.String("document_id", storedID.String()),
		slog.String("url", article.URL))
	return storedID, nil
}

// FindByURL implements store.ArticleStore.FindByURL.
// Returns store.ErrArticleNotFound if no document exists for the URL.
func (s *PostgresArticleStore) FindByURL(ctx context.Context, url string) (*domain.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE url = $1`, articleColumns)
	return s.queryOne(ctx, query, url)
}

// FindByID implements store.ArticleStore.FindByID.
// Returns store.ErrArticleNotFound if no document exists.
func (s *PostgresArticleStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1`, articleColumns)
	return s.queryOne(ctx, query, id)
}

// MarkPublished implements store.ArticleStore.MarkPublished. It sets the
// published flag and remote identifiers and clears any prior publish error.
// Returns store.ErrArticleNotFound if the document does not exist.
func (s *PostgresArticleStore) MarkPublished(
	ctx context.Context,
	id uuid.UUID,
	postID int,
	postURL string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := time.Now().UTC()

	query := `
		UPDATE articles
		SET published = TRUE,
		    publish_post_id = $1,
		    publish_post_url = $2,
		    publish_error = '',
		    publish_error_at = NULL,
		    published_at = $3,
		    updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, postID, postURL, now, id)
	if err != nil {
		log.Error("failed to mark article published",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return err
	}
	if err := CheckRowsAffected(result, "article"); err != nil {
		return err
	}

	log.Info("article marked published",
		slog.String("document_id", id.String()),
		slog.Int("post_id", postID))
	return nil
}

// MarkPublishError implements store.ArticleStore.MarkPublishError. The
// attempt counter is incremented in the same statement so concurrent
// attempts cannot lose increments.
// Returns store.ErrArticleNotFound if the document does not exist.
func (s *PostgresArticleStore) MarkPublishError(
	ctx context.Context,
	id uuid.UUID,
	publishErr string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := time.Now().UTC()

	query := `
		UPDATE articles
		SET publish_error = $1,
		    publish_attempts = publish_attempts + 1,
		    publish_error_at = $2,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, publishErr, now, id)
	if err != nil {
		log.Error("failed to record publish error",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return err
	}
	if err := CheckRowsAffected(result, "article"); err != nil {
		return err
	}

	log.Warn("publish error recorded",
		slog.String("document_id", id.String()),
		slog.String("publish_error", publishErr))
	return nil
}

// FindPendingPublish implements store.ArticleStore.FindPendingPublish.
func (s *PostgresArticleStore) FindPendingPublish(
	ctx context.Context,
	limit int,
) ([]*domain.Article, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM articles
		WHERE published = FALSE AND publish_attempts < $1
		ORDER BY created_at DESC
		LIMIT $2`, articleColumns)

	return s.queryMany(ctx, query, domain.MaxPublishAttempts, limit)
}

// ListRecent implements store.ArticleStore.ListRecent.
func (s *PostgresArticleStore) ListRecent(ctx context.Context, limit int) ([]*domain.Article, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s FROM articles
		ORDER BY created_at DESC
		LIMIT $1`, articleColumns)

	return s.queryMany(ctx, query, limit)
}

// ListPublished implements store.ArticleStore.ListPublished.
func (s *PostgresArticleStore) ListPublished(ctx context.Context, limit int) ([]*domain.Article, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s FROM articles
		WHERE published = TRUE
		ORDER BY published_at DESC NULLS LAST
		LIMIT $1`, articleColumns)

	return s.queryMany(ctx, query, limit)
}

// Stats implements store.ArticleStore.Stats.
func (s *PostgresArticleStore) Stats(ctx context.Context) (*store.PublishStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE published),
			COUNT(*) FILTER (WHERE NOT published AND publish_attempts < $1),
			COUNT(*) FILTER (WHERE publish_error <> '')
		FROM articles
	`

	var stats store.PublishStats
	err := s.db.QueryRowContext(ctx, query, domain.MaxPublishAttempts).Scan(
		&stats.Total,
		&stats.Published,
		&stats.Pending,
		&stats.WithErrors,
	)
	if err != nil {
		log.Error("failed to compute publish stats", slog.String("error", err.Error()))
		return nil, err
	}

	return &stats, nil
}

// queryOne runs a single-row article query.
func (s *PostgresArticleStore) queryOne(
	ctx context.Context,
	query string,
	args ...interface{},
) (*domain.Article, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, query, args...)
	article, err := scanArticle(row.Scan)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrArticleNotFound
		}
		log.Error("failed to query article", slog.String("error", err.Error()))
		return nil, err
	}
	return article, nil
}

// queryMany runs a multi-row article query.
func (s *PostgresArticleStore) queryMany(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]*domain.Article, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query articles", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	articles := []*domain.Article{}
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			log.Error("failed to scan article row", slog.String("error", err.Error()))
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return articles, nil
}

// scanArticle decodes one article row using the articleColumns order.
func scanArticle(scan func(dest ...interface{}) error) (*domain.Article, error) {
	var (
		article       domain.Article
		images        []byte
		summaryStatus string
		postID        sql.NullInt64
		publishedAt   sql.NullTime
		errorAt       sql.NullTime
	)

	err := scan(
		&article.ID,
		&article.URL,
		&article.Title,
		&article.Subtitle,
		&article.Content,
		&article.Author,
		&article.PubDate,
		&images,
		&article.Source,
		&article.Summary,
		&summaryStatus,
		&article.SchemaUsed,
		&article.Published,
		&postID,
		&article.PublishPostURL,
		&article.PublishError,
		&article.PublishAttempts,
		&publishedAt,
		&errorAt,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.SummaryStatus = domain.SummaryStatus(summaryStatus)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &article.Images); err != nil {
			return nil, fmt.Errorf("failed to decode images: %w", err)
		}
	}
	if postID.Valid {
		value := int(postID.Int64)
		article.PublishPostID = &value
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		article.PublishedAt = &t
	}
	if errorAt.Valid {
		t := errorAt.Time
		article.PublishErrorAt = &t
	}

	return &article, nil
}
