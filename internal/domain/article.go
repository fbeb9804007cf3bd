package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SummaryStatus tags the quality of a generated summary. The summarizer
// never fails hard; degraded outcomes are reported through this tag.
type SummaryStatus string

// Possible summary status values. ErrorPrefix statuses carry detail after
// the colon, e.g. "error:503".
const (
	SummaryStatusSuccess     SummaryStatus = "success"
	SummaryStatusTimeout     SummaryStatus = "timeout"
	SummaryStatusUnavailable SummaryStatus = "unavailable"

	// SummaryStatusErrorPrefix prefixes statuses for hard summarizer errors
	// that were absorbed into a fallback summary.
	SummaryStatusErrorPrefix = "error:"
)

// Common validation errors for Article
var (
	ErrEmptyArticleURL     = errors.New("article URL cannot be empty")
	ErrEmptyArticleTitle   = errors.New("article title cannot be empty")
	ErrEmptyArticleContent = errors.New("article content cannot be empty")
)

// ImageRef describes one image extracted from an article page.
type ImageRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Article represents a scraped and summarized news article as persisted in
// the store. The URL is the natural key for upserts; ID is assigned by the
// store on first insert and never changes afterwards.
type Article struct {
	ID uuid.UUID `json:"id"`

	// Content fields, refreshed on every processing run.
	URL           string        `json:"url"`
	Title         string        `json:"title"`
	Subtitle      string        `json:"subtitle,omitempty"`
	Content       string        `json:"content"`
	Author        string        `json:"author,omitempty"`
	PubDate       string        `json:"pub_date,omitempty"`
	Images        []ImageRef    `json:"images,omitempty"`
	Source        string        `json:"source"`
	Summary       string        `json:"summary"`
	SummaryStatus SummaryStatus `json:"summary_status"`
	SchemaUsed    string        `json:"schema_used"`

	// Publication fields, owned by the publish use case. A processing run
	// that refreshes content must preserve these.
	Published       bool       `json:"published"`
	PublishPostID   *int       `json:"publish_post_id,omitempty"`
	PublishPostURL  string     `json:"publish_post_url,omitempty"`
	PublishError    string     `json:"publish_error,omitempty"`
	PublishAttempts int        `json:"publish_attempts"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	PublishErrorAt  *time.Time `json:"publish_error_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxPublishAttempts is the ceiling after which a document is excluded from
// the pending-publish reconciliation query.
const MaxPublishAttempts = 3

// Validate checks that the article carries the fields required before it can
// be persisted. Publication fields are not validated here; they are defaulted
// by the store on insert.
func (a *Article) Validate() error {
	if a.URL == "" {
		return ErrEmptyArticleURL
	}
	if a.Title == "" {
		return ErrEmptyArticleTitle
	}
	if a.Content == "" {
		return ErrEmptyArticleContent
	}
	return nil
}

// EligibleForPublish reports whether the article belongs in the
// pending-publish reconciliation set: not yet published and under the
// attempt ceiling.
func (a *Article) EligibleForPublish() bool {
	return !a.Published && a.PublishAttempts < MaxPublishAttempts
}
