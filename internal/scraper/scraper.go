// Package scraper provides the article extraction capability: site-specific
// extractors selected by URL through an ordered registry, each driven by a
// YAML schema describing selectors, cleanup patterns and validations.
package scraper

import (
	"context"
	"errors"

	"github.com/phrazzld/newswire/internal/domain"
)

// Common scraper errors.
var (
	// ErrNoExtractor is returned by the registry when no registered
	// extractor declares itself capable of a URL.
	ErrNoExtractor = errors.New("no extractor can handle URL")
)

// Extractor extracts a structured article from one news source.
//
// Scrape's return contract distinguishes failure modes for the retry
// machinery upstream: a transport fault (network error, upstream 5xx) is
// returned as a non-nil error and is retriable; a page that was fetched but
// yielded no article returns (nil, nil) and is terminal. Scrape must be
// side-effect-free on failure.
type Extractor interface {
	// SourceName identifies the news source, e.g. "g1".
	SourceName() string

	// SchemaName names the schema configuration backing this extractor.
	// It can differ from SourceName when a schema file is named
	// differently from the source it describes.
	SchemaName() string

	// CanHandle reports whether this extractor supports the URL.
	CanHandle(url string) bool

	// Scrape fetches and extracts the article at the URL.
	Scrape(ctx context.Context, url string) (*domain.Article, error)
}
