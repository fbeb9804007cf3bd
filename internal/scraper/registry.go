package scraper

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Registry holds the registered extractors in registration order. ForURL
// tries each extractor's CanHandle predicate in that order and returns the
// first match, so more specific extractors should be registered first.
//
// The registry is built once at startup and read-only afterwards, which
// makes it safe for concurrent use by parallel jobs without locking.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewRegistryFromDir builds a registry with one SiteExtractor per schema
// file found in dir, registered in lexical order of schema name.
func NewRegistryFromDir(
	dir string,
	client *http.Client,
	timeout time.Duration,
	logger *slog.Logger,
) (*Registry, error) {
	names, err := ListSchemas(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no schema files found in %q", dir)
	}

	registry := NewRegistry()
	for _, name := range names {
		extractor, err := NewSiteExtractor(dir, name, client, timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build extractor for schema %q: %w", name, err)
		}
		registry.Register(extractor)
	}
	return registry, nil
}

// Register appends an extractor to the registry.
func (r *Registry) Register(extractor Extractor) {
	r.extractors = append(r.extractors, extractor)
}

// ForURL returns the first registered extractor that can handle the URL, or
// ErrNoExtractor when none declares itself capable.
func (r *Registry) ForURL(url string) (Extractor, error) {
	for _, extractor := range r.extractors {
		if extractor.CanHandle(url) {
			return extractor, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoExtractor, url)
}

// ForSource returns the extractor registered under the name, matching the
// source name or the backing schema name. The two usually coincide; when a
// schema file is named differently from its source, both names resolve so
// callers can use whichever the schema listing gave them.
func (r *Registry) ForSource(name string) (Extractor, bool) {
	for _, extractor := range r.extractors {
		if extractor.SourceName() == name || extractor.SchemaName() == name {
			return extractor, true
		}
	}
	return nil, false
}

// Sources lists the source names of all registered extractors in
// registration order.
func (r *Registry) Sources() []string {
	sources := make([]string, 0, len(r.extractors))
	for _, extractor := range r.extractors {
		sources = append(sources, extractor.SourceName())
	}
	return sources
}
