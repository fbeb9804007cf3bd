package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/scraper"
)

// MockExtractor implements scraper.Extractor for testing
type MockExtractor struct {
	// Source is the source name reported by SourceName
	Source string

	// Schema is the schema name reported by SchemaName. Empty falls back
	// to Source.
	Schema string

	// Domains drives the default CanHandle: the URL must contain one of
	// these substrings. Empty means handle everything.
	Domains []string

	// ScrapeFn allows test cases to mock the Scrape behavior
	ScrapeFn func(ctx context.Context, url string) (*domain.Article, error)

	// Default response values
	Article *domain.Article
	Err     error

	// Call tracking for verification
	ScrapeCalls struct {
		mu   sync.Mutex
		URLs []string
	}
}

var _ scraper.Extractor = (*MockExtractor)(nil)

// SourceName implements the Extractor interface
func (m *MockExtractor) SourceName() string {
	return m.Source
}

// SchemaName implements the Extractor interface
func (m *MockExtractor) SchemaName() string {
	if m.Schema != "" {
		return m.Schema
	}
	return m.Source
}

// CanHandle implements the Extractor interface
func (m *MockExtractor) CanHandle(url string) bool {
	if len(m.Domains) == 0 {
		return true
	}
	for _, d := range m.Domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

// Scrape implements the Extractor interface
func (m *MockExtractor) Scrape(ctx context.Context, url string) (*domain.Article, error) {
	m.ScrapeCalls.mu.Lock()
	m.ScrapeCalls.URLs = append(m.ScrapeCalls.URLs, url)
	m.ScrapeCalls.mu.Unlock()

	if m.ScrapeFn != nil {
		return m.ScrapeFn(ctx, url)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Article != nil {
		copied := *m.Article
		copied.URL = url
		return &copied, nil
	}
	return nil, nil
}
