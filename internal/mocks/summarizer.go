package mocks

import (
	"context"

	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/summarize"
)

// MockSummarizer implements summarize.Summarizer for testing
type MockSummarizer struct {
	// SummarizeFn allows test cases to mock the Summarize behavior
	SummarizeFn func(ctx context.Context, content, title, subtitle string) summarize.Result

	// Default response values
	Text   string
	Status domain.SummaryStatus
}

var _ summarize.Summarizer = (*MockSummarizer)(nil)

// Summarize implements the Summarizer interface
func (m *MockSummarizer) Summarize(ctx context.Context, content, title, subtitle string) summarize.Result {
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, content, title, subtitle)
	}

	text := m.Text
	if text == "" {
		text = "mock summary"
	}
	status := m.Status
	if status == "" {
		status = domain.SummaryStatusSuccess
	}
	return summarize.Result{Text: text, Status: status}
}
