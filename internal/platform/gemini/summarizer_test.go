package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/phrazzld/newswire/internal/domain"
)

// testSummarizer builds a Summarizer around a stubbed model call.
func testSummarizer(generate func(ctx context.Context, prompt string) (string, error)) *Summarizer {
	s := &Summarizer{
		logger: slog.Default(),
		config: config.LLMConfig{Timeout: time.Second},
		model:  "gemini-2.0-flash",
	}
	s.generate = generate
	return s
}

func TestNewSummarizer_NilLogger(t *testing.T) {
	_, err := NewSummarizer(context.Background(), nil, config.LLMConfig{
		GeminiAPIKey: "key",
		ModelName:    "gemini-2.0-flash",
	})
	assert.Error(t, err)
}

func TestNewSummarizer_MissingAPIKey(t *testing.T) {
	_, err := NewSummarizer(context.Background(), slog.Default(), config.LLMConfig{
		ModelName: "gemini-2.0-flash",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewSummarizer_MissingModel(t *testing.T) {
	_, err := NewSummarizer(context.Background(), slog.Default(), config.LLMConfig{
		GeminiAPIKey: "key",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSummarize_RetriesOnceThenSucceeds(t *testing.T) {
	calls := 0
	s := testSummarizer(func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient model hiccup")
		}
		return "A concise summary.", nil
	})

	result := s.Summarize(context.Background(), "Body of the article.", "Title", "")
	assert.Equal(t, "A concise summary.", result.Text)
	assert.Equal(t, domain.SummaryStatusSuccess, result.Status)
	assert.Equal(t, 2, calls)
}

func TestSummarize_DegradesAfterRetryFails(t *testing.T) {
	calls := 0
	s := testSummarizer(func(_ context.Context, _ string) (string, error) {
		calls++
		return "", errors.New("model unavailable")
	})

	result := s.Summarize(context.Background(), "Body of the article.", "Title", "Subtitle")
	assert.Equal(t, "Title. Subtitle", result.Text)
	assert.True(t, strings.HasPrefix(string(result.Status), domain.SummaryStatusErrorPrefix))
	assert.Equal(t, 2, calls)
}

func TestSummarize_NoRetryOnTimeout(t *testing.T) {
	calls := 0
	s := testSummarizer(func(_ context.Context, _ string) (string, error) {
		calls++
		return "", context.DeadlineExceeded
	})

	result := s.Summarize(context.Background(), "Body of the article.", "Title", "")
	assert.Equal(t, domain.SummaryStatusTimeout, result.Status)
	assert.Equal(t, 1, calls)
}

func TestSummarize_EmptyResponseFallsBack(t *testing.T) {
	s := testSummarizer(func(_ context.Context, _ string) (string, error) {
		return "", nil
	})

	result := s.Summarize(context.Background(), "First sentence. Second sentence. Third.", "Title", "")
	assert.NotEmpty(t, result.Text)
	assert.True(t, strings.HasPrefix(string(result.Status), domain.SummaryStatusErrorPrefix))
}

func TestBuildPrompt_TruncatesContent(t *testing.T) {
	s := &Summarizer{
		logger: slog.Default(),
		config: config.LLMConfig{MaxContentLength: 10},
	}

	prompt := s.buildPrompt("0123456789overflow", "Title")
	assert.Contains(t, prompt, "0123456789")
	assert.NotContains(t, prompt, "overflow")
}
