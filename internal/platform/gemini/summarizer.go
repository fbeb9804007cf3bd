package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/summarize"
	"google.golang.org/genai"
)

// systemInstruction steers the model toward short, neutral news summaries.
const systemInstruction = "You summarize news articles concisely and neutrally."

// maxSummaryTokens bounds the model output; summaries are excerpts, not
// rewrites.
const maxSummaryTokens = 150

// Summarizer implements the summarize.Summarizer interface using Google's
// Gemini API. Per the capability contract it never returns an error: any
// failure degrades to a fallback summary with a status tag recording the
// failure mode.
type Summarizer struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string

	// generate performs one model call; tests substitute it.
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewSummarizer creates a Summarizer with the provided configuration.
// Returns an error only for construction problems (missing key, unreachable
// credential plumbing); runtime failures are absorbed by Summarize.
func NewSummarizer(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*Summarizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	s := &Summarizer{
		logger: logger,
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}
	s.generate = s.callModel
	return s, nil
}

// Summarize generates a summary for the given article text. The call is
// bounded by the configured timeout; a failed call is retried once inside
// that budget, and on timeout, transport failure or any other error the
// fallback summary is returned with the matching status.
func (s *Summarizer) Summarize(ctx context.Context, content, title, subtitle string) summarize.Result {
	prompt := s.buildPrompt(content, title)

	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := s.generate(callCtx, prompt)
	if err != nil && callCtx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
		// One immediate retry absorbs transient model hiccups without
		// putting summarization on the job's retry path
		s.logger.DebugContext(ctx, "summarization call failed, retrying once",
			"error", err)
		text, err = s.generate(callCtx, prompt)
	}
	if err != nil {
		status := s.classifyError(callCtx, err)
		s.logger.WarnContext(ctx, "summarization degraded to fallback",
			"status", status,
			"error", err)
		return summarize.Result{
			Text:   summarize.FallbackSummary(title, subtitle, content),
			Status: status,
		}
	}

	if text == "" {
		s.logger.WarnContext(ctx, "summarization returned empty response, using fallback")
		return summarize.Result{
			Text:   summarize.FallbackSummary(title, subtitle, content),
			Status: domain.SummaryStatus(domain.SummaryStatusErrorPrefix + "empty response"),
		}
	}

	s.logger.DebugContext(ctx, "summary generated",
		"summary_length", len(text))
	return summarize.Result{
		Text:   text,
		Status: domain.SummaryStatusSuccess,
	}
}

// callModel performs one GenerateContent call and returns the response
// text.
func (s *Summarizer) callModel(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
			MaxOutputTokens:   maxSummaryTokens,
		},
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// buildPrompt assembles the summarization prompt, truncating content to the
// configured ceiling so a very long article cannot blow the latency budget.
func (s *Summarizer) buildPrompt(content, title string) string {
	maxLen := s.config.MaxContentLength
	if maxLen <= 0 {
		maxLen = 4000
	}
	if len(content) > maxLen {
		s.logger.Debug("truncating content for prompt",
			"original_length", len(content),
			"truncated_length", maxLen)
		content = content[:maxLen]
	}
	return fmt.Sprintf("Summarize in at most 3 sentences:\n\nTitle: %s\n\n%s", title, content)
}

// classifyError maps a Gemini call failure onto the degraded summary status
// taxonomy: timeout, unavailable, or error:<detail>.
func (s *Summarizer) classifyError(callCtx context.Context, err error) domain.SummaryStatus {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return domain.SummaryStatusTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.SummaryStatusUnavailable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.SummaryStatusUnavailable
	}

	return domain.SummaryStatus(domain.SummaryStatusErrorPrefix + err.Error())
}
