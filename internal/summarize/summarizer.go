// Package summarize defines the text summarization capability consumed by
// the processing use case. Implementations live under internal/platform.
package summarize

import (
	"context"
	"strings"

	"github.com/phrazzld/newswire/internal/domain"
)

// Result is the outcome of one summarization call. Status is always set;
// degraded results (timeout, unavailable, absorbed errors) still carry a
// non-empty fallback summary in Text.
type Result struct {
	Text   string
	Status domain.SummaryStatus
}

// Summarizer produces a short summary for article text.
//
// Implementations must never return an error: a remote model that is down,
// slow, or misbehaving degrades to a fallback summary with the status tag
// recording what happened. This keeps summarization off the retry path of
// the processing job.
type Summarizer interface {
	Summarize(ctx context.Context, content, title, subtitle string) Result
}

// FallbackSummary builds a summary without any model: the subtitle appended
// to the title when present, otherwise the first two sentences of the
// content, otherwise a 200-character prefix.
func FallbackSummary(title, subtitle, content string) string {
	if subtitle != "" {
		return title + ". " + subtitle
	}

	sentences := strings.SplitN(content, ".", 3)
	if len(sentences) >= 2 && strings.TrimSpace(sentences[1]) != "" {
		return strings.TrimSpace(sentences[0]) + ". " + strings.TrimSpace(sentences[1]) + "."
	}

	if len(content) > 200 {
		return content[:200]
	}
	return content
}
