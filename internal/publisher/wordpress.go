package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/phrazzld/newswire/internal/domain"
)

// webhookPath is the REST route exposed by the content-receiver plugin.
const webhookPath = "/wp-json/content-receiver/v1/webhook"

// maxErrorBody bounds how much of an error response body is kept in the
// persisted error message.
const maxErrorBody = 500

// WordPressSink publishes posts to a WordPress instance through the
// content-receiver webhook. It implements the Sink interface.
//
// The sink is constructed once at startup and shared by all jobs; its
// configuration is immutable and the underlying http.Client is safe for
// concurrent use.
type WordPressSink struct {
	webhookURL    string
	apiKey        string
	defaultStatus string
	client        *http.Client
	logger        *slog.Logger
}

// webhookResponse is the JSON body returned by the plugin on creation.
type webhookResponse struct {
	PostID  int    `json:"post_id"`
	PostURL string `json:"post_url"`
}

// NewWordPressSink creates a sink for the configured WordPress instance.
func NewWordPressSink(cfg config.WordPressConfig, logger *slog.Logger) *WordPressSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	status := cfg.DefaultStatus
	if status == "" {
		status = "publish"
	}

	return &WordPressSink{
		webhookURL:    strings.TrimRight(cfg.URL, "/") + webhookPath,
		apiKey:        cfg.APIKey,
		defaultStatus: status,
		client:        &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// Publish sends the post to the webhook. Transport faults (connection
// refused, timeout) return an error so the job's retry policy applies;
// anything the remote end answered becomes a structured Result.
func (s *WordPressSink) Publish(ctx context.Context, post Post) (Result, error) {
	if post.Status == "" {
		post.Status = s.defaultStatus
	}

	body, err := json.Marshal(post)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("encode payload: %v", err)}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("build request: %v", err)}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	// A 200 with HTML means the REST route is not wired up (plain
	// permalinks or plugin disabled); no point retrying.
	if resp.StatusCode == http.StatusOK && !isJSON {
		s.logger.Error("wordpress returned HTML instead of JSON",
			"webhook_url", s.webhookURL)
		return Result{
			Success: false,
			Error:   "REST API not responding with JSON; check permalinks and the content-receiver plugin",
		}, nil
	}

	if resp.StatusCode == http.StatusCreated {
		var created webhookResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return Result{Success: false, Error: fmt.Sprintf("decode response: %v", err)}, nil
		}
		s.logger.Info("post created",
			"post_id", created.PostID,
			"post_url", created.PostURL)
		return Result{
			Success: true,
			PostID:  created.PostID,
			PostURL: created.PostURL,
		}, nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	s.logger.Error("publish rejected",
		"status", resp.StatusCode,
		"detail", string(detail))
	return Result{
		Success: false,
		Error:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(detail)),
	}, nil
}

// PostFromArticle formats a stored article as a webhook post: the summary
// becomes the excerpt and an intro paragraph, paragraphs are wrapped in <p>
// tags, and the first extracted image becomes the featured image.
func PostFromArticle(article *domain.Article, categories, tags []string) Post {
	var content strings.Builder

	if article.Summary != "" {
		content.WriteString("<p><strong>")
		content.WriteString(article.Summary)
		content.WriteString("</strong></p>\n")
	}

	for _, paragraph := range strings.Split(article.Content, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		content.WriteString("<p>")
		content.WriteString(paragraph)
		content.WriteString("</p>\n")
	}

	if article.Source != "" {
		content.WriteString(`<p><em>Source: `)
		content.WriteString(article.Source)
		content.WriteString("</em></p>\n")
	}

	post := Post{
		Title:      article.Title,
		Content:    content.String(),
		Excerpt:    article.Summary,
		Categories: categories,
		Tags:       tags,
		Meta: map[string]any{
			"source_url":     article.URL,
			"source":         article.Source,
			"summary_status": string(article.SummaryStatus),
		},
	}

	if len(article.Images) > 0 {
		post.FeaturedImage = article.Images[0].URL
	}

	return post
}
