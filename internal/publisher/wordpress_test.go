package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/phrazzld/newswire/internal/domain"
)

func newTestSink(serverURL string) *WordPressSink {
	return NewWordPressSink(config.WordPressConfig{
		URL:           serverURL,
		APIKey:        "secret-key",
		DefaultStatus: "publish",
	}, slog.Default())
}

func testPost() Post {
	return Post{Title: "Headline", Content: "<p>Body</p>"}
}

func TestWordPressSink_PublishSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotPost Post
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPost))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"post_id": 99, "post_url": "https://cms.example.com/?p=99"}`))
	}))
	defer server.Close()

	result, err := newTestSink(server.URL).Publish(context.Background(), testPost())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 99, result.PostID)
	assert.Equal(t, "https://cms.example.com/?p=99", result.PostURL)

	assert.Equal(t, "/wp-json/content-receiver/v1/webhook", gotPath)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "publish", gotPost.Status, "default status is filled in")
}

func TestWordPressSink_PublishHTMLResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>pretty permalinks required</html>"))
	}))
	defer server.Close()

	result, err := newTestSink(server.URL).Publish(context.Background(), testPost())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "REST API not responding with JSON")
}

func TestWordPressSink_PublishRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "title is required"}`))
	}))
	defer server.Close()

	result, err := newTestSink(server.URL).Publish(context.Background(), testPost())
	require.NoError(t, err, "a rejection is not a transport fault")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "HTTP 400")
	assert.Contains(t, result.Error, "title is required")
}

func TestWordPressSink_PublishTransportFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	_, err := newTestSink(server.URL).Publish(context.Background(), testPost())
	assert.Error(t, err)
}

func TestPostFromArticle(t *testing.T) {
	article := &domain.Article{
		URL:           "https://g1.globo.com/news/1",
		Title:         "Headline",
		Content:       "First paragraph.\n\nSecond paragraph.",
		Source:        "g1",
		Summary:       "A short summary.",
		SummaryStatus: domain.SummaryStatusSuccess,
		Images: []domain.ImageRef{
			{URL: "https://cdn.example.com/a.jpg", Alt: "Chart"},
			{URL: "https://cdn.example.com/b.jpg"},
		},
	}

	post := PostFromArticle(article, []string{"economy"}, []string{"gdp"})

	assert.Equal(t, "Headline", post.Title)
	assert.Equal(t, "A short summary.", post.Excerpt)
	assert.Equal(t, []string{"economy"}, post.Categories)
	assert.Equal(t, []string{"gdp"}, post.Tags)
	assert.Equal(t, "https://cdn.example.com/a.jpg", post.FeaturedImage)

	assert.Contains(t, post.Content, "<p><strong>A short summary.</strong></p>")
	assert.Contains(t, post.Content, "<p>First paragraph.</p>")
	assert.Contains(t, post.Content, "<p>Second paragraph.</p>")
	assert.Contains(t, post.Content, "<p><em>Source: g1</em></p>")

	assert.Equal(t, "https://g1.globo.com/news/1", post.Meta["source_url"])
	assert.Equal(t, "g1", post.Meta["source"])
	assert.Equal(t, "success", post.Meta["summary_status"])
}

func TestPostFromArticle_Minimal(t *testing.T) {
	post := PostFromArticle(&domain.Article{
		Title:   "Headline",
		Content: "Only paragraph.",
	}, nil, nil)

	assert.NotContains(t, post.Content, "<strong>")
	assert.NotContains(t, post.Content, "Source:")
	assert.Empty(t, post.FeaturedImage)
	assert.Empty(t, post.Excerpt)
}
