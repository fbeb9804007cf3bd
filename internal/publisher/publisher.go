// Package publisher defines the publish sink capability: delivery of a
// formatted article to a remote CMS, returning either remote identifiers or
// a structured failure.
package publisher

import "context"

// Post is the content payload sent to the sink.
type Post struct {
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Status        string         `json:"status"`
	Excerpt       string         `json:"excerpt,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	FeaturedImage string         `json:"featured_image,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// Result is the structured outcome of one publish attempt. Error is set when
// Success is false and carries a message suitable for persisting on the
// document.
type Result struct {
	Success bool
	PostID  int
	PostURL string
	Error   string
}

// Sink publishes posts to a remote CMS.
//
// Publish returns a non-nil error only for transport faults that the retry
// machinery should see (connection failures, timeouts). A rejection by the
// remote end comes back as a Result with Success=false, which the publish
// use case records on the document without retrying at this level.
type Sink interface {
	Publish(ctx context.Context, post Post) (Result, error)
}
