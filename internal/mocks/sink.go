package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/newswire/internal/publisher"
)

// MockSink implements publisher.Sink for testing
type MockSink struct {
	// PublishFn allows test cases to mock the Publish behavior
	PublishFn func(ctx context.Context, post publisher.Post) (publisher.Result, error)

	// Default response values
	Result publisher.Result
	Err    error

	// Call tracking for verification
	PublishCalls struct {
		mu    sync.Mutex
		Count int
		Posts []publisher.Post
	}
}

var _ publisher.Sink = (*MockSink)(nil)

// Publish implements the Sink interface
func (m *MockSink) Publish(ctx context.Context, post publisher.Post) (publisher.Result, error) {
	m.PublishCalls.mu.Lock()
	m.PublishCalls.Count++
	m.PublishCalls.Posts = append(m.PublishCalls.Posts, post)
	m.PublishCalls.mu.Unlock()

	if m.PublishFn != nil {
		return m.PublishFn(ctx, post)
	}
	if m.Err != nil {
		return publisher.Result{}, m.Err
	}
	if m.Result != (publisher.Result{}) {
		return m.Result, nil
	}
	return publisher.Result{Success: true, PostID: 1, PostURL: "https://example.com/post/1"}, nil
}

// CallCount returns how many times Publish was invoked.
func (m *MockSink) CallCount() int {
	m.PublishCalls.mu.Lock()
	defer m.PublishCalls.mu.Unlock()
	return m.PublishCalls.Count
}
