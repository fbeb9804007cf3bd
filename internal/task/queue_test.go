package task

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.Default()
}

func TestQueue_EnqueueAndConsume(t *testing.T) {
	queue := NewQueue(2, newTestLogger())

	job := NewJob(TypeProcess, json.RawMessage(`{}`))
	require.NoError(t, queue.Enqueue(job))

	received := <-queue.GetChannel()
	assert.Equal(t, job.ID(), received.ID())
	assert.Equal(t, TypeProcess, received.Type())
}

func TestQueue_Full(t *testing.T) {
	queue := NewQueue(1, newTestLogger())

	require.NoError(t, queue.Enqueue(NewJob(TypeProcess, nil)))

	err := queue.Enqueue(NewJob(TypeProcess, nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueue_Closed(t *testing.T) {
	queue := NewQueue(1, newTestLogger())
	queue.Close()

	err := queue.Enqueue(NewJob(TypeProcess, nil))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	queue := NewQueue(1, newTestLogger())
	queue.Close()
	assert.NotPanics(t, func() { queue.Close() })
}
