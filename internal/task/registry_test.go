package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(_ context.Context, _ json.RawMessage) (*Outcome, error) {
	return &Outcome{Status: OutcomeSuccess}, nil
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(Definition{
		Type:    TypeProcess,
		Policy:  RetryPolicy{MaxAttempts: 3},
		Handler: noopHandler,
	})
	require.NoError(t, err)

	def, ok := registry.get(TypeProcess)
	require.True(t, ok)
	assert.Equal(t, TypeProcess, def.Type)
	assert.Nil(t, def.limiter)
}

func TestRegistry_RegisterWithRate(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(Definition{
		Type:          TypePublish,
		Policy:        RetryPolicy{MaxAttempts: 1},
		RatePerMinute: 30,
		Handler:       noopHandler,
	})
	require.NoError(t, err)

	def, ok := registry.get(TypePublish)
	require.True(t, ok)
	assert.NotNil(t, def.limiter)
}

func TestRegistry_RegisterRejectsInvalid(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(Definition{
		Policy:  RetryPolicy{MaxAttempts: 1},
		Handler: noopHandler,
	}), "empty type")

	assert.Error(t, registry.Register(Definition{
		Type:   TypeProcess,
		Policy: RetryPolicy{MaxAttempts: 1},
	}), "missing handler")

	assert.Error(t, registry.Register(Definition{
		Type:    TypeProcess,
		Handler: noopHandler,
	}), "zero attempts")
}

func TestRegistry_RegisterRejectsDuplicate(t *testing.T) {
	registry := NewRegistry()

	def := Definition{
		Type:    TypeProcess,
		Policy:  RetryPolicy{MaxAttempts: 1},
		Handler: noopHandler,
	}
	require.NoError(t, registry.Register(def))
	assert.Error(t, registry.Register(def))
}

func TestRegistry_Types(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(Definition{
		Type:    TypeProcess,
		Policy:  RetryPolicy{MaxAttempts: 1},
		Handler: noopHandler,
	}))
	require.NoError(t, registry.Register(Definition{
		Type:    TypePublish,
		Policy:  RetryPolicy{MaxAttempts: 1},
		Handler: noopHandler,
	}))

	types := registry.Types()
	assert.ElementsMatch(t, []string{TypeProcess, TypePublish}, types)
}
