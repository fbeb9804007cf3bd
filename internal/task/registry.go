package task

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Definition declares one task type: how to execute it, how to retry it,
// and how fast the engine may start it. Rate ceilings protect the external
// collaborators behind each type (the origin site for processing, the
// remote CMS for publishing).
type Definition struct {
	Type          string
	Policy        RetryPolicy
	RatePerMinute int // 0 means unlimited
	Handler       HandlerFunc
}

// definition is the registered form, with the rate limiter built.
type definition struct {
	Definition
	limiter *rate.Limiter
}

// Registry routes task types to their definitions. Registration happens
// during startup wiring; lookups afterwards are concurrent with running
// workers, hence the lock.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*definition
}

// NewRegistry creates an empty task-type registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*definition),
	}
}

// Register adds a task type definition. Registering the same type twice or
// registering without a handler is a wiring bug and fails loudly.
func (r *Registry) Register(def Definition) error {
	if def.Type == "" {
		return fmt.Errorf("task type cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("task type %q has no handler", def.Type)
	}
	if def.Policy.MaxAttempts < 1 {
		return fmt.Errorf("task type %q must allow at least one attempt", def.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Type]; exists {
		return fmt.Errorf("task type %q already registered", def.Type)
	}

	registered := &definition{Definition: def}
	if def.RatePerMinute > 0 {
		// Burst of 1: starts are spaced evenly across the minute rather
		// than allowing a full-minute burst up front.
		registered.limiter = rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(def.RatePerMinute)), 1)
	}
	r.defs[def.Type] = registered

	return nil
}

// get returns the registered definition for the task type.
func (r *Registry) get(taskType string) (*definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[taskType]
	return def, ok
}

// Types lists the registered task types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	return types
}
