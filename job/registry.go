package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/toporia/async/backoff"
)

// HandlerFunc is a type-erased job handler that accepts raw JSON payload.
// The typed Definition[T] is converted to a HandlerFunc at registration
// time by closing over JSON unmarshal + the typed handler.
type HandlerFunc func(ctx context.Context, payload []byte) error

// FailureHook is a type-erased terminal-failure hook.
type FailureHook func(ctx context.Context, j *Job, jobErr error)

type entry struct {
	handler   HandlerFunc
	onFailure FailureHook
	backoff   backoff.Strategy
}

// Registry maps job names to type-erased handler functions, failure hooks,
// and per-job backoff strategies. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// RegisterDefinition registers a typed job definition. The generic handler
// is wrapped in a closure that JSON-unmarshals the payload into T before
// calling the typed handler; the failure hook is wrapped the same way.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	handler := func(ctx context.Context, payload []byte) error {
		t, err := decodePayload[T](def.Name, payload)
		if err != nil {
			return err
		}
		return def.Handler(ctx, t)
	}

	var onFailure FailureHook
	if def.OnFailure != nil {
		onFailure = func(ctx context.Context, j *Job, jobErr error) {
			t, err := decodePayload[T](def.Name, j.Payload)
			if err != nil {
				return
			}
			def.OnFailure(ctx, t, jobErr)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.Name] = entry{
		handler:   handler,
		onFailure: onFailure,
		backoff:   def.Opts.Backoff,
	}
}

func decodePayload[T any](name string, payload []byte) (T, error) {
	var t T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t); err != nil {
			return t, fmt.Errorf("unmarshal payload for job %q: %w", name, err)
		}
	}
	return t, nil
}

// Get returns the handler for the given job name.
// Returns false if no handler is registered.
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.handler, ok
}

// FailureHook returns the terminal-failure hook for the given job name,
// or nil if the definition did not set one.
func (r *Registry) FailureHook(name string) FailureHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].onFailure
}

// Backoff returns the per-job backoff strategy for the given job name,
// or nil if the definition did not set one.
func (r *Registry) Backoff(name string) backoff.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].backoff
}

// Names returns all registered job names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
