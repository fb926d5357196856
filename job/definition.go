package job

import "context"

// Definition is a typed job definition with a handler function.
// T is the payload type (must be JSON-serializable).
type Definition[T any] struct {
	// Name is the unique identifier for this job type.
	Name string

	// Handler is the function that processes the job payload.
	Handler func(ctx context.Context, payload T) error

	// OnFailure is invoked for side-effect cleanup when the job fails
	// terminally. Optional.
	OnFailure func(ctx context.Context, payload T, jobErr error)

	// Opts configures retries, queue, delay, timeout, and backoff.
	Opts Options
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](name string, handler func(ctx context.Context, payload T) error, opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Name:    name,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}

// WithFailureHook sets the terminal-failure hook and returns the definition
// for chaining.
func (d *Definition[T]) WithFailureHook(fn func(ctx context.Context, payload T, jobErr error)) *Definition[T] {
	d.OnFailure = fn
	return d
}

// NewJob builds a dispatchable Job for this definition with the given
// payload bytes, applying the definition's options.
func (d *Definition[T]) NewJob(payload []byte, opts ...Option) *Job {
	merged := make([]Option, 0, len(opts)+5)
	merged = append(merged,
		WithMaxAttempts(d.Opts.MaxAttempts),
		WithQueue(d.Opts.Queue),
		WithDelay(d.Opts.Delay),
		WithTimeout(d.Opts.Timeout),
		WithBackoff(d.Opts.Backoff),
	)
	merged = append(merged, opts...)
	return New(d.Name, payload, merged...)
}
