package async

import (
	"log/slog"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/ext"
	"github.com/toporia/async/queue"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) error {
		d.config = cfg
		return nil
	}
}

// WithLogger sets the structured logger for the dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = l
		return nil
	}
}

// WithDriver sets the queue driver jobs are submitted through.
func WithDriver(driver queue.Driver) Option {
	return func(d *Dispatcher) error {
		d.driver = driver
		return nil
	}
}

// WithBatchRepository sets the durable batch store. Required for
// Dispatcher.Batch and FindBatch.
func WithBatchRepository(repo batch.Repository) Option {
	return func(d *Dispatcher) error {
		d.repo = repo
		return nil
	}
}

// WithExtensions sets the lifecycle hook registry. Enqueue hooks fire
// after each successful submission.
func WithExtensions(hooks *ext.Registry) Option {
	return func(d *Dispatcher) error {
		d.hooks = hooks
		return nil
	}
}
