package job

import (
	"time"

	"github.com/toporia/async/backoff"
)

// DefaultQueue is the queue name used when none is configured.
const DefaultQueue = "default"

// Options configures per-job behavior such as retries, queue, and delay.
type Options struct {
	// MaxAttempts is the total number of execution attempts before the job
	// fails terminally.
	MaxAttempts int

	// Queue is the queue name this job should be enqueued to.
	Queue string

	// Delay defers the job's first execution.
	Delay time.Duration

	// Timeout is the maximum duration a single attempt may run before it is
	// cancelled and counted as a timeout failure.
	Timeout time.Duration

	// Backoff computes the delay before each retry. Nil means the executor's
	// default strategy.
	Backoff backoff.Strategy
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		Queue:       DefaultQueue,
		Timeout:     5 * time.Minute,
	}
}

// Option is a functional option for configuring a job.
type Option func(*Options)

// WithMaxAttempts sets the total number of execution attempts.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

// WithQueue sets the queue name for the job.
func WithQueue(q string) Option {
	return func(o *Options) {
		o.Queue = q
	}
}

// WithDelay defers the job's first execution.
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Delay = d
	}
}

// WithTimeout sets the maximum execution duration per attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithBackoff sets the retry delay strategy for the job.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *Options) {
		o.Backoff = s
	}
}
