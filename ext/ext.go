// Package ext defines the extension system for the async layer.
// Extensions are notified of lifecycle events (job started, completed,
// failed, batch finished, etc.) and can react to them — logging, metrics,
// alerting, audit trails.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobEnqueued is called after a job is successfully enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when a job fails but is scheduled for retry.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobFailed is called when a job fails terminally (no more retries).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobTimedOut is called when an attempt is cut off by its execution
// deadline. It fires in addition to JobRetrying or JobFailed, so timeout
// failures stay distinguishable from handler-raised failures.
type JobTimedOut interface {
	OnJobTimedOut(ctx context.Context, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Batch lifecycle hooks
// ──────────────────────────────────────────────────

// BatchFinished is called when a batch's processed count reaches its total.
type BatchFinished interface {
	OnBatchFinished(ctx context.Context, b *batch.Batch) error
}

// BatchCancelled is called when a batch is cancelled.
type BatchCancelled interface {
	OnBatchCancelled(ctx context.Context, b *batch.Batch) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
