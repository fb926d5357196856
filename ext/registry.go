package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobEnqueuedEntry struct {
	name string
	hook JobEnqueued
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobTimedOutEntry struct {
	name string
	hook JobTimedOut
}

type batchFinishedEntry struct {
	name string
	hook BatchFinished
}

type batchCancelledEntry struct {
	name string
	hook BatchCancelled
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	jobEnqueued    []jobEnqueuedEntry
	jobStarted     []jobStartedEntry
	jobCompleted   []jobCompletedEntry
	jobRetrying    []jobRetryingEntry
	jobFailed      []jobFailedEntry
	jobTimedOut    []jobTimedOutEntry
	batchFinished  []batchFinishedEntry
	batchCancelled []batchCancelledEntry
	shutdown       []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobEnqueued); ok {
		r.jobEnqueued = append(r.jobEnqueued, jobEnqueuedEntry{name, h})
	}
	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobTimedOut); ok {
		r.jobTimedOut = append(r.jobTimedOut, jobTimedOutEntry{name, h})
	}
	if h, ok := e.(BatchFinished); ok {
		r.batchFinished = append(r.batchFinished, batchFinishedEntry{name, h})
	}
	if h, ok := e.(BatchCancelled); ok {
		r.batchCancelled = append(r.batchCancelled, batchCancelledEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobEnqueued notifies all extensions that implement JobEnqueued.
func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	for _, e := range r.jobEnqueued {
		if err := e.hook.OnJobEnqueued(ctx, j); err != nil {
			r.logHookError("OnJobEnqueued", e.name, err)
		}
	}
}

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobRetrying notifies all extensions that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		if err := e.hook.OnJobRetrying(ctx, j, attempt, nextRunAt); err != nil {
			r.logHookError("OnJobRetrying", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobTimedOut notifies all extensions that implement JobTimedOut.
func (r *Registry) EmitJobTimedOut(ctx context.Context, j *job.Job) {
	for _, e := range r.jobTimedOut {
		if err := e.hook.OnJobTimedOut(ctx, j); err != nil {
			r.logHookError("OnJobTimedOut", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Batch event emitters
// ──────────────────────────────────────────────────

// EmitBatchFinished notifies all extensions that implement BatchFinished.
func (r *Registry) EmitBatchFinished(ctx context.Context, b *batch.Batch) {
	for _, e := range r.batchFinished {
		if err := e.hook.OnBatchFinished(ctx, b); err != nil {
			r.logHookError("OnBatchFinished", e.name, err)
		}
	}
}

// EmitBatchCancelled notifies all extensions that implement BatchCancelled.
func (r *Registry) EmitBatchCancelled(ctx context.Context, b *batch.Batch) {
	for _, e := range r.batchCancelled {
		if err := e.hook.OnBatchCancelled(ctx, b); err != nil {
			r.logHookError("OnBatchCancelled", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError records a hook failure without interrupting the pipeline.
func (r *Registry) logHookError(hook, extension string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extension),
		slog.String("error", err.Error()),
	)
}
