// Package worker provides the job execution engine — an Executor that
// invokes registered handlers through middleware, and a Pool that
// manages concurrent worker goroutines polling for jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/toporia/async/backoff"
	"github.com/toporia/async/batch"
	"github.com/toporia/async/ext"
	"github.com/toporia/async/failed"
	"github.com/toporia/async/job"
	"github.com/toporia/async/middleware"
	"github.com/toporia/async/queue"
)

// Executor runs a single job through middleware and the registered handler,
// then handles retry scheduling, failed-job recording, batch accounting,
// and lifecycle events.
type Executor struct {
	registry   *job.Registry
	extensions *ext.Registry
	driver     queue.Driver
	repo       batch.Repository
	failedSvc  *failed.Service
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor. The batch repository and failed
// service are optional; without them batch accounting and failed-job
// recording are skipped.
func NewExecutor(
	registry *job.Registry,
	extensions *ext.Registry,
	driver queue.Driver,
	repo batch.Repository,
	failedSvc *failed.Service,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if bo == nil {
		bo = backoff.DefaultStrategy()
	}
	return &Executor{
		registry:   registry,
		extensions: extensions,
		driver:     driver,
		repo:       repo,
		failedSvc:  failedSvc,
		backoff:    bo,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs a job through the middleware chain and handler. The call
// consumes one attempt from the job's retry budget.
//
// On success: marks the job succeeded, records batch progress, emits
// JobCompleted. On failure with attempts remaining: re-enqueues the job
// with a backoff delay, emits JobRetrying. On failure with attempts
// exhausted: records the failure, counts it against the batch, emits
// JobFailed (and JobTimedOut for deadline failures).
//
// Jobs belonging to a cancelled batch are skipped and counted as
// neither processed nor failed.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	skip, err := e.batchCancelled(ctx, j)
	if err != nil {
		return err
	}
	if skip {
		e.logger.Info("skipping job of cancelled batch",
			slog.String("job_id", j.ID.String()),
			slog.String("batch_id", j.BatchID.String()),
		)
		return nil
	}

	handler, ok := e.registry.Get(j.Name)
	if !ok {
		return &queue.UnknownJobError{Name: j.Name}
	}

	now := time.Now().UTC()
	j.Attempts++
	j.State = job.StateRunning
	j.StartedAt = &now
	j.UpdatedAt = now

	start := time.Now()

	// The terminal handler that calls the registered job handler.
	terminal := func(ctx context.Context) error {
		return handler(ctx, j.Payload)
	}

	execErr := e.mw(ctx, j, terminal)
	elapsed := time.Since(start)

	now = time.Now().UTC()
	j.UpdatedAt = now

	if execErr != nil {
		return e.handleFailure(ctx, j, execErr, now)
	}

	return e.handleSuccess(ctx, j, now, elapsed)
}

// batchCancelled reports whether the job belongs to a cancelled batch.
func (e *Executor) batchCancelled(ctx context.Context, j *job.Job) (bool, error) {
	if e.repo == nil || j.BatchID.IsNil() {
		return false, nil
	}
	b, err := e.repo.FindBatch(ctx, j.BatchID)
	if err != nil {
		return false, fmt.Errorf("worker: load batch %s: %w", j.BatchID, err)
	}
	return b.Cancelled(), nil
}

// handleSuccess marks the job as succeeded, records batch progress, and
// emits the lifecycle event.
func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	j.State = job.StateSucceeded
	j.CompletedAt = &now

	e.recordBatchOutcome(ctx, j, 1, 0)
	e.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

// handleFailure either schedules a retry or records a terminal failure.
// Timeout failures follow the same attempt arithmetic but are surfaced
// as a distinct kind in hooks and logs.
func (e *Executor) handleFailure(ctx context.Context, j *job.Job, handlerErr error, now time.Time) error {
	j.LastError = handlerErr.Error()

	if !j.AttemptsExhausted() {
		return e.scheduleRetry(ctx, j, handlerErr, now)
	}
	return e.recordTerminalFailure(ctx, j, handlerErr)
}

// scheduleRetry re-enqueues the job with a computed backoff delay.
func (e *Executor) scheduleRetry(ctx context.Context, j *job.Job, handlerErr error, now time.Time) error {
	delay := e.backoffFor(j).Delay(j.Attempts)
	nextRunAt := now.Add(delay)
	j.State = job.StateRetrying
	j.RunAt = nextRunAt

	if _, err := e.driver.Later(ctx, j, delay, j.Queue); err != nil {
		e.logger.Error("failed to re-enqueue job for retry",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("worker: re-enqueue %s: %w", j.ID, err)
	}

	e.extensions.EmitJobRetrying(ctx, j, j.Attempts, nextRunAt)

	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempt", j.Attempts),
		slog.Int("max_attempts", j.MaxAttempts),
		slog.Duration("delay", delay),
		slog.Bool("timed_out", errors.Is(handlerErr, context.DeadlineExceeded)),
	)

	// The failure is absorbed by the retry; the original caller of
	// Dispatch never sees it.
	return nil
}

// recordTerminalFailure marks the job failed, fires the failure hook,
// stores a failed-job entry, counts the failure against the batch, and
// emits lifecycle events.
func (e *Executor) recordTerminalFailure(ctx context.Context, j *job.Job, handlerErr error) error {
	j.State = job.StateFailed

	if hook := e.registry.FailureHook(j.Name); hook != nil {
		hook(ctx, j, handlerErr)
	}

	if e.failedSvc != nil {
		if pushErr := e.failedSvc.Push(ctx, j, handlerErr); pushErr != nil {
			e.logger.Error("failed to record failed job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", pushErr.Error()),
			)
		}
	}

	e.recordBatchOutcome(ctx, j, 1, 1)

	if errors.Is(handlerErr, context.DeadlineExceeded) {
		e.extensions.EmitJobTimedOut(ctx, j)
	}
	e.extensions.EmitJobFailed(ctx, j, handlerErr)

	e.logger.Warn("job failed terminally",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempts", j.Attempts),
		slog.Bool("timed_out", errors.Is(handlerErr, context.DeadlineExceeded)),
		slog.String("error", handlerErr.Error()),
	)

	return handlerErr
}

// recordBatchOutcome forwards a terminal outcome to the batch counters
// and emits BatchFinished when the increment completes the batch.
func (e *Executor) recordBatchOutcome(ctx context.Context, j *job.Job, processed, failedCount int) {
	if e.repo == nil || j.BatchID.IsNil() {
		return
	}

	if err := e.repo.IncrementBatchCounts(ctx, j.BatchID, processed, failedCount); err != nil {
		e.logger.Error("failed to record batch progress",
			slog.String("job_id", j.ID.String()),
			slog.String("batch_id", j.BatchID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	b, err := e.repo.FindBatch(ctx, j.BatchID)
	if err != nil {
		e.logger.Error("failed to reload batch",
			slog.String("batch_id", j.BatchID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	// Emit only on the increment that completed the batch, not on
	// over-reported increments past the total.
	if b.Finished() && b.ProcessedJobs == b.TotalJobs {
		e.extensions.EmitBatchFinished(ctx, b)
	}
}

// backoffFor returns the job's registered strategy, falling back to the
// executor default.
func (e *Executor) backoffFor(j *job.Job) backoff.Strategy {
	if s := e.registry.Backoff(j.Name); s != nil {
		return s
	}
	return e.backoff
}
