package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// Sync executes jobs immediately in the caller's goroutine through the
// generic Invoker. It is the reference driver against whose success path
// other drivers are judged: same return value, same failure propagation.
//
// It stores nothing, so Pop, Size, and Clear are no-ops. Blocking: Push
// and Later return only after the job has finished executing.
type Sync struct {
	invoker  Invoker
	registry *job.Registry
	logger   *slog.Logger
}

var _ Driver = (*Sync)(nil)

// SyncOption configures the Sync driver.
type SyncOption func(*Sync)

// WithSyncLogger sets the logger for the driver.
func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(s *Sync) { s.logger = l }
}

// WithInvoker substitutes the dependency invoker. Defaults to a
// RegistryInvoker over the given registry.
func WithInvoker(inv Invoker) SyncOption {
	return func(s *Sync) { s.invoker = inv }
}

// NewSync creates a synchronous driver resolving handlers from the registry.
func NewSync(registry *job.Registry, opts ...SyncOption) *Sync {
	s := &Sync{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.invoker == nil {
		s.invoker = &RegistryInvoker{Registry: registry}
	}
	return s
}

// Push executes the job synchronously and returns its ID regardless of
// outcome. On handler failure the job's failure hook is invoked with the
// error, then the error is returned to the caller — this driver does not
// swallow failures.
func (s *Sync) Push(ctx context.Context, j *job.Job, queue string) (id.JobID, error) {
	if queue != "" {
		j.Queue = queue
	}

	now := time.Now().UTC()
	j.State = job.StateRunning
	j.Attempts++
	j.StartedAt = &now

	err := s.invoker.Invoke(ctx, j)

	done := time.Now().UTC()
	j.UpdatedAt = done
	j.CompletedAt = &done

	if err != nil {
		j.State = job.StateFailed
		j.LastError = err.Error()

		if hook := s.registry.FailureHook(j.Name); hook != nil {
			hook(ctx, j, err)
		}

		s.logger.Error("sync job failed",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
		return j.ID, err
	}

	j.State = job.StateSucceeded
	return j.ID, nil
}

// Later executes immediately: the delay is ignored by this driver. This is
// a documented divergence — persistent drivers must honor the delay; Sync
// exists for testing and low-latency paths where deferred semantics are
// not required.
func (s *Sync) Later(ctx context.Context, j *job.Job, _ time.Duration, queue string) (id.JobID, error) {
	return s.Push(ctx, j, queue)
}

// Pop always returns nil: this driver never stores anything.
func (s *Sync) Pop(_ context.Context, _ string) (*job.Job, error) { return nil, nil }

// Size is always zero: this driver never stores anything.
func (s *Sync) Size(_ context.Context, _ string) (int, error) { return 0, nil }

// Clear is a no-op: this driver never stores anything.
func (s *Sync) Clear(_ context.Context, _ string) error { return nil }
