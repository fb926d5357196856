package schedule

import (
	"context"
	"sync"
	"time"
)

// Func is the work a scheduled task performs on each firing.
type Func func(ctx context.Context) error

// Task is a named recurring task bound to a cron expression.
// Tasks are registered with a Scheduler and fired on its tick loop.
type Task struct {
	name string
	expr string
	run  Func

	// withoutOverlapping guards each firing with a cross-process mutex
	// keyed by the task name. Contended firings are skipped, not queued.
	withoutOverlapping bool
	lockTTLMinutes     int

	mu        sync.Mutex
	nextRunAt time.Time
	lastRunAt time.Time
}

// TaskOption configures a Task at registration time.
type TaskOption func(*Task)

// WithoutOverlapping prevents two firings of the same task from running
// concurrently, across processes sharing the same lock store. The TTL is
// a crash safety net and must exceed the task's maximum expected runtime.
func WithoutOverlapping(ttlMinutes int) TaskOption {
	return func(t *Task) {
		t.withoutOverlapping = true
		t.lockTTLMinutes = ttlMinutes
	}
}

// Name returns the task's registered name.
func (t *Task) Name() string { return t.name }

// Expression returns the task's cron expression.
func (t *Task) Expression() string { return t.expr }

// NextRunAt returns the next scheduled firing time.
func (t *Task) NextRunAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextRunAt
}

// LastRunAt returns the time of the most recent firing, or the zero time
// if the task has never fired.
func (t *Task) LastRunAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRunAt
}

// due reports whether the task should fire at now, and if so advances
// the bookkeeping to next.
func (t *Task) due(now, next time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nextRunAt.After(now) {
		return false
	}
	t.lastRunAt = now
	t.nextRunAt = next
	return true
}

func (t *Task) setNextRun(at time.Time) {
	t.mu.Lock()
	t.nextRunAt = at
	t.mu.Unlock()
}
