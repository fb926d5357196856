package job

import (
	"time"

	"github.com/toporia/async/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting to be picked up by a worker.
	StatePending State = "pending"
	// StateRunning means a worker is currently executing the job.
	StateRunning State = "running"
	// StateSucceeded means the job finished successfully.
	StateSucceeded State = "succeeded"
	// StateRetrying means the job failed but is scheduled for retry.
	StateRetrying State = "retrying"
	// StateFailed means the job failed terminally and will not be retried.
	StateFailed State = "failed"
)

// Job represents a unit of deferred work: a handler name, target queue,
// delay, and retry budget. Within a single job the retry sequence is
// strictly sequential; no ordering is guaranteed across job instances.
type Job struct {
	ID          id.JobID      `json:"id"`
	Name        string        `json:"name"`
	Queue       string        `json:"queue"`
	Payload     []byte        `json:"payload,omitempty"`
	State       State         `json:"state"`
	Delay       time.Duration `json:"delay,omitempty"`
	MaxAttempts int           `json:"max_attempts"`
	Attempts    int           `json:"attempts"`
	LastError   string        `json:"last_error,omitempty"`
	BatchID     id.BatchID    `json:"batch_id,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	RunAt       time.Time     `json:"run_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Queueable is the capability a job must implement for queue and delay
// reconfiguration before dispatch. Dispatch-time configuration calls are
// no-ops for jobs that do not implement it; the check is resolved by the
// type system, not a runtime string test.
type Queueable interface {
	SetQueue(name string)
	SetDelay(d time.Duration)
}

var _ Queueable = (*Job)(nil)

// New creates a pending job for the named handler with the given payload.
func New(name string, payload []byte, opts ...Option) *Job {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	now := time.Now().UTC()
	return &Job{
		ID:          id.NewJobID(),
		Name:        name,
		Queue:       o.Queue,
		Payload:     payload,
		State:       StatePending,
		Delay:       o.Delay,
		MaxAttempts: o.MaxAttempts,
		Timeout:     o.Timeout,
		RunAt:       now.Add(o.Delay),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetQueue retargets the job to another queue. Part of the Queueable
// capability; only meaningful before dispatch.
func (j *Job) SetQueue(name string) { j.Queue = name }

// SetDelay defers the job's first execution. Part of the Queueable
// capability; only meaningful before dispatch.
func (j *Job) SetDelay(d time.Duration) {
	j.Delay = d
	j.RunAt = j.CreatedAt.Add(d)
}

// AttemptsExhausted reports whether the job has no retry budget left.
func (j *Job) AttemptsExhausted() bool { return j.Attempts >= j.MaxAttempts }
