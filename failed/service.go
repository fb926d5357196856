package failed

import (
	"context"
	"errors"
	"time"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// Enqueuer pushes a job onto a queue. Satisfied by queue.Driver.
type Enqueuer interface {
	Push(ctx context.Context, j *job.Job, queue string) (id.JobID, error)
}

// Service provides high-level failed-job operations over a Store.
type Service struct {
	store    Store
	enqueuer Enqueuer
}

// NewService creates a failed-job service. The enqueuer is used by
// Replay and may be nil when replay is not needed.
func NewService(store Store, enqueuer Enqueuer) *Service {
	return &Service{store: store, enqueuer: enqueuer}
}

// Push builds an Entry from a failed job and persists it. The error
// string is captured from the original handler error.
func (s *Service) Push(ctx context.Context, j *job.Job, jobErr error) error {
	now := time.Now().UTC()
	entry := &Entry{
		ID:          id.NewFailedID(),
		JobID:       j.ID,
		JobName:     j.Name,
		Queue:       j.Queue,
		Payload:     j.Payload,
		Error:       jobErr.Error(),
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		TimedOut:    errors.Is(jobErr, context.DeadlineExceeded),
		BatchID:     j.BatchID,
		FailedAt:    now,
		CreatedAt:   now,
	}
	return s.store.PushFailed(ctx, entry)
}

// Store returns the underlying store for direct access to List, Get,
// Purge, and Count operations.
func (s *Service) Store() Store {
	return s.store
}
