package failed

import (
	"context"
	"fmt"
	"time"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// Replay re-enqueues a failed entry as a new pending job and marks the
// entry as replayed. The new job gets a fresh ID, a zero attempt count,
// and runs immediately.
func (s *Service) Replay(ctx context.Context, entryID id.FailedID) (*job.Job, error) {
	if s.enqueuer == nil {
		return nil, fmt.Errorf("async/failed: replay: no enqueuer configured")
	}

	entry, err := s.store.GetFailed(ctx, entryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	j := &job.Job{
		ID:          id.NewJobID(),
		Name:        entry.JobName,
		Queue:       entry.Queue,
		Payload:     entry.Payload,
		State:       job.StatePending,
		MaxAttempts: entry.MaxAttempts,
		BatchID:     entry.BatchID,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.enqueuer.Push(ctx, j, j.Queue); err != nil {
		return nil, err
	}

	if err := s.store.ReplayFailed(ctx, entryID); err != nil {
		// The job is already enqueued. Return it alongside the error.
		return j, err
	}

	return j, nil
}
