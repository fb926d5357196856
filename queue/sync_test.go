package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/toporia/async/job"
	"github.com/toporia/async/queue"
)

func TestSync_PushExecutesImmediately(t *testing.T) {
	r := job.NewRegistry()
	ran := false
	job.RegisterDefinition(r, job.NewDefinition("ping", func(_ context.Context, _ struct{}) error {
		ran = true
		return nil
	}))

	s := queue.NewSync(r)
	j := job.New("ping", nil)

	gotID, err := s.Push(context.Background(), j, "default")
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if !ran {
		t.Error("handler did not run")
	}
	if gotID.String() != j.ID.String() {
		t.Errorf("returned ID %q, want %q", gotID.String(), j.ID.String())
	}
	if j.State != job.StateSucceeded {
		t.Errorf("State = %q, want %q", j.State, job.StateSucceeded)
	}
	if j.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", j.Attempts)
	}
}

func TestSync_FailurePropagatesAndFiresHook(t *testing.T) {
	r := job.NewRegistry()
	handlerErr := errors.New("boom")
	hookFired := false

	def := job.NewDefinition("explode", func(_ context.Context, _ struct{}) error {
		return handlerErr
	}).WithFailureHook(func(_ context.Context, _ struct{}, jobErr error) {
		hookFired = true
		if !errors.Is(jobErr, handlerErr) {
			t.Errorf("hook error = %v, want %v", jobErr, handlerErr)
		}
	})
	job.RegisterDefinition(r, def)

	s := queue.NewSync(r)
	j := job.New("explode", nil)

	gotID, err := s.Push(context.Background(), j, "default")
	if !errors.Is(err, handlerErr) {
		t.Errorf("Push error = %v, want %v (failures are re-raised, not swallowed)", err, handlerErr)
	}
	if gotID.String() != j.ID.String() {
		t.Errorf("ID returned even on failure: got %q, want %q", gotID.String(), j.ID.String())
	}
	if !hookFired {
		t.Error("failure hook did not fire")
	}
	if j.State != job.StateFailed {
		t.Errorf("State = %q, want %q", j.State, job.StateFailed)
	}
}

func TestSync_LaterIgnoresDelay(t *testing.T) {
	r := job.NewRegistry()
	ran := false
	job.RegisterDefinition(r, job.NewDefinition("ping", func(_ context.Context, _ struct{}) error {
		ran = true
		return nil
	}))

	s := queue.NewSync(r)

	start := time.Now()
	if _, err := s.Later(context.Background(), job.New("ping", nil), time.Hour, "default"); err != nil {
		t.Fatalf("Later error: %v", err)
	}
	if !ran {
		t.Error("handler did not run")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Later blocked for %v; the sync driver must ignore the delay", elapsed)
	}
}

func TestSync_UnknownJob(t *testing.T) {
	s := queue.NewSync(job.NewRegistry())

	_, err := s.Push(context.Background(), job.New("ghost", nil), "default")
	var unknown *queue.UnknownJobError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want *UnknownJobError", err)
	}
	if unknown.Name != "ghost" {
		t.Errorf("unknown job name = %q, want %q", unknown.Name, "ghost")
	}
}

func TestSync_StorageOpsAreNoops(t *testing.T) {
	ctx := context.Background()
	s := queue.NewSync(job.NewRegistry())

	if j, err := s.Pop(ctx, "default"); err != nil || j != nil {
		t.Errorf("Pop = (%v, %v), want (nil, nil)", j, err)
	}
	if n, err := s.Size(ctx, "default"); err != nil || n != 0 {
		t.Errorf("Size = (%d, %v), want (0, nil)", n, err)
	}
	if err := s.Clear(ctx, "default"); err != nil {
		t.Errorf("Clear error: %v", err)
	}
}
