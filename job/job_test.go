package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/toporia/async/job"
)

func TestNew_Defaults(t *testing.T) {
	j := job.New("send-email", nil)

	if j.ID.IsNil() {
		t.Error("expected a generated ID")
	}
	if j.Queue != job.DefaultQueue {
		t.Errorf("Queue = %q, want %q", j.Queue, job.DefaultQueue)
	}
	if j.State != job.StatePending {
		t.Errorf("State = %q, want %q", j.State, job.StatePending)
	}
	if j.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", j.MaxAttempts)
	}
	if j.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", j.Attempts)
	}
}

func TestNew_Options(t *testing.T) {
	j := job.New("send-email", []byte(`{}`),
		job.WithQueue("mail"),
		job.WithMaxAttempts(5),
		job.WithDelay(30*time.Second),
		job.WithTimeout(time.Minute),
	)

	if j.Queue != "mail" {
		t.Errorf("Queue = %q, want %q", j.Queue, "mail")
	}
	if j.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", j.MaxAttempts)
	}
	if j.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m", j.Timeout)
	}
	if got := j.RunAt.Sub(j.CreatedAt); got != 30*time.Second {
		t.Errorf("RunAt offset = %v, want 30s", got)
	}
}

func TestJob_QueueableReconfiguration(t *testing.T) {
	j := job.New("send-email", nil)

	// Compile-time capability: *Job satisfies Queueable.
	var q job.Queueable = j
	q.SetQueue("reports")
	q.SetDelay(time.Minute)

	if j.Queue != "reports" {
		t.Errorf("Queue = %q, want %q", j.Queue, "reports")
	}
	if got := j.RunAt.Sub(j.CreatedAt); got != time.Minute {
		t.Errorf("RunAt offset = %v, want 1m", got)
	}
}

func TestJob_AttemptsExhausted(t *testing.T) {
	j := job.New("send-email", nil, job.WithMaxAttempts(3))

	for _, tt := range []struct {
		attempts int
		want     bool
	}{
		{0, false},
		{2, false},
		{3, true},
		{4, true},
	} {
		j.Attempts = tt.attempts
		if got := j.AttemptsExhausted(); got != tt.want {
			t.Errorf("AttemptsExhausted() with attempts=%d = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestDefinition_NewJob(t *testing.T) {
	def := job.NewDefinition("resize-image",
		func(_ context.Context, _ struct{}) error { return nil },
		job.WithQueue("images"),
		job.WithMaxAttempts(7),
	)

	j := def.NewJob([]byte(`{}`))
	if j.Name != "resize-image" {
		t.Errorf("Name = %q, want %q", j.Name, "resize-image")
	}
	if j.Queue != "images" {
		t.Errorf("Queue = %q, want %q", j.Queue, "images")
	}
	if j.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", j.MaxAttempts)
	}

	// Per-call options override the definition.
	j = def.NewJob(nil, job.WithQueue("thumbnails"))
	if j.Queue != "thumbnails" {
		t.Errorf("Queue = %q, want %q", j.Queue, "thumbnails")
	}
}
