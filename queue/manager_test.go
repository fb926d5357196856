package queue_test

import (
	"testing"

	"github.com/toporia/async/queue"
)

func TestManager_UnlimitedQueueAlwaysAcquires(t *testing.T) {
	m := queue.NewManager()

	for i := 0; i < 100; i++ {
		if !m.Acquire("anything") {
			t.Fatal("unlimited queue refused Acquire")
		}
	}
}

func TestManager_MaxConcurrency(t *testing.T) {
	m := queue.NewManager(queue.Config{Name: "mail", MaxConcurrency: 2})

	if !m.Acquire("mail") {
		t.Fatal("first Acquire refused")
	}
	if !m.Acquire("mail") {
		t.Fatal("second Acquire refused")
	}
	if m.Acquire("mail") {
		t.Error("third Acquire allowed past MaxConcurrency=2")
	}

	m.Release("mail")
	if !m.Acquire("mail") {
		t.Error("Acquire refused after Release")
	}
}

func TestManager_RateLimit(t *testing.T) {
	// Burst of 1 and a negligible refill rate: the second immediate
	// acquire must be refused.
	m := queue.NewManager(queue.Config{Name: "mail", RateLimit: 0.001, RateBurst: 1})

	if !m.Acquire("mail") {
		t.Fatal("first Acquire refused")
	}
	if m.Acquire("mail") {
		t.Error("second Acquire allowed past the rate limit")
	}
}

func TestManager_ActiveCount(t *testing.T) {
	m := queue.NewManager(queue.Config{Name: "mail", MaxConcurrency: 5})

	m.Acquire("mail")
	m.Acquire("mail")
	if got := m.ActiveCount("mail"); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}

	m.Release("mail")
	if got := m.ActiveCount("mail"); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
}

func TestManager_SetQueueConfigPreservesActive(t *testing.T) {
	m := queue.NewManager(queue.Config{Name: "mail", MaxConcurrency: 5})
	m.Acquire("mail")

	m.SetQueueConfig(queue.Config{Name: "mail", MaxConcurrency: 1})

	if got := m.ActiveCount("mail"); got != 1 {
		t.Errorf("ActiveCount = %d after reconfigure, want 1", got)
	}
	if m.Acquire("mail") {
		t.Error("Acquire allowed past the lowered MaxConcurrency")
	}
}
