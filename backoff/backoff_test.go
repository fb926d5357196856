package backoff_test

import (
	"testing"
	"time"

	"github.com/toporia/async/backoff"
)

func TestExponential_GrowsAsBasePowAttempt(t *testing.T) {
	e := backoff.NewExponential(2, 300*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},   // 2^1
		{2, 4 * time.Second},   // 2^2
		{3, 8 * time.Second},   // 2^3
		{5, 32 * time.Second},  // 2^5
		{8, 256 * time.Second}, // 2^8
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(2, 300*time.Second)

	// 2^9 = 512s > 300s max.
	if got := e.Delay(9); got != 300*time.Second {
		t.Errorf("Delay(9) = %v, want %v (capped at Max)", got, 300*time.Second)
	}
	if got := e.Delay(30); got != 300*time.Second {
		t.Errorf("Delay(30) = %v, want %v (capped at Max)", got, 300*time.Second)
	}
}

func TestExponential_ClampsAttemptToOne(t *testing.T) {
	e := backoff.NewExponential(2, 300*time.Second)

	for _, attempt := range []int{0, -1, -100} {
		if got := e.Delay(attempt); got != 2*time.Second {
			t.Errorf("Delay(%d) = %v, want %v (attempt clamped to 1)", attempt, got, 2*time.Second)
		}
	}
}

func TestExponential_JitterStaysWithinBand(t *testing.T) {
	e := backoff.NewExponentialWithJitter(2, 300*time.Second, 0.2)

	for attempt := 1; attempt <= 12; attempt++ {
		expected := time.Duration(1) * time.Second
		for i := 0; i < attempt; i++ {
			expected *= 2
		}
		if expected > 300*time.Second {
			expected = 300 * time.Second
		}

		lo := time.Duration(float64(expected) * 0.8)
		hi := time.Duration(float64(expected) * 1.2)

		for i := 0; i < 50; i++ {
			got := e.Delay(attempt)
			if got < lo || got > hi {
				t.Fatalf("Delay(%d) = %v, want within [%v, %v]", attempt, got, lo, hi)
			}
			if got < time.Second {
				t.Fatalf("Delay(%d) = %v, want >= 1s", attempt, got)
			}
		}
	}
}

func TestSequence_IndexesByAttempt(t *testing.T) {
	s := backoff.NewSequence(
		5*time.Second, 10*time.Second, 30*time.Second, 60*time.Second, 120*time.Second,
	)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{3, 30 * time.Second},
		{5, 120 * time.Second},
		{10, 120 * time.Second}, // clamped to last element
	}
	for _, tt := range tests {
		if got := s.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSequence_Empty(t *testing.T) {
	s := backoff.NewSequence()
	if got := s.Delay(3); got != 0 {
		t.Errorf("Delay(3) on empty sequence = %v, want 0", got)
	}
}

func TestFunc_Adapts(t *testing.T) {
	f := backoff.Func(func(attempt int) time.Duration {
		return time.Duration(attempt) * time.Minute
	})
	if got := f.Delay(3); got != 3*time.Minute {
		t.Errorf("Delay(3) = %v, want %v", got, 3*time.Minute)
	}
}

func TestDefaultStrategy_AlwaysAtLeastOneSecond(t *testing.T) {
	s := backoff.DefaultStrategy()
	for attempt := 1; attempt <= 20; attempt++ {
		if got := s.Delay(attempt); got < time.Second {
			t.Errorf("Delay(%d) = %v, want >= 1s", attempt, got)
		}
	}
}
