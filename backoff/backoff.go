// Package backoff provides pluggable retry delay strategies for job execution.
// All strategies are safe for concurrent use (they are stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential grows the delay as Base^attempt seconds, capped at Max.
// With Jitter enabled the capped delay is perturbed by a uniformly random
// amount in [-delay*JitterFactor, +delay*JitterFactor] and clamped to a
// minimum of one second, decorrelating simultaneous retries.
type Exponential struct {
	Base         float64
	Max          time.Duration
	Jitter       bool
	JitterFactor float64
}

// NewExponential creates a jitterless exponential backoff strategy.
func NewExponential(base float64, maxDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Max: maxDelay}
}

// NewExponentialWithJitter creates an exponential backoff with ±factor jitter.
func NewExponentialWithJitter(base float64, maxDelay time.Duration, factor float64) *Exponential {
	return &Exponential{Base: base, Max: maxDelay, Jitter: true, JitterFactor: factor}
}

// Delay returns min(Base^attempt, Max) seconds, jittered when enabled.
// Attempts below 1 are clamped to 1.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := time.Duration(math.Pow(e.Base, float64(attempt))) * time.Second
	if e.Max > 0 && d > e.Max {
		d = e.Max
	}

	if !e.Jitter {
		return d
	}

	// Uniform in [-d*factor, +d*factor].
	spread := float64(d) * e.JitterFactor
	d += time.Duration((rand.Float64()*2 - 1) * spread) //nolint:gosec // jitter intentionally uses non-crypto rand
	if d < time.Second {
		d = time.Second
	}
	return d
}

// ──────────────────────────────────────────────────
// Sequence
// ──────────────────────────────────────────────────

// Sequence returns a fixed ordered list of delays indexed by attempt.
// Attempts beyond the end of the list are clamped to the last element,
// which lets callers encode non-monotonic, domain-specific policies.
type Sequence struct {
	Delays []time.Duration
}

// NewSequence creates a sequence backoff strategy. The list must be
// non-empty; a nil or empty list yields zero delays.
func NewSequence(delays ...time.Duration) *Sequence {
	return &Sequence{Delays: delays}
}

// Delay returns Delays[attempt-1], clamped to the last element.
func (s *Sequence) Delay(attempt int) time.Duration {
	if len(s.Delays) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(s.Delays) {
		attempt = len(s.Delays)
	}
	return s.Delays[attempt-1]
}

// ──────────────────────────────────────────────────
// Func
// ──────────────────────────────────────────────────

// Func adapts an arbitrary function into a Strategy.
type Func func(attempt int) time.Duration

// Delay calls the wrapped function.
func (f Func) Delay(attempt int) time.Duration { return f(attempt) }

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default backoff used by the executor:
// Exponential with base 2, a 300s cap, and ±20% jitter.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(2, 300*time.Second, 0.2)
}
