// Package lock provides a distributed mutex that prevents two schedules of
// the same logical task from running concurrently regardless of which
// process attempts it.
//
// The guard is a test-and-set lock backed by an atomic key-value store.
// Acquisition never blocks on contention: losers get false and are expected
// to skip the run. The TTL is a safety net against a holder crashing without
// releasing — after it elapses the lock is implicitly gone, so the guard
// provides at-least-one-runner exclusion, not a hard real-time guarantee
// beyond the TTL window. Size the TTL above the maximum expected task
// duration.
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store is the atomic key-value capability the guard requires.
type Store interface {
	// AddIfAbsent stores value under key with the given TTL only if the key
	// does not already exist, as a single atomic operation. A read-then-write
	// implementation is incorrect: it reopens the TOCTOU race this lock
	// exists to close.
	AddIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Exists reports whether the key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the key. Returns true if a key was removed.
	Delete(ctx context.Context, key string) (bool, error)
}

// keyPrefix namespaces guard keys in the backing store.
const keyPrefix = "mutex:"

// Guard is a cross-process execution guard keyed by task name.
// Safe for concurrent use.
type Guard struct {
	store  Store
	owner  string
	logger *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger for the guard.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// NewGuard creates a Guard over the given atomic store. Each Guard carries
// a unique owner token stored as the lock value for diagnostics.
func NewGuard(store Store, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		owner:  uuid.NewString(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Create attempts to acquire the lock for the named task. The lock expires
// after expiresAfterMinutes (stored as seconds in the backing store).
//
// Exactly one concurrent caller against the same store receives true; all
// others receive false, meaning "already running, do not proceed". A false
// result is a normal outcome, not an error.
func (g *Guard) Create(ctx context.Context, name string, expiresAfterMinutes int) (bool, error) {
	ttl := time.Duration(expiresAfterMinutes) * 60 * time.Second

	ok, err := g.store.AddIfAbsent(ctx, keyPrefix+name, g.owner, ttl)
	if err != nil {
		return false, err
	}

	if !ok {
		g.logger.Debug("execution guard contended",
			slog.String("task", name),
		)
	}
	return ok, nil
}

// Exists reports whether the named task currently holds an unexpired lock.
func (g *Guard) Exists(ctx context.Context, name string) (bool, error) {
	return g.store.Exists(ctx, keyPrefix+name)
}

// Release removes the lock for the named task. Returns true if a lock was
// held. Locks are only ever created or deleted, never updated in place.
func (g *Guard) Release(ctx context.Context, name string) (bool, error) {
	return g.store.Delete(ctx, keyPrefix+name)
}
