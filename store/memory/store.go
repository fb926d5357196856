// Package memory is a fully in-memory store backend. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/toporia/async"
	"github.com/toporia/async/batch"
	"github.com/toporia/async/failed"
	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
	"github.com/toporia/async/lock"
	"github.com/toporia/async/queue"
	"github.com/toporia/async/store"
)

// Compile-time interface checks.
var (
	_ queue.Driver     = (*Store)(nil)
	_ batch.Repository = (*Store)(nil)
	_ lock.Store       = (*Store)(nil)
	_ failed.Store     = (*Store)(nil)
	_ store.Store      = (*Store)(nil)
)

// lockEntry is a guard key with its expiry.
type lockEntry struct {
	value     string
	expiresAt time.Time
}

// Store is an in-memory implementation of every subsystem store.
type Store struct {
	mu sync.Mutex

	queues   map[string][]*job.Job
	batches  map[string]*batch.Batch
	locks    map[string]lockEntry
	failures map[string]*failed.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		queues:   make(map[string][]*job.Job),
		batches:  make(map[string]*batch.Batch),
		locks:    make(map[string]lockEntry),
		failures: make(map[string]*failed.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Queue Driver
// ──────────────────────────────────────────────────

// Push appends a job to the named queue, runnable immediately.
func (m *Store) Push(_ context.Context, j *job.Job, queueName string) (id.JobID, error) {
	return m.enqueue(j, queueName, 0)
}

// Later appends a job to the named queue, runnable after the delay.
func (m *Store) Later(_ context.Context, j *job.Job, delay time.Duration, queueName string) (id.JobID, error) {
	return m.enqueue(j, queueName, delay)
}

func (m *Store) enqueue(j *job.Job, queueName string, delay time.Duration) (id.JobID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if queueName == "" {
		queueName = job.DefaultQueue
	}

	cp := *j
	cp.Queue = queueName
	if delay > 0 {
		cp.RunAt = time.Now().UTC().Add(delay)
	}
	m.queues[queueName] = append(m.queues[queueName], &cp)
	return cp.ID, nil
}

// Pop claims the next runnable job on the queue, or nil when no job
// is runnable yet.
func (m *Store) Pop(_ context.Context, queueName string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := m.queues[queueName]
	now := time.Now().UTC()
	for i, j := range jobs {
		if !j.RunAt.IsZero() && j.RunAt.After(now) {
			continue
		}
		m.queues[queueName] = append(jobs[:i], jobs[i+1:]...)
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

// Size reports the number of stored jobs on the queue, including
// delayed jobs that are not yet runnable.
func (m *Store) Size(_ context.Context, queueName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queues[queueName]), nil
}

// Clear drops every job on the queue.
func (m *Store) Clear(_ context.Context, queueName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.queues, queueName)
	return nil
}

// ──────────────────────────────────────────────────
// Batch Repository
// ──────────────────────────────────────────────────

// StoreBatch persists a new batch.
func (m *Store) StoreBatch(_ context.Context, b *batch.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := b.ID.String()
	if _, exists := m.batches[key]; exists {
		return async.ErrBatchAlreadyExists
	}
	cp := *b
	m.batches[key] = &cp
	return nil
}

// FindBatch retrieves a batch by ID.
func (m *Store) FindBatch(_ context.Context, batchID id.BatchID) (*batch.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID.String()]
	if !ok {
		return nil, async.ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

// UpdateBatch persists a whole-object snapshot of an existing batch.
func (m *Store) UpdateBatch(_ context.Context, b *batch.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := b.ID.String()
	if _, ok := m.batches[key]; !ok {
		return async.ErrBatchNotFound
	}
	cp := *b
	m.batches[key] = &cp
	return nil
}

// DeleteBatch removes a batch by ID.
func (m *Store) DeleteBatch(_ context.Context, batchID id.BatchID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := batchID.String()
	if _, ok := m.batches[key]; !ok {
		return async.ErrBatchNotFound
	}
	delete(m.batches, key)
	return nil
}

// IncrementBatchCounts atomically adds the deltas to the durable
// counters. The first time the processed count reaches the total the
// durable FinishedAt is stamped, and never touched again.
func (m *Store) IncrementBatchCounts(_ context.Context, batchID id.BatchID, processedDelta, failedDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID.String()]
	if !ok {
		return async.ErrBatchNotFound
	}
	b.ProcessedJobs += processedDelta
	b.FailedJobs += failedDelta
	if b.FinishedAt == nil && b.TotalJobs > 0 && b.ProcessedJobs >= b.TotalJobs {
		now := time.Now().UTC()
		b.FinishedAt = &now
	}
	return nil
}

// ──────────────────────────────────────────────────
// Lock Store
// ──────────────────────────────────────────────────

// AddIfAbsent stores value under key with the given TTL only if the
// key is absent or expired. Atomic under the store mutex.
func (m *Store) AddIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if e, ok := m.locks[key]; ok && e.expiresAt.After(now) {
		return false, nil
	}
	m.locks[key] = lockEntry{value: value, expiresAt: now.Add(ttl)}
	return true, nil
}

// Exists reports whether the key is present and unexpired.
func (m *Store) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.After(time.Now().UTC()) {
		delete(m.locks, key)
		return false, nil
	}
	return true, nil
}

// Delete removes the key. Returns true if an unexpired key was removed.
func (m *Store) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	delete(m.locks, key)
	return e.expiresAt.After(time.Now().UTC()), nil
}

// ──────────────────────────────────────────────────
// Failed Store
// ──────────────────────────────────────────────────

// PushFailed appends a failed-job entry.
func (m *Store) PushFailed(_ context.Context, entry *failed.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.failures[entry.ID.String()] = &cp
	return nil
}

// ListFailed returns entries matching the given options, oldest first.
func (m *Store) ListFailed(_ context.Context, opts failed.ListOpts) ([]*failed.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*failed.Entry, 0, len(m.failures))
	for _, e := range m.failures {
		if opts.Queue != "" && e.Queue != opts.Queue {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].FailedAt.Before(result[k].FailedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// GetFailed retrieves a failed entry by ID.
func (m *Store) GetFailed(_ context.Context, entryID id.FailedID) (*failed.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.failures[entryID.String()]
	if !ok {
		return nil, async.ErrFailedEntryNotFound
	}
	cp := *e
	return &cp, nil
}

// ReplayFailed marks a failed entry as replayed.
func (m *Store) ReplayFailed(_ context.Context, entryID id.FailedID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.failures[entryID.String()]
	if !ok {
		return async.ErrFailedEntryNotFound
	}
	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// PurgeFailed removes entries with FailedAt before the given time.
func (m *Store) PurgeFailed(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, e := range m.failures {
		if e.FailedAt.Before(before) {
			delete(m.failures, key)
			count++
		}
	}
	return count, nil
}

// CountFailed returns the total number of failed entries.
func (m *Store) CountFailed(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.failures)), nil
}
