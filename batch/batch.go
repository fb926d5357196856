// Package batch tracks the aggregate progress of a named group of jobs as a
// single entity: total, processed, and failed counters plus finished and
// cancelled timestamps.
//
// A Batch value is the authority for counters within a single process's
// view; an attached Repository is the durable owner across processes and
// must serialize concurrent IncrementCounts calls from different workers
// (an atomic add at the storage layer, never read-modify-write). The Batch
// value itself is not safe for concurrent use.
package batch

import (
	"context"
	"time"

	"github.com/toporia/async/id"
)

// Batch is the in-memory aggregate of a job group's progress.
type Batch struct {
	ID            id.BatchID     `json:"id"`
	Name          string         `json:"name"`
	TotalJobs     int            `json:"total_jobs"`
	ProcessedJobs int            `json:"processed_jobs"`
	FailedJobs    int            `json:"failed_jobs"`
	Options       map[string]any `json:"options,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	CancelledAt   *time.Time     `json:"cancelled_at,omitempty"`

	repo Repository
}

// Repository is the durable persistence capability for batches.
type Repository interface {
	// StoreBatch persists a new batch.
	StoreBatch(ctx context.Context, b *Batch) error

	// FindBatch retrieves a batch by ID, or ErrBatchNotFound.
	FindBatch(ctx context.Context, batchID id.BatchID) (*Batch, error)

	// UpdateBatch persists a whole-object snapshot of an existing batch.
	UpdateBatch(ctx context.Context, b *Batch) error

	// DeleteBatch removes a batch by ID.
	DeleteBatch(ctx context.Context, batchID id.BatchID) error

	// IncrementBatchCounts atomically adds the deltas to the durable
	// counters. Implementations MUST use an atomic add so counters tolerate
	// concurrent writers from many workers.
	IncrementBatchCounts(ctx context.Context, batchID id.BatchID, processedDelta, failedDelta int) error
}

// Option configures a Batch at construction time.
type Option func(*Batch)

// WithRepository attaches a durable repository. Counter deltas and
// cancellation snapshots are written through to it.
func WithRepository(repo Repository) Option {
	return func(b *Batch) { b.repo = repo }
}

// WithOptions sets the free-form options map.
func WithOptions(opts map[string]any) Option {
	return func(b *Batch) { b.Options = opts }
}

// New creates a Batch with the given name and fixed total job count.
func New(name string, totalJobs int, opts ...Option) *Batch {
	b := &Batch{
		ID:        id.NewBatchID(),
		Name:      name,
		TotalJobs: totalJobs,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach sets the repository after construction. Used when a batch is
// loaded from the durable store rather than built locally.
func (b *Batch) Attach(repo Repository) { b.repo = repo }

// IncrementCounts advances the processed and failed counters and forwards
// the same delta to the repository so the in-memory and durable views move
// together. The first time the post-increment processed count reaches the
// total, FinishedAt is set; it is never unset or re-derived afterwards.
//
// Callers must not over-report: ProcessedJobs > TotalJobs is not clamped.
// A (0,0) call changes nothing, including FinishedAt.
func (b *Batch) IncrementCounts(ctx context.Context, processed, failed int) error {
	b.ProcessedJobs += processed
	b.FailedJobs += failed

	if b.FinishedAt == nil && b.TotalJobs > 0 && b.ProcessedJobs >= b.TotalJobs {
		now := time.Now().UTC()
		b.FinishedAt = &now
	}

	if b.repo == nil || (processed == 0 && failed == 0) {
		return nil
	}
	return b.repo.IncrementBatchCounts(ctx, b.ID, processed, failed)
}

// Cancel flags the batch as cancelled and persists a full snapshot through
// the repository's update path. Cancellation is a whole-object state change
// by a single administrative actor, not a counter delta, so it does not use
// the atomic-increment path. Once set, CancelledAt is never unset.
//
// Cancellation is advisory: jobs already dispatched are not stopped.
// Executors that check batch state before running are expected to treat a
// cancelled batch as "skip, count as neither processed nor failed".
func (b *Batch) Cancel(ctx context.Context) error {
	if b.CancelledAt == nil {
		now := time.Now().UTC()
		b.CancelledAt = &now
	}

	if b.repo == nil {
		return nil
	}
	return b.repo.UpdateBatch(ctx, b)
}

// Progress returns the integer completion percentage. An empty batch is
// vacuously complete: 100 when TotalJobs is zero.
func (b *Batch) Progress() int {
	if b.TotalJobs == 0 {
		return 100
	}
	return b.ProcessedJobs * 100 / b.TotalJobs
}

// Finished reports whether the batch has reached its total.
// An empty batch never auto-finishes; FinishedAt stays nil.
func (b *Batch) Finished() bool { return b.FinishedAt != nil }

// Cancelled reports whether the batch has been cancelled.
func (b *Batch) Cancelled() bool { return b.CancelledAt != nil }

// HasFailures reports whether any job in the batch failed terminally.
func (b *Batch) HasFailures() bool { return b.FailedJobs > 0 }

// PendingJobs returns TotalJobs − ProcessedJobs. May be transiently
// negative if a caller over-reports; the value is deliberately not clamped
// so the defect is observable.
func (b *Batch) PendingJobs() int { return b.TotalJobs - b.ProcessedJobs }
