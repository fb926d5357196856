package batch_test

import (
	"context"
	"testing"

	"github.com/toporia/async/batch"
	"github.com/toporia/async/id"
)

// recordingRepo captures repository calls for assertions.
type recordingRepo struct {
	increments [][2]int
	updates    int
}

func (r *recordingRepo) StoreBatch(_ context.Context, _ *batch.Batch) error  { return nil }
func (r *recordingRepo) UpdateBatch(_ context.Context, _ *batch.Batch) error { r.updates++; return nil }
func (r *recordingRepo) DeleteBatch(_ context.Context, _ id.BatchID) error   { return nil }

func (r *recordingRepo) FindBatch(_ context.Context, _ id.BatchID) (*batch.Batch, error) {
	return nil, nil
}

func (r *recordingRepo) IncrementBatchCounts(_ context.Context, _ id.BatchID, processed, failed int) error {
	r.increments = append(r.increments, [2]int{processed, failed})
	return nil
}

func TestBatch_ProgressAndFinish(t *testing.T) {
	ctx := context.Background()
	b := batch.New("imports", 10)

	if err := b.IncrementCounts(ctx, 3, 0); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	if got := b.Progress(); got != 30 {
		t.Errorf("Progress() = %d, want 30", got)
	}
	if b.Finished() {
		t.Error("Finished() = true at 3/10, want false")
	}

	if err := b.IncrementCounts(ctx, 7, 0); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	if got := b.Progress(); got != 100 {
		t.Errorf("Progress() = %d, want 100", got)
	}
	if !b.Finished() {
		t.Error("Finished() = false at 10/10, want true")
	}
}

func TestBatch_FinishedAtSetExactlyOnce(t *testing.T) {
	ctx := context.Background()
	b := batch.New("imports", 2)

	if err := b.IncrementCounts(ctx, 2, 0); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	first := b.FinishedAt
	if first == nil {
		t.Fatal("FinishedAt not set after reaching total")
	}

	// Over-reporting must not re-derive the timestamp.
	if err := b.IncrementCounts(ctx, 1, 0); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	if b.FinishedAt != first {
		t.Error("FinishedAt changed after finishing")
	}
	if got := b.PendingJobs(); got != -1 {
		t.Errorf("PendingJobs() = %d, want -1 (over-report observable)", got)
	}
}

func TestBatch_ZeroDeltaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := &recordingRepo{}
	b := batch.New("imports", 5, batch.WithRepository(repo))

	if err := b.IncrementCounts(ctx, 2, 1); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := b.IncrementCounts(ctx, 0, 0); err != nil {
			t.Fatalf("IncrementCounts error: %v", err)
		}
	}

	if b.ProcessedJobs != 2 || b.FailedJobs != 1 {
		t.Errorf("counters = (%d, %d), want (2, 1)", b.ProcessedJobs, b.FailedJobs)
	}
	if b.FinishedAt != nil {
		t.Error("FinishedAt set by zero-delta calls")
	}
	if len(repo.increments) != 1 {
		t.Errorf("repository received %d increments, want 1 (zero deltas not forwarded)", len(repo.increments))
	}
}

func TestBatch_EmptyBatchVacuouslyComplete(t *testing.T) {
	b := batch.New("empty", 0)

	if got := b.Progress(); got != 100 {
		t.Errorf("Progress() = %d, want 100 for empty batch", got)
	}
	if b.Finished() {
		t.Error("Finished() = true for empty batch, want false (never auto-finishes)")
	}

	// Even a counting call does not finish an empty batch.
	if err := b.IncrementCounts(context.Background(), 0, 0); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	if b.Finished() {
		t.Error("Finished() = true after zero-delta call on empty batch, want false")
	}
}

func TestBatch_DeltasForwardedToRepository(t *testing.T) {
	ctx := context.Background()
	repo := &recordingRepo{}
	b := batch.New("imports", 3, batch.WithRepository(repo))

	if err := b.IncrementCounts(ctx, 1, 0); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	if err := b.IncrementCounts(ctx, 1, 1); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}

	want := [][2]int{{1, 0}, {1, 1}}
	if len(repo.increments) != len(want) {
		t.Fatalf("repository received %d increments, want %d", len(repo.increments), len(want))
	}
	for i, w := range want {
		if repo.increments[i] != w {
			t.Errorf("increment %d = %v, want %v", i, repo.increments[i], w)
		}
	}
}

func TestBatch_CancelSnapshotsViaUpdate(t *testing.T) {
	ctx := context.Background()
	repo := &recordingRepo{}
	b := batch.New("imports", 3, batch.WithRepository(repo))

	if err := b.Cancel(ctx); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if !b.Cancelled() {
		t.Fatal("Cancelled() = false after Cancel")
	}
	first := b.CancelledAt

	if err := b.Cancel(ctx); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if b.CancelledAt != first {
		t.Error("CancelledAt changed on second Cancel")
	}

	if repo.updates != 2 {
		t.Errorf("repository updates = %d, want 2 (cancel always snapshots)", repo.updates)
	}
	if len(repo.increments) != 0 {
		t.Error("Cancel must not use the increment path")
	}
}

func TestBatch_HasFailures(t *testing.T) {
	ctx := context.Background()
	b := batch.New("imports", 4)

	if b.HasFailures() {
		t.Error("HasFailures() = true on fresh batch")
	}
	if err := b.IncrementCounts(ctx, 1, 1); err != nil {
		t.Fatalf("IncrementCounts error: %v", err)
	}
	if !b.HasFailures() {
		t.Error("HasFailures() = false after a failure")
	}
}
