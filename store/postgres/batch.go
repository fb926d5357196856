package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/toporia/async"
	"github.com/toporia/async/batch"
	"github.com/toporia/async/id"
)

// StoreBatch persists a new batch.
func (s *Store) StoreBatch(ctx context.Context, b *batch.Batch) error {
	var options []byte
	if len(b.Options) > 0 {
		var err error
		options, err = json.Marshal(b.Options)
		if err != nil {
			return fmt.Errorf("async/postgres: marshal batch options: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO async_batches (
			id, name, total_jobs, processed_jobs, failed_jobs,
			options, created_at, finished_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID.String(), b.Name, b.TotalJobs, b.ProcessedJobs, b.FailedJobs,
		options, b.CreatedAt, b.FinishedAt, b.CancelledAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return async.ErrBatchAlreadyExists
		}
		return fmt.Errorf("async/postgres: store batch: %w", err)
	}
	return nil
}

// FindBatch retrieves a batch by ID.
func (s *Store) FindBatch(ctx context.Context, batchID id.BatchID) (*batch.Batch, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, name, total_jobs, processed_jobs, failed_jobs,
			options, created_at, finished_at, cancelled_at
		FROM async_batches
		WHERE id = $1`,
		batchID.String(),
	)

	b, err := scanBatch(row)
	if err != nil {
		if isNoRows(err) {
			return nil, async.ErrBatchNotFound
		}
		return nil, fmt.Errorf("async/postgres: find batch: %w", err)
	}
	return b, nil
}

// UpdateBatch persists a whole-object snapshot of an existing batch.
func (s *Store) UpdateBatch(ctx context.Context, b *batch.Batch) error {
	var options []byte
	if len(b.Options) > 0 {
		var err error
		options, err = json.Marshal(b.Options)
		if err != nil {
			return fmt.Errorf("async/postgres: marshal batch options: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE async_batches SET
			name = $2,
			total_jobs = $3,
			processed_jobs = $4,
			failed_jobs = $5,
			options = $6,
			finished_at = $7,
			cancelled_at = $8
		WHERE id = $1`,
		b.ID.String(), b.Name, b.TotalJobs, b.ProcessedJobs, b.FailedJobs,
		options, b.FinishedAt, b.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("async/postgres: update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return async.ErrBatchNotFound
	}
	return nil
}

// DeleteBatch removes a batch by ID.
func (s *Store) DeleteBatch(ctx context.Context, batchID id.BatchID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM async_batches WHERE id = $1`,
		batchID.String(),
	)
	if err != nil {
		return fmt.Errorf("async/postgres: delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return async.ErrBatchNotFound
	}
	return nil
}

// IncrementBatchCounts adds the deltas in a single atomic UPDATE. The
// finished timestamp is stamped in the same statement the first time the
// post-increment processed count reaches the total, so concurrent workers
// can neither lose a delta nor stamp it twice.
func (s *Store) IncrementBatchCounts(ctx context.Context, batchID id.BatchID, processedDelta, failedDelta int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE async_batches SET
			processed_jobs = processed_jobs + $2,
			failed_jobs = failed_jobs + $3,
			finished_at = CASE
				WHEN finished_at IS NULL
					AND total_jobs > 0
					AND processed_jobs + $2 >= total_jobs
				THEN NOW()
				ELSE finished_at
			END
		WHERE id = $1`,
		batchID.String(), processedDelta, failedDelta,
	)
	if err != nil {
		return fmt.Errorf("async/postgres: increment batch counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return async.ErrBatchNotFound
	}
	return nil
}

// ── helpers ──

func scanBatch(row rowScanner) (*batch.Batch, error) {
	var (
		idStr       string
		options     []byte
		finishedAt  *time.Time
		cancelledAt *time.Time
		b           batch.Batch
	)
	err := row.Scan(
		&idStr, &b.Name, &b.TotalJobs, &b.ProcessedJobs, &b.FailedJobs,
		&options, &b.CreatedAt, &finishedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	b.ID, err = id.ParseBatchID(idStr)
	if err != nil {
		return nil, fmt.Errorf("async/postgres: parse batch id: %w", err)
	}

	if len(options) > 0 {
		opts := make(map[string]any)
		if err := json.Unmarshal(options, &opts); err != nil {
			return nil, fmt.Errorf("async/postgres: unmarshal batch options: %w", err)
		}
		b.Options = opts
	}
	b.FinishedAt = finishedAt
	b.CancelledAt = cancelledAt
	return &b, nil
}
