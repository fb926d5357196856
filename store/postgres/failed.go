package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/toporia/async"
	"github.com/toporia/async/failed"
	"github.com/toporia/async/id"
)

// PushFailed records a terminal failure.
func (s *Store) PushFailed(ctx context.Context, entry *failed.Entry) error {
	var batchID *string
	if !entry.BatchID.IsNil() {
		v := entry.BatchID.String()
		batchID = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO async_failed_jobs (
			id, job_id, job_name, queue, payload, error,
			attempts, max_attempts, timed_out, batch_id,
			failed_at, replayed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID.String(), entry.JobID.String(), entry.JobName,
		entry.Queue, entry.Payload, entry.Error,
		entry.Attempts, entry.MaxAttempts, entry.TimedOut, batchID,
		entry.FailedAt, entry.ReplayedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("async/postgres: push failed entry: %w", err)
	}
	return nil
}

// ListFailed returns failed entries matching the given options, oldest
// first by failure time.
func (s *Store) ListFailed(ctx context.Context, opts failed.ListOpts) ([]*failed.Entry, error) {
	query := `
		SELECT
			id, job_id, job_name, queue, payload, error,
			attempts, max_attempts, timed_out, batch_id,
			failed_at, replayed_at, created_at
		FROM async_failed_jobs
		WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if opts.Queue != "" {
		query += fmt.Sprintf(" AND queue = $%d", argIdx)
		args = append(args, opts.Queue)
		argIdx++
	}

	query += " ORDER BY failed_at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("async/postgres: list failed: %w", err)
	}
	defer rows.Close()

	var entries []*failed.Entry
	for rows.Next() {
		e, scanErr := scanFailed(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("async/postgres: scan failed row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("async/postgres: iterate failed rows: %w", err)
	}
	return entries, nil
}

// GetFailed retrieves a failed entry by ID.
func (s *Store) GetFailed(ctx context.Context, entryID id.FailedID) (*failed.Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, job_id, job_name, queue, payload, error,
			attempts, max_attempts, timed_out, batch_id,
			failed_at, replayed_at, created_at
		FROM async_failed_jobs
		WHERE id = $1`,
		entryID.String(),
	)

	e, err := scanFailed(row)
	if err != nil {
		if isNoRows(err) {
			return nil, async.ErrFailedEntryNotFound
		}
		return nil, fmt.Errorf("async/postgres: get failed entry: %w", err)
	}
	return e, nil
}

// ReplayFailed marks a failed entry as replayed.
func (s *Store) ReplayFailed(ctx context.Context, entryID id.FailedID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE async_failed_jobs SET replayed_at = NOW() WHERE id = $1`,
		entryID.String(),
	)
	if err != nil {
		return fmt.Errorf("async/postgres: replay failed entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return async.ErrFailedEntryNotFound
	}
	return nil
}

// PurgeFailed removes failed entries whose failure time is before the
// given time. Returns the number of entries removed.
func (s *Store) PurgeFailed(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM async_failed_jobs WHERE failed_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("async/postgres: purge failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountFailed returns the total number of recorded failures.
func (s *Store) CountFailed(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM async_failed_jobs`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("async/postgres: count failed: %w", err)
	}
	return count, nil
}

// ── helpers ──

func scanFailed(row rowScanner) (*failed.Entry, error) {
	var (
		idStr      string
		jobIDStr   string
		batchID    *string
		replayedAt *time.Time
		e          failed.Entry
	)
	err := row.Scan(
		&idStr, &jobIDStr, &e.JobName, &e.Queue, &e.Payload, &e.Error,
		&e.Attempts, &e.MaxAttempts, &e.TimedOut, &batchID,
		&e.FailedAt, &replayedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.ID, err = id.ParseFailedID(idStr)
	if err != nil {
		return nil, fmt.Errorf("async/postgres: parse failed id: %w", err)
	}
	e.JobID, _ = id.ParseJobID(jobIDStr) //nolint:errcheck // best-effort parse from trusted database data

	if batchID != nil && *batchID != "" {
		e.BatchID, _ = id.ParseBatchID(*batchID) //nolint:errcheck // best-effort parse from trusted database data
	}
	e.ReplayedAt = replayedAt
	return &e, nil
}
