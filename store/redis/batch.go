package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/toporia/async"
	"github.com/toporia/async/batch"
	"github.com/toporia/async/id"
)

// StoreBatch persists a new batch as a Hash.
func (s *Store) StoreBatch(ctx context.Context, b *batch.Batch) error {
	key := batchKey(b.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("async/redis: store batch exists: %w", err)
	}
	if exists > 0 {
		return async.ErrBatchAlreadyExists
	}

	if err := s.client.HSet(ctx, key, batchToMap(b)).Err(); err != nil {
		return fmt.Errorf("async/redis: store batch: %w", err)
	}
	return nil
}

// FindBatch retrieves a batch by ID.
func (s *Store) FindBatch(ctx context.Context, batchID id.BatchID) (*batch.Batch, error) {
	vals, err := s.client.HGetAll(ctx, batchKey(batchID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("async/redis: find batch: %w", err)
	}
	if len(vals) == 0 {
		return nil, async.ErrBatchNotFound
	}
	return mapToBatch(vals)
}

// UpdateBatch persists a whole-object snapshot of an existing batch.
func (s *Store) UpdateBatch(ctx context.Context, b *batch.Batch) error {
	key := batchKey(b.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("async/redis: update batch exists: %w", err)
	}
	if exists == 0 {
		return async.ErrBatchNotFound
	}

	if err := s.client.HSet(ctx, key, batchToMap(b)).Err(); err != nil {
		return fmt.Errorf("async/redis: update batch: %w", err)
	}
	return nil
}

// DeleteBatch removes a batch by ID.
func (s *Store) DeleteBatch(ctx context.Context, batchID id.BatchID) error {
	deleted, err := s.client.Del(ctx, batchKey(batchID.String())).Result()
	if err != nil {
		return fmt.Errorf("async/redis: delete batch: %w", err)
	}
	if deleted == 0 {
		return async.ErrBatchNotFound
	}
	return nil
}

// IncrementBatchCounts atomically adds the deltas via HIncrBy, then stamps
// finished_at the first time the processed count reaches the total. HSetNX
// keeps the stamp idempotent under concurrent finishers.
func (s *Store) IncrementBatchCounts(ctx context.Context, batchID id.BatchID, processedDelta, failedDelta int) error {
	key := batchKey(batchID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("async/redis: increment batch exists: %w", err)
	}
	if exists == 0 {
		return async.ErrBatchNotFound
	}

	pipe := s.client.TxPipeline()
	processed := pipe.HIncrBy(ctx, key, "processed_jobs", int64(processedDelta))
	pipe.HIncrBy(ctx, key, "failed_jobs", int64(failedDelta))
	total := pipe.HGet(ctx, key, "total_jobs")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("async/redis: increment batch: %w", err)
	}

	totalJobs, _ := strconv.Atoi(total.Val())
	if totalJobs > 0 && processed.Val() >= int64(totalJobs) {
		err := s.client.HSetNX(ctx, key, "finished_at",
			time.Now().UTC().Format(time.RFC3339Nano),
		).Err()
		if err != nil {
			return fmt.Errorf("async/redis: stamp batch finished: %w", err)
		}
	}
	return nil
}

// ── helpers ──

func batchToMap(b *batch.Batch) map[string]interface{} {
	m := map[string]interface{}{
		"id":             b.ID.String(),
		"name":           b.Name,
		"total_jobs":     strconv.Itoa(b.TotalJobs),
		"processed_jobs": strconv.Itoa(b.ProcessedJobs),
		"failed_jobs":    strconv.Itoa(b.FailedJobs),
		"created_at":     b.CreatedAt.Format(time.RFC3339Nano),
	}
	if len(b.Options) > 0 {
		data, _ := json.Marshal(b.Options) //nolint:errcheck // marshal should not fail for basic types
		m["options"] = string(data)
	}
	if b.FinishedAt != nil {
		m["finished_at"] = b.FinishedAt.Format(time.RFC3339Nano)
	}
	if b.CancelledAt != nil {
		m["cancelled_at"] = b.CancelledAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToBatch(m map[string]string) (*batch.Batch, error) {
	bID, err := id.ParseBatchID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("async/redis: parse batch id: %w", err)
	}

	totalJobs, _ := strconv.Atoi(m["total_jobs"])                 //nolint:errcheck // best-effort parse from trusted Redis data
	processedJobs, _ := strconv.Atoi(m["processed_jobs"])         //nolint:errcheck // best-effort parse from trusted Redis data
	failedJobs, _ := strconv.Atoi(m["failed_jobs"])               //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	b := &batch.Batch{
		ID:            bID,
		Name:          m["name"],
		TotalJobs:     totalJobs,
		ProcessedJobs: processedJobs,
		FailedJobs:    failedJobs,
		CreatedAt:     createdAt,
	}

	if v := m["options"]; v != "" {
		opts := make(map[string]any)
		_ = json.Unmarshal([]byte(v), &opts) //nolint:errcheck // best-effort parse from trusted Redis data
		b.Options = opts
	}
	if v := m["finished_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		b.FinishedAt = &t
	}
	if v := m["cancelled_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		b.CancelledAt = &t
	}
	return b, nil
}
