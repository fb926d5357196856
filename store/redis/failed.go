package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/toporia/async"
	"github.com/toporia/async/failed"
	"github.com/toporia/async/id"
)

// PushFailed records a terminal failure as a Hash.
func (s *Store) PushFailed(ctx context.Context, entry *failed.Entry) error {
	eID := entry.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, failedKey(eID), failedToMap(entry))
	pipe.SAdd(ctx, failedIDsKey, eID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("async/redis: push failed entry: %w", err)
	}
	return nil
}

// ListFailed returns failed entries matching the given options, oldest
// first by failure time.
func (s *Store) ListFailed(ctx context.Context, opts failed.ListOpts) ([]*failed.Entry, error) {
	ids, err := s.client.SMembers(ctx, failedIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("async/redis: list failed: %w", err)
	}

	entries := make([]*failed.Entry, 0, len(ids))
	for _, eID := range ids {
		vals, getErr := s.client.HGetAll(ctx, failedKey(eID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		e, convErr := mapToFailed(vals)
		if convErr != nil {
			continue
		}
		if opts.Queue != "" && e.Queue != opts.Queue {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FailedAt.Before(entries[j].FailedAt)
	})

	if opts.Offset > 0 && opts.Offset < len(entries) {
		entries = entries[opts.Offset:]
	} else if opts.Offset >= len(entries) && opts.Offset > 0 {
		return nil, nil
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// GetFailed retrieves a failed entry by ID.
func (s *Store) GetFailed(ctx context.Context, entryID id.FailedID) (*failed.Entry, error) {
	vals, err := s.client.HGetAll(ctx, failedKey(entryID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("async/redis: get failed entry: %w", err)
	}
	if len(vals) == 0 {
		return nil, async.ErrFailedEntryNotFound
	}
	return mapToFailed(vals)
}

// ReplayFailed marks a failed entry as replayed.
func (s *Store) ReplayFailed(ctx context.Context, entryID id.FailedID) error {
	key := failedKey(entryID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("async/redis: replay failed exists: %w", err)
	}
	if exists == 0 {
		return async.ErrFailedEntryNotFound
	}

	err = s.client.HSet(ctx, key,
		"replayed_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("async/redis: replay failed entry: %w", err)
	}
	return nil
}

// PurgeFailed removes failed entries whose failure time is before the
// given time. Returns the number of entries removed.
func (s *Store) PurgeFailed(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.client.SMembers(ctx, failedIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("async/redis: purge failed smembers: %w", err)
	}

	var purged int64
	for _, eID := range ids {
		key := failedKey(eID)
		failedAtStr, getErr := s.client.HGet(ctx, key, "failed_at").Result()
		if getErr != nil {
			if errors.Is(getErr, goredis.Nil) {
				continue
			}
			return purged, fmt.Errorf("async/redis: purge failed get: %w", getErr)
		}

		failedAt, _ := time.Parse(time.RFC3339Nano, failedAtStr) //nolint:errcheck // best-effort parse from trusted Redis data
		if failedAt.Before(before) {
			pipe := s.client.TxPipeline()
			pipe.Del(ctx, key)
			pipe.SRem(ctx, failedIDsKey, eID)
			if _, pErr := pipe.Exec(ctx); pErr != nil {
				return purged, fmt.Errorf("async/redis: purge failed del: %w", pErr)
			}
			purged++
		}
	}
	return purged, nil
}

// CountFailed returns the total number of recorded failures.
func (s *Store) CountFailed(ctx context.Context) (int64, error) {
	count, err := s.client.SCard(ctx, failedIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("async/redis: count failed: %w", err)
	}
	return count, nil
}

// ── helpers ──

func failedToMap(e *failed.Entry) map[string]interface{} {
	m := map[string]interface{}{
		"id":           e.ID.String(),
		"job_id":       e.JobID.String(),
		"job_name":     e.JobName,
		"queue":        e.Queue,
		"payload":      string(e.Payload),
		"error":        e.Error,
		"attempts":     strconv.Itoa(e.Attempts),
		"max_attempts": strconv.Itoa(e.MaxAttempts),
		"timed_out":    strconv.FormatBool(e.TimedOut),
		"failed_at":    e.FailedAt.Format(time.RFC3339Nano),
		"created_at":   e.CreatedAt.Format(time.RFC3339Nano),
	}
	if !e.BatchID.IsNil() {
		m["batch_id"] = e.BatchID.String()
	}
	if e.ReplayedAt != nil {
		m["replayed_at"] = e.ReplayedAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToFailed(m map[string]string) (*failed.Entry, error) {
	eID, err := id.ParseFailedID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("async/redis: parse failed id: %w", err)
	}
	jobID, _ := id.ParseJobID(m["job_id"])                        //nolint:errcheck // best-effort parse from trusted Redis data
	attempts, _ := strconv.Atoi(m["attempts"])                    //nolint:errcheck // best-effort parse from trusted Redis data
	maxAttempts, _ := strconv.Atoi(m["max_attempts"])             //nolint:errcheck // best-effort parse from trusted Redis data
	timedOut, _ := strconv.ParseBool(m["timed_out"])              //nolint:errcheck // best-effort parse from trusted Redis data
	failedAt, _ := time.Parse(time.RFC3339Nano, m["failed_at"])   //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	e := &failed.Entry{
		ID:          eID,
		JobID:       jobID,
		JobName:     m["job_name"],
		Queue:       m["queue"],
		Payload:     []byte(m["payload"]),
		Error:       m["error"],
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		TimedOut:    timedOut,
		FailedAt:    failedAt,
		CreatedAt:   createdAt,
	}

	if v := m["batch_id"]; v != "" {
		e.BatchID, _ = id.ParseBatchID(v) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["replayed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		e.ReplayedAt = &t
	}
	return e, nil
}
