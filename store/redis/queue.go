package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

// Push encodes the job and appends it to the queue's List.
func (s *Store) Push(ctx context.Context, j *job.Job, queueName string) (id.JobID, error) {
	if queueName == "" {
		queueName = job.DefaultQueue
	}
	j.Queue = queueName

	data, err := s.codec.Encode(j)
	if err != nil {
		return id.JobID{}, fmt.Errorf("async/redis: encode job: %w", err)
	}

	if err := s.client.RPush(ctx, queueKey(queueName), data).Err(); err != nil {
		return id.JobID{}, fmt.Errorf("async/redis: push job: %w", err)
	}
	return j.ID, nil
}

// Later encodes the job and stores it in the queue's delayed Sorted Set,
// scored by its run-at time. Pop promotes due members to the List.
func (s *Store) Later(ctx context.Context, j *job.Job, delay time.Duration, queueName string) (id.JobID, error) {
	if delay <= 0 {
		return s.Push(ctx, j, queueName)
	}
	if queueName == "" {
		queueName = job.DefaultQueue
	}
	j.Queue = queueName
	j.RunAt = time.Now().UTC().Add(delay)

	data, err := s.codec.Encode(j)
	if err != nil {
		return id.JobID{}, fmt.Errorf("async/redis: encode delayed job: %w", err)
	}

	err = s.client.ZAdd(ctx, delayedKey(queueName), goredis.Z{
		Score:  float64(j.RunAt.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		return id.JobID{}, fmt.Errorf("async/redis: push delayed job: %w", err)
	}
	return j.ID, nil
}

// Pop removes and returns the next runnable job, or nil when the queue is
// empty. Due members of the delayed set are promoted first.
func (s *Store) Pop(ctx context.Context, queueName string) (*job.Job, error) {
	if queueName == "" {
		queueName = job.DefaultQueue
	}

	if err := s.promoteDue(ctx, queueName); err != nil {
		return nil, err
	}

	data, err := s.client.LPop(ctx, queueKey(queueName)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("async/redis: pop job: %w", err)
	}

	j, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("async/redis: decode job: %w", err)
	}
	return j, nil
}

// Size returns the number of jobs on the queue, delayed jobs included.
func (s *Store) Size(ctx context.Context, queueName string) (int, error) {
	if queueName == "" {
		queueName = job.DefaultQueue
	}

	pipe := s.client.TxPipeline()
	ready := pipe.LLen(ctx, queueKey(queueName))
	delayed := pipe.ZCard(ctx, delayedKey(queueName))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("async/redis: queue size: %w", err)
	}
	return int(ready.Val() + delayed.Val()), nil
}

// Clear removes all jobs from the queue, delayed jobs included.
func (s *Store) Clear(ctx context.Context, queueName string) error {
	if queueName == "" {
		queueName = job.DefaultQueue
	}
	err := s.client.Del(ctx, queueKey(queueName), delayedKey(queueName)).Err()
	if err != nil {
		return fmt.Errorf("async/redis: clear queue: %w", err)
	}
	return nil
}

// promoteDue moves delayed jobs whose run-at time has passed onto the
// runnable List. ZRem's removal count arbitrates between concurrent
// workers: only the remover that wins the removal pushes the job, so a
// delayed job is promoted exactly once.
func (s *Store) promoteDue(ctx context.Context, queueName string) error {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	members, err := s.client.ZRangeByScore(ctx, delayedKey(queueName), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("async/redis: promote zrange: %w", err)
	}

	for _, member := range members {
		removed, remErr := s.client.ZRem(ctx, delayedKey(queueName), member).Result()
		if remErr != nil {
			return fmt.Errorf("async/redis: promote zrem: %w", remErr)
		}
		if removed == 0 {
			continue // Another worker promoted it first.
		}
		if pushErr := s.client.RPush(ctx, queueKey(queueName), member).Err(); pushErr != nil {
			return fmt.Errorf("async/redis: promote rpush: %w", pushErr)
		}
	}
	return nil
}
