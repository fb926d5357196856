package redis

import (
	"context"
	"fmt"
	"time"
)

// AddIfAbsent stores the value under the key only if absent, as a single
// SET NX with TTL. Redis arbitrates the race: exactly one concurrent
// caller receives true.
func (s *Store) AddIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("async/redis: lock setnx: %w", err)
	}
	return ok, nil
}

// Exists reports whether the key is present. Redis expires keys itself,
// so presence implies the TTL has not elapsed.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("async/redis: lock exists: %w", err)
	}
	return n > 0, nil
}

// Delete removes the key. Returns true if a key was removed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("async/redis: lock delete: %w", err)
	}
	return n > 0, nil
}
