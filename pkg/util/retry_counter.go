package util

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter tracks redelivery attempts for queue messages in Redis so a
// poison message cannot be requeued forever. Counts expire after the TTL.
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	return &RetryCounter{
		rdb: rdb,
		ttl: ttl,
	}
}

// IncrementAndGet bumps the retry count for the key and returns the new value.
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment retry counter: %w", err)
	}

	// First increment created the key, give it a lifetime.
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			return count, fmt.Errorf("failed to set retry counter TTL: %w", err)
		}
	}

	return count, nil
}

// Get returns the current retry count, zero if the key does not exist.
func (r *RetryCounter) Get(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get retry counter: %w", err)
	}
	return count, nil
}

// Reset clears the retry count after a successful or parked delivery.
func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey builds the Redis key for a delivery. Messages carry no
// delivery id across requeues, so the body fingerprint identifies them.
func FormatRetryKey(queue string, body []byte) string {
	h := fnv.New64a()
	h.Write(body)
	return fmt.Sprintf("retry:%s:%x", queue, h.Sum64())
}
