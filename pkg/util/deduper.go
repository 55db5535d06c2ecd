package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper prevents double-processing of an operation within a TTL, keyed on
// an operation name plus subject. Used by the notifier to guarantee at most
// one digest per user per day.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (d *Deduper) key(op, subject string) string {
	return fmt.Sprintf("dedup:%s:%s", op, subject)
}

// AcquireOnce tries to acquire the dedup lock for op+subject.
// Returns true if this is the first attempt within the TTL.
// Fails open: if Redis is unavailable, processing is allowed.
func (d *Deduper) AcquireOnce(ctx context.Context, op, subject string) bool {
	ok, err := d.rdb.SetNX(ctx, d.key(op, subject), 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("op", op),
				zap.String("subject", subject),
				zap.Error(err),
			)
		}
		return true
	}
	return ok
}

// Release drops the dedup lock so the operation can be retried before the
// TTL expires. Called after a failed send.
func (d *Deduper) Release(ctx context.Context, op, subject string) {
	if err := d.rdb.Del(ctx, d.key(op, subject)).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("op", op),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
