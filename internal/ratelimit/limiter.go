package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Result reports the outcome of an admission check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter is a fixed-window counter per client key, shared across
// instances through redis. The window length is the key's TTL.
type Limiter struct {
	rdb       redis.Cmdable
	window    time.Duration
	opTimeout time.Duration
}

func NewLimiter(rdb redis.Cmdable, window, opTimeout time.Duration) *Limiter {
	return &Limiter{rdb: rdb, window: window, opTimeout: opTimeout}
}

// Allow counts a request against the key's current window and reports
// whether it fits the budget. INCR and EXPIRE NX run in one pipeline, so
// the first request in a window always arms the TTL.
func (l *Limiter) Allow(ctx context.Context, key string, limit int) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	rkey := keyPrefix + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.ExpireNX(ctx, rkey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	if incr.Val() <= int64(limit) {
		return Result{Allowed: true}, nil
	}

	retry := l.window
	if ttl, err := l.rdb.TTL(ctx, rkey).Result(); err == nil && ttl > 0 {
		retry = ttl
	}
	return Result{Allowed: false, RetryAfter: retry}, nil
}
