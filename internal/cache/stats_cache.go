package cache

import (
	"context"
	"encoding/json"
	"time"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyStats = "task:stats"

// StatsCache holds the aggregated stats under a fixed key with its own
// short TTL. Deliberately outside the KeyRegistry: stats may lag a
// mutation by up to one TTL window.
type StatsCache struct {
	rdb       redis.Cmdable
	ttl       time.Duration
	opTimeout time.Duration
}

func NewStatsCache(rdb redis.Cmdable, ttl, opTimeout time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl, opTimeout: opTimeout}
}

// Get returns the cached stats or (nil, nil) on miss.
func (c *StatsCache) Get(ctx context.Context) (*dom.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	b, err := c.rdb.Get(ctx, keyStats).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s dom.Stats
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *StatsCache) Set(ctx context.Context, s dom.Stats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.rdb.Set(ctx, keyStats, b, c.ttl).Err()
}
