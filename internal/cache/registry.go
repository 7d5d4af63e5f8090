package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// registryKey is the fixed, well-known key holding the set of outstanding
// list fingerprints. Maintenance data, not cached content: no TTL.
const registryKey = "task:list:keys"

// KeyRegistry tracks which list cache keys are currently live so that a
// mutation can evict them exactly, without pattern-matching deletes
// (SCAN+DEL is neither atomic nor guaranteed to see concurrent writers).
type KeyRegistry struct {
	rdb redis.Cmdable
}

func NewKeyRegistry(rdb redis.Cmdable) *KeyRegistry {
	return &KeyRegistry{rdb: rdb}
}

// Add records a fingerprint as outstanding. Called after a list result is
// written to the cache.
func (r *KeyRegistry) Add(ctx context.Context, fingerprint string) error {
	return r.rdb.SAdd(ctx, registryKey, fingerprint).Err()
}

// Members returns every outstanding fingerprint. A missing set is an empty
// set, not an error.
func (r *KeyRegistry) Members(ctx context.Context) ([]string, error) {
	fps, err := r.rdb.SMembers(ctx, registryKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return fps, err
}

// Key returns the registry's own redis key, so eviction can clear the set
// in the same DEL as the keys it indexed.
func (r *KeyRegistry) Key() string { return registryKey }
