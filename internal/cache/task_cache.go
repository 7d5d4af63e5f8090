package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyItemPrefix = "task:item:"
	keyListPrefix = "task:list:"
)

// TaskCache is the cache-aside layer for single-task and list lookups.
// List writes are indexed in the KeyRegistry so Invalidate can evict every
// outstanding list key by exact name.
type TaskCache struct {
	rdb       redis.Cmdable
	reg       *KeyRegistry
	itemTTL   time.Duration
	listTTL   time.Duration
	opTimeout time.Duration
}

func NewTaskCache(rdb redis.Cmdable, reg *KeyRegistry, itemTTL, listTTL, opTimeout time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, reg: reg, itemTTL: itemTTL, listTTL: listTTL, opTimeout: opTimeout}
}

// bound caps every redis call so a slow cache degrades instead of stalling
// the request path.
func (c *TaskCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

func itemKey(id int64) string { return keyItemPrefix + strconv.FormatInt(id, 10) }

func listKey(fingerprint string) string { return keyListPrefix + fingerprint }

// GetTask returns the cached task or (nil, nil) on miss.
func (c *TaskCache) GetTask(ctx context.Context, id int64) (*dom.Task, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	b, err := c.rdb.Get(ctx, itemKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t dom.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetTask stores a single task.
func (c *TaskCache) SetTask(ctx context.Context, t dom.Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.rdb.Set(ctx, itemKey(t.ID), b, c.itemTTL).Err()
}

// GetList returns the cached list for a filter fingerprint, or (nil, nil)
// on miss. A cached empty result round-trips as an empty non-nil slice so
// it is distinguishable from a miss.
func (c *TaskCache) GetList(ctx context.Context, fingerprint string) ([]dom.Task, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	b, err := c.rdb.Get(ctx, listKey(fingerprint)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := []dom.Task{}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores a list result and registers its fingerprint as
// outstanding. The payload write happens first: a written key that was
// never indexed would survive invalidation.
func (c *TaskCache) SetList(ctx context.Context, fingerprint string, list []dom.Task) error {
	if list == nil {
		list = []dom.Task{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.rdb.Set(ctx, listKey(fingerprint), b, c.listTTL).Err(); err != nil {
		return err
	}
	return c.reg.Add(ctx, fingerprint)
}

// Invalidate evicts the given item keys plus every outstanding list key,
// and clears the registry set in the same DEL. Conservative: every list
// key goes on every mutation.
func (c *TaskCache) Invalidate(ctx context.Context, ids ...int64) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	fps, err := c.reg.Members(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+len(fps)+1)
	for _, id := range ids {
		keys = append(keys, itemKey(id))
	}
	for _, fp := range fps {
		keys = append(keys, listKey(fp))
	}
	keys = append(keys, c.reg.Key())
	return c.rdb.Del(ctx, keys...).Err()
}
