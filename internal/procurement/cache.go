package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache is a read-through cache for PO snapshots, keyed by order id
// and dropped on every lifecycle transition. Concurrent misses for the same
// order collapse into a single repository load.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewSnapshotCache instantiates the cache helper.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(poID int64) string {
	return fmt.Sprintf("procure:po:%d:snapshot", poID)
}

// Get returns the cached snapshot or loads and stores it on a miss.
func (c *SnapshotCache) Get(ctx context.Context, poID int64, load func(context.Context) (POSnapshot, error)) (POSnapshot, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	key := snapshotKey(poID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var snap POSnapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return snap, nil
		}
		// Corrupt entry, fall through to reload.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return load(ctx)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		snap, err := load(ctx)
		if err != nil {
			return POSnapshot{}, err
		}
		if data, err := json.Marshal(snap); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttl).Err()
		}
		return snap, nil
	})
	if err != nil {
		return POSnapshot{}, err
	}
	return result.(POSnapshot), nil
}

// Invalidate drops the cached snapshot after a transition.
func (c *SnapshotCache) Invalidate(ctx context.Context, poID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, snapshotKey(poID)).Err()
}
