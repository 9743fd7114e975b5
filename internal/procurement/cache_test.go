package procurement

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshotCache(client, time.Minute), mr
}

func sampleSnapshot(id int64) POSnapshot {
	return POSnapshot{
		PO: PurchaseOrder{
			ID:         id,
			Number:     "PO-2025-abc",
			VendorID:   101,
			Status:     POStatusApproved,
			TotalValue: decimal.NewFromInt(90),
		},
		Lines: []LineItem{{ID: 1, POID: id, ProductID: 10, OrderedQty: 10, UnitPrice: decimal.NewFromInt(5)}},
	}
}

func TestSnapshotCacheReadThrough(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) (POSnapshot, error) {
		loads++
		return sampleSnapshot(7), nil
	}

	snap, err := cache.Get(ctx, 7, load)
	require.NoError(t, err)
	require.Equal(t, "PO-2025-abc", snap.PO.Number)
	require.Equal(t, 1, loads)

	// A second read is served from redis.
	snap, err = cache.Get(ctx, 7, load)
	require.NoError(t, err)
	require.Equal(t, POStatusApproved, snap.PO.Status)
	require.Len(t, snap.Lines, 1)
	require.Equal(t, 1, loads)
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) (POSnapshot, error) {
		loads++
		return sampleSnapshot(7), nil
	}

	_, err := cache.Get(ctx, 7, load)
	require.NoError(t, err)
	cache.Invalidate(ctx, 7)

	_, err = cache.Get(ctx, 7, load)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestSnapshotCacheLoadError(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), 9, func(ctx context.Context) (POSnapshot, error) {
		return POSnapshot{}, ErrNotFound
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotCacheCorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(snapshotKey(7), "{not json"))

	snap, err := cache.Get(ctx, 7, func(ctx context.Context) (POSnapshot, error) {
		return sampleSnapshot(7), nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), snap.PO.ID)
}

func TestSnapshotCacheNilClient(t *testing.T) {
	var cache *SnapshotCache
	snap, err := cache.Get(context.Background(), 7, func(ctx context.Context) (POSnapshot, error) {
		return sampleSnapshot(7), nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), snap.PO.ID)
}
