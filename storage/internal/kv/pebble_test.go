package kv

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/guileen/finledger/storage/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T) *PebbleKV {
	t.Helper()
	kv, err := NewPebbleKV(TestPebbleConfig(filepath.Join(t.TempDir(), "db")))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestPebbleKV_BasicOperations(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, []byte("k1"), []byte("v1")))
		got, err := kv.Get(ctx, []byte("k1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := kv.Get(ctx, []byte("missing"))
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("Sync write", func(t *testing.T) {
		require.NoError(t, kv.SetWithOptions(ctx, []byte("sync"), []byte("v"), shared.SyncWriteOptions))
		got, err := kv.Get(ctx, []byte("sync"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})
}

func TestPebbleKV_Iterator(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	for _, k := range []string{"a/1", "a/2", "a/3", "b/1", "a\xff"} {
		require.NoError(t, kv.Set(ctx, []byte(k), []byte(k)))
	}

	collect := func(opts *shared.IteratorOptions) []string {
		iter, err := kv.NewIterator(opts)
		require.NoError(t, err)
		defer iter.Close()
		var keys []string
		for iter.First(); iter.Valid(); iter.Next() {
			keys = append(keys, string(iter.Key()))
		}
		require.NoError(t, iter.Error())
		return keys
	}

	t.Run("Range iteration", func(t *testing.T) {
		assert.Equal(t, []string{"a/1", "a/2", "a/3"}, collect(&shared.IteratorOptions{LowerBound: []byte("a/"), UpperBound: []byte("a0")}))
	})

	t.Run("Open upper bound", func(t *testing.T) {
		assert.Equal(t, []string{"a\xff", "b/1"}, collect(&shared.IteratorOptions{LowerBound: []byte("a\xff")}))
	})

	t.Run("Unbounded", func(t *testing.T) {
		assert.Len(t, collect(nil), 5)
	})
}

func TestPebbleKV_Snapshot(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, []byte("s1"), []byte("before")))
	snap, err := kv.NewSnapshot()
	require.NoError(t, err)
	defer snap.Close()

	require.NoError(t, kv.Set(ctx, []byte("s1"), []byte("after")))
	require.NoError(t, kv.Set(ctx, []byte("s2"), []byte("new")))

	got, err := snap.Get([]byte("s1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), got)
	_, err = snap.Get([]byte("s2"))
	assert.True(t, shared.IsNotFound(err))

	iter, err := snap.NewIterator(&shared.IteratorOptions{LowerBound: []byte("s"), UpperBound: []byte("t")})
	require.NoError(t, err)
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestPebbleKV_Concurrent(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				key := []byte(fmt.Sprintf("c/%02d/%03d", g, i))
				assert.NoError(t, kv.Set(ctx, key, key))
			}
		}(g)
	}
	wg.Wait()

	iter, err := kv.NewIterator(&shared.IteratorOptions{LowerBound: []byte("c/"), UpperBound: []byte("c0")})
	require.NoError(t, err)
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	assert.Equal(t, goroutines*perGoroutine, n)
}

func TestPebbleKV_FlushAndStats(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, []byte("f"), []byte("v")))
	require.NoError(t, kv.Flush())
	stats := kv.Stats()
	assert.Zero(t, stats.PendingWrites)
	assert.GreaterOrEqual(t, stats.FlushCount, int64(1))
}

func TestPebbleKV_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	kv, err := NewPebbleKV(TestPebbleConfig(path))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, []byte("durable"), []byte("yes")))
	require.NoError(t, kv.Close())
	require.NoError(t, kv.Close(), "second close is a no-op")

	_, err = kv.Get(ctx, []byte("durable"))
	assert.ErrorIs(t, err, shared.ErrClosed)
	assert.ErrorIs(t, kv.Set(ctx, []byte("x"), nil), shared.ErrClosed)
	_, err = kv.NewIterator(nil)
	assert.ErrorIs(t, err, shared.ErrClosed)

	reopened, err := NewPebbleKV(TestPebbleConfig(path))
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, []byte("durable"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), got)
}

func TestNewPebbleKVRequiresPath(t *testing.T) {
	_, err := NewPebbleKV(&PebbleConfig{})
	assert.Error(t, err)
	_, err = NewPebbleKV(nil)
	assert.Error(t, err)
}
