package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/storage/shared"
)

type PebbleKV struct {
	db            *pebble.DB
	dbPath        string
	closed        bool
	mu            sync.RWMutex
	pendingWrites int64
	flushTicker   *time.Ticker
	flushDone     chan struct{}

	stats *statsReporter
}

var _ shared.KV = (*PebbleKV)(nil)

func NewPebbleKV(config *PebbleConfig) (*PebbleKV, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("open pebble: path is required")
	}

	cache := pebble.NewCache(config.CacheSize)
	defer cache.Unref()

	compression := pebble.NoCompression
	if config.CompressionEnabled {
		compression = pebble.SnappyCompression
	}

	// Keys are already memcomparable, so the default bytewise comparer keeps
	// record ids in ascending order under each (type, owner) prefix.
	opts := &pebble.Options{
		Cache:                    cache,
		MaxOpenFiles:             config.MaxOpenFiles,
		MemTableSize:             uint64(config.MemTableSize),
		L0CompactionThreshold:    config.L0CompactionThreshold,
		L0StopWritesThreshold:    config.L0StopWritesThreshold,
		MaxConcurrentCompactions: func() int { return config.CompactionConcurrency },
		Levels: []pebble.LevelOptions{
			{TargetFileSize: config.TargetFileSize, BlockSize: config.BlockSize, Compression: compression},
			{TargetFileSize: config.TargetFileSize * 4, BlockSize: config.BlockSize, Compression: compression},
			{TargetFileSize: config.TargetFileSize * 16, BlockSize: config.BlockSize, Compression: compression},
		},
	}

	if config.EnableBloomFilter {
		for i := range opts.Levels {
			opts.Levels[i].FilterPolicy = bloom.FilterPolicy(config.BloomFilterBitsPerKey)
			opts.Levels[i].FilterType = pebble.TableFilter
		}
	}

	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	flushInterval := config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Second
	}

	pkv := &PebbleKV{
		db:          db,
		dbPath:      config.Path,
		flushTicker: time.NewTicker(flushInterval),
		flushDone:   make(chan struct{}),
	}

	if config.StatsInterval > 0 {
		pkv.stats = newStatsReporter(pkv, config.StatsInterval)
		go pkv.stats.run()
	}

	go pkv.backgroundFlush()

	logger.Info("pebble store opened", logger.Component("storage"), logger.String("path", config.Path))
	return pkv, nil
}

func (p *PebbleKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, shared.ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *PebbleKV) Set(ctx context.Context, key, value []byte) error {
	return p.SetWithOptions(ctx, key, value, nil)
}

func (p *PebbleKV) SetWithOptions(ctx context.Context, key, value []byte, opts *shared.WriteOptions) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return shared.ErrClosed
	}

	atomic.AddInt64(&p.pendingWrites, 1)

	if err := p.db.Set(key, value, pebbleWriteOptions(opts)); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (p *PebbleKV) NewIterator(opts *shared.IteratorOptions) (shared.Iterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, shared.ErrClosed
	}

	iter, err := p.db.NewIter(iterOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("pebble iterator: %w", err)
	}
	return &PebbleIterator{iter: iter}, nil
}

func (p *PebbleKV) NewSnapshot() (shared.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, shared.ErrClosed
	}

	return &PebbleSnapshot{snapshot: p.db.NewSnapshot()}, nil
}

func (p *PebbleKV) Stats() shared.KVStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return shared.KVStats{}
	}

	metrics := p.db.Metrics()
	return shared.KVStats{
		ApproximateSize: int64(metrics.DiskSpaceUsage()),
		MemTableSize:    int64(metrics.MemTable.Size),
		FlushCount:      int64(metrics.Flush.Count),
		CompactionCount: int64(metrics.Compact.Count),
		L0FileCount:     int64(metrics.Levels[0].NumFiles),
		PendingWrites:   atomic.LoadInt64(&p.pendingWrites),
	}
}

// Flush persists the memtable and clears the pending write counter.
func (p *PebbleKV) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return shared.ErrClosed
	}

	if err := p.db.Flush(); err != nil {
		return fmt.Errorf("pebble flush: %w", err)
	}
	atomic.StoreInt64(&p.pendingWrites, 0)
	return nil
}

func (p *PebbleKV) backgroundFlush() {
	for {
		select {
		case <-p.flushTicker.C:
			if atomic.LoadInt64(&p.pendingWrites) == 0 {
				continue
			}
			if err := p.Flush(); err != nil && !errors.Is(err, shared.ErrClosed) {
				logger.Warn("background flush failed", logger.Component("storage"), logger.ErrorField(err))
			}
		case <-p.flushDone:
			return
		}
	}
}

func (p *PebbleKV) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	p.flushTicker.Stop()
	close(p.flushDone)

	if p.stats != nil {
		p.stats.stop()
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close pebble: %w", err)
	}
	logger.Info("pebble store closed", logger.Component("storage"), logger.String("path", p.dbPath))
	return nil
}

func pebbleWriteOptions(opts *shared.WriteOptions) *pebble.WriteOptions {
	if opts == nil {
		return pebble.NoSync
	}
	if opts.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}
