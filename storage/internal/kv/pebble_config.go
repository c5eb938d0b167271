package kv

import (
	"time"
)

// PebbleConfig holds configuration options for the Pebble KV store
type PebbleConfig struct {
	Path                  string
	CacheSize             int64
	MemTableSize          int
	MaxOpenFiles          int
	CompactionConcurrency int
	FlushInterval         time.Duration
	StatsInterval         time.Duration
	BlockSize             int
	L0CompactionThreshold int
	L0StopWritesThreshold int
	CompressionEnabled    bool
	EnableBloomFilter     bool
	BloomFilterBitsPerKey int
	TargetFileSize        int64
}

// DefaultPebbleConfig creates a configuration sized for a single-node ledger
// with many small records.
func DefaultPebbleConfig(path string) *PebbleConfig {
	return &PebbleConfig{
		Path:                  path,
		CacheSize:             64 << 20,
		MemTableSize:          16 << 20,
		MaxOpenFiles:          1000,
		CompactionConcurrency: 2,
		FlushInterval:         500 * time.Millisecond,
		StatsInterval:         time.Minute,
		BlockSize:             16 << 10,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
		CompressionEnabled:    true,
		EnableBloomFilter:     true,
		BloomFilterBitsPerKey: 10,
		TargetFileSize:        8 << 20,
	}
}

// TestPebbleConfig creates a configuration optimized for tests: small caches,
// no compression, no stats reporting.
func TestPebbleConfig(path string) *PebbleConfig {
	return &PebbleConfig{
		Path:                  path,
		CacheSize:             8 << 20,
		MemTableSize:          4 << 20,
		MaxOpenFiles:          200,
		CompactionConcurrency: 1,
		FlushInterval:         100 * time.Millisecond,
		BlockSize:             4 << 10,
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 10,
		CompressionEnabled:    false,
		EnableBloomFilter:     true,
		BloomFilterBitsPerKey: 5,
		TargetFileSize:        2 << 20,
	}
}
