// Package storage is the ordered key-value layer under the record store.
// Callers depend on KV; Pebble is the only engine.
package storage

import (
	"github.com/guileen/finledger/storage/internal/kv"
	"github.com/guileen/finledger/storage/shared"
)

type (
	KV              = shared.KV
	WriteOptions    = shared.WriteOptions
	IteratorOptions = shared.IteratorOptions
	Iterator        = shared.Iterator
	Snapshot        = shared.Snapshot
	KVStats         = shared.KVStats
	PebbleConfig    = kv.PebbleConfig
)

var (
	// DefaultWriteOptions leave the fsync to the background flusher.
	DefaultWriteOptions = shared.DefaultWriteOptions
	// SyncWriteOptions wait for the write to reach the WAL on disk. Record
	// inserts and user updates use them.
	SyncWriteOptions = shared.SyncWriteOptions

	ErrNotFound = shared.ErrNotFound
	ErrClosed   = shared.ErrClosed
)

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return shared.IsNotFound(err)
}

// NewPebbleKV opens, or creates, the Pebble database at config.Path.
func NewPebbleKV(config *PebbleConfig) (KV, error) {
	return kv.NewPebbleKV(config)
}

// DefaultPebbleConfig is the production configuration for path.
func DefaultPebbleConfig(path string) *PebbleConfig {
	return kv.DefaultPebbleConfig(path)
}

// TestPebbleConfig is a small configuration for databases under t.TempDir.
func TestPebbleConfig(path string) *PebbleConfig {
	return kv.TestPebbleConfig(path)
}
