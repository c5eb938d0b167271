// Package shared holds the storage contracts used by both the public storage
// package and its engine implementations.
package shared

import (
	"context"
	"errors"
	"io"
)

// WriteOptions control durability of a single write.
type WriteOptions struct {
	Sync bool
}

var (
	DefaultWriteOptions = &WriteOptions{Sync: false}
	SyncWriteOptions    = &WriteOptions{Sync: true}
)

// KV is an ordered byte-key store. Keys iterate in bytewise order.
type KV interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	SetWithOptions(ctx context.Context, key, value []byte, opts *WriteOptions) error
	NewIterator(opts *IteratorOptions) (Iterator, error)
	NewSnapshot() (Snapshot, error)
	Stats() KVStats
	Flush() error
	Close() error
}

// IteratorOptions bound a forward scan to [LowerBound, UpperBound). A nil
// bound is open.
type IteratorOptions struct {
	LowerBound []byte
	UpperBound []byte
}

// Iterator walks key/value pairs. Key and Value are only valid until the next
// positioning call.
type Iterator interface {
	io.Closer
	Valid() bool
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	First() bool
}

// Snapshot is a point-in-time read view. A record listing reads from one so
// concurrent inserts never show up half way through a scan.
type Snapshot interface {
	io.Closer
	Get(key []byte) ([]byte, error)
	NewIterator(opts *IteratorOptions) (Iterator, error)
}

// KVStats is what the engine reports about itself.
type KVStats struct {
	ApproximateSize int64
	MemTableSize    int64
	FlushCount      int64
	CompactionCount int64
	L0FileCount     int64
	PendingWrites   int64
}

var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("kv store closed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
