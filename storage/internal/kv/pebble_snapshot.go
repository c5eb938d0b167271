package kv

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/guileen/finledger/storage/shared"
)

type PebbleSnapshot struct {
	snapshot *pebble.Snapshot
}

func (s *PebbleSnapshot) Get(key []byte) ([]byte, error) {
	value, closer, err := s.snapshot.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("pebble snapshot get: %w", err)
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (s *PebbleSnapshot) NewIterator(opts *shared.IteratorOptions) (shared.Iterator, error) {
	iter, err := s.snapshot.NewIter(iterOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("pebble snapshot iterator: %w", err)
	}
	return &PebbleIterator{iter: iter}, nil
}

func (s *PebbleSnapshot) Close() error {
	return s.snapshot.Close()
}
