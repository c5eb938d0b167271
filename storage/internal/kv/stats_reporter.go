package kv

import (
	"time"

	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/storage/shared"
)

// statsReporter logs engine activity once per interval, skipping intervals in
// which nothing was flushed or compacted.
type statsReporter struct {
	kv       *PebbleKV
	interval time.Duration
	done     chan struct{}
}

func newStatsReporter(kv *PebbleKV, interval time.Duration) *statsReporter {
	return &statsReporter{kv: kv, interval: interval, done: make(chan struct{})}
}

func (r *statsReporter) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	prev := r.kv.Stats()
	for {
		select {
		case <-ticker.C:
			cur := r.kv.Stats()
			r.report(cur, prev)
			prev = cur
		case <-r.done:
			return
		}
	}
}

func (r *statsReporter) stop() {
	close(r.done)
}

func (r *statsReporter) report(cur, prev shared.KVStats) {
	flushes := cur.FlushCount - prev.FlushCount
	compactions := cur.CompactionCount - prev.CompactionCount
	if flushes == 0 && compactions == 0 {
		return
	}
	logger.Debug("pebble activity",
		logger.Component("storage"),
		logger.String("path", r.kv.dbPath),
		logger.Any("flushes", flushes),
		logger.Any("compactions", compactions),
		logger.Any("l0_files", cur.L0FileCount),
		logger.Any("pending_writes", cur.PendingWrites),
		logger.Any("disk_bytes", cur.ApproximateSize),
	)
}
