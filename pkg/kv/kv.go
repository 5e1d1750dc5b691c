// Package kv wraps a Pebble database with the small surface the hub event
// handler needs: atomic batches, point lookups, and bounded range
// iteration. It intentionally knows nothing about events, accounts, or
// stores — that belongs to package hubevents.
package kv

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"hubevents/pkg/logger"
)

// DB wraps a *pebble.DB and tracks the on-disk path for metrics.
type DB struct {
	inner *pebble.DB
	path  string

	// writeSync controls whether CommitBatch fsyncs the WAL. The event log
	// entry itself is always committed as part of the caller's batch, so
	// this affects the durability of every write through this handle.
	writeSync bool

	commits uint64
}

// Options configures Open.
type Options struct {
	Path string
	// Sync, when true, fsyncs the WAL on every CommitBatch. Defaults to
	// true: the core relies on the KV commit for its durability contract
	// (spec §1: "durability guarantees ... of the backing KV store").
	Sync *bool
}

// Open opens (or creates) a Pebble database at the given path.
func Open(opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("kv: Options.Path is required")
	}
	logger.Info("opening_pebble_db", zap.String("path", opts.Path))
	inner, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", zap.String("path", opts.Path), zap.Error(err))
		return nil, err
	}
	sync := true
	if opts.Sync != nil {
		sync = *opts.Sync
	}
	logger.Info("pebble_opened", zap.String("path", opts.Path))
	return &DB{inner: inner, path: opts.Path, writeSync: sync}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	if err := db.inner.Close(); err != nil {
		return err
	}
	db.inner = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the handle is open.
func (db *DB) Ready() bool { return db != nil && db.inner != nil }

// Path returns the configured database directory.
func (db *DB) Path() string { return db.path }

// NewBatch returns a new empty batch for atomic multi-key writes.
func (db *DB) NewBatch() *pebble.Batch { return db.inner.NewBatch() }

// CommitBatch commits b atomically, whatever it holds. On the commit path
// the coordinator passes a batch holding both the caller's own mutations
// and the event log entry, so the two land together or not at all.
func (db *DB) CommitBatch(b *pebble.Batch) error {
	if b == nil {
		return fmt.Errorf("kv: nil batch")
	}
	sync := pebble.NoSync
	if db.writeSync {
		sync = pebble.Sync
	}
	start := time.Now()
	err := b.Commit(sync)
	if err != nil {
		logger.Error("batch_commit_failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	atomic.AddUint64(&db.commits, 1)
	return nil
}

// Get returns a copy of the value for key, or pebble.ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	v, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

// NewIter returns a raw iterator bounded by opts. Callers must Close it.
func (db *DB) NewIter(opts *pebble.IterOptions) (*pebble.Iterator, error) {
	return db.inner.NewIter(opts)
}

// Commits returns the number of batches successfully committed through
// this handle, for metrics.
func (db *DB) Commits() uint64 { return atomic.LoadUint64(&db.commits) }

// Metrics exposes the underlying pebble.Metrics snapshot.
func (db *DB) Metrics() *pebble.Metrics {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Metrics()
}
