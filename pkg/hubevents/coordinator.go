package hubevents

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"hubevents/pkg/herrors"
	"hubevents/pkg/kv"
	"hubevents/pkg/logger"
)

// CoordinatorConfig carries the two admission-control bounds from
// §5: a maximum queue depth and a per-acquire timeout. Both apply to
// acquiring the single commit slot, not to the commit itself.
type CoordinatorConfig struct {
	LockMaxPending int
	LockTimeout    time.Duration
	// FanoutBuffer sizes the post-commit fan-out queue. It is sized
	// generously (LockMaxPending by default) because, unlike the commit
	// slot, cache updates must never be dropped for backpressure —
	// only degraded listeners on the bus may lag.
	FanoutBuffer int
}

// DefaultCoordinatorConfig matches the source's stated defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		LockMaxPending: 1000,
		LockTimeout:    500 * time.Millisecond,
		FanoutBuffer:   1000,
	}
}

// Coordinator serializes commits through a single logical slot,
// stamps each with a monotonic ID, commits it atomically alongside the
// caller's own mutations, and fans the result out to the storage
// cache and subscriber bus in commit order.
type Coordinator struct {
	db  *kv.DB
	ids *IDGenerator

	cfg     CoordinatorConfig
	slot    chan struct{}
	pending int32

	fanout   chan fanoutItem
	fanoutWG chan struct{} // closed once the fan-out consumer exits

	cache *StorageCache
	bus   *Bus
}

// NewCoordinator wires a coordinator over db, generating IDs from ids
// and fanning committed events out to cache and bus. It starts the
// single fan-out consumer goroutine; call Close to stop it.
func NewCoordinator(db *kv.DB, ids *IDGenerator, cache *StorageCache, bus *Bus, cfg CoordinatorConfig) *Coordinator {
	if cfg.LockMaxPending <= 0 {
		cfg.LockMaxPending = DefaultCoordinatorConfig().LockMaxPending
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultCoordinatorConfig().LockTimeout
	}
	if cfg.FanoutBuffer <= 0 {
		cfg.FanoutBuffer = cfg.LockMaxPending
	}
	c := &Coordinator{
		db:       db,
		ids:      ids,
		cfg:      cfg,
		slot:     make(chan struct{}, 1),
		fanout:   make(chan fanoutItem, cfg.FanoutBuffer),
		fanoutWG: make(chan struct{}),
		cache:    cache,
		bus:      bus,
	}
	go c.runFanout()
	return c
}

// Close stops accepting fan-out work and waits for the consumer to
// drain what's already queued.
func (c *Coordinator) Close() {
	close(c.fanout)
	<-c.fanoutWG
}

// Commit is the single write path: acquire the slot, mint an ID, stamp
// it into args, append the encoded event to txn, commit txn, then
// enqueue the ordered post-commit fan-out.
func (c *Coordinator) Commit(txn *pebble.Batch, args EventArgs) (uint64, error) {
	if err := c.acquireSlot(); err != nil {
		return 0, err
	}
	defer c.releaseSlot()

	id, err := c.ids.Generate(uint64(time.Now().UnixMilli()))
	if err != nil {
		return 0, err
	}

	event := Event{ID: id, Args: args}
	if err := txn.Set(LogKey(id), EncodeEvent(event), nil); err != nil {
		return 0, herrors.StorageFailure("commit: append log entry", err)
	}

	if err := c.db.CommitBatch(txn); err != nil {
		return 0, herrors.StorageFailure("commit", err)
	}

	// The slot is still held here (the deferred releaseSlot runs on
	// return), so fan-out sends happen in commit order and the next
	// caller cannot enqueue ahead of this event.
	c.fanout <- fanoutItem{event: event}

	return id, nil
}

func (c *Coordinator) acquireSlot() error {
	if atomic.AddInt32(&c.pending, 1) > int32(c.cfg.LockMaxPending) {
		atomic.AddInt32(&c.pending, -1)
		return herrors.TooBusy("commit slot queue depth exceeded")
	}
	select {
	case c.slot <- struct{}{}:
		atomic.AddInt32(&c.pending, -1)
		return nil
	case <-time.After(c.cfg.LockTimeout):
		atomic.AddInt32(&c.pending, -1)
		return herrors.TooBusy("commit slot acquire timed out")
	}
}

func (c *Coordinator) releaseSlot() {
	<-c.slot
}

// fanoutItem is either a committed event to apply, or a drain signal
// requesting that the consumer report back once everything enqueued
// ahead of it has been processed. Modeling drain as a queue entry
// (rather than a separate channel) keeps it ordered with real events.
type fanoutItem struct {
	event Event
	done  chan struct{}
}

// runFanout is the single consumer draining the post-commit queue in
// order, applying cache updates then broadcasting. A cache update is
// never skipped; a broadcast failure (unrecognized kind) is logged and
// otherwise ignored, since listener/bus issues must never affect a
// commit that has already succeeded.
func (c *Coordinator) runFanout() {
	defer close(c.fanoutWG)
	for item := range c.fanout {
		if item.done != nil {
			close(item.done)
			continue
		}
		c.cache.ProcessEvent(item.event)
		if err := c.bus.Broadcast(item.event); err != nil {
			logger.Error("post_commit_broadcast_failed", zap.Uint64("event_id", item.event.ID), zap.Error(err))
		}
	}
}

// Drain blocks until every fan-out item enqueued so far has been
// processed. Tests use this to observe cache/bus state deterministically
// after a Commit without sleeping.
func (c *Coordinator) Drain() {
	done := make(chan struct{})
	c.fanout <- fanoutItem{done: done}
	<-done
}
