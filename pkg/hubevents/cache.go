package hubevents

import (
	"bytes"
	"sync"

	"go.uber.org/zap"

	"hubevents/pkg/logger"
)

// cacheKey identifies one (account, set) partition.
type cacheKey struct {
	account uint64
	set     SetTag
}

// earliestEntry holds the cached floor tsHash for a partition. When the
// floor message is removed, the value is dropped and needsRefresh is
// set; the next GetEarliestTsHash recomputes it from the durable log.
type earliestEntry struct {
	tsHash       []byte
	needsRefresh bool
}

// StorageCache is the in-memory, single-writer usage cache: per-account
// per-set message counts and earliest tsHash, plus per-account storage
// units. It is written only by the Commit Coordinator's post-commit
// hook and by SyncFromDB; both callers are responsible for ensuring the
// two never run concurrently (SyncFromDB documents this requirement).
type StorageCache struct {
	mu       sync.RWMutex
	counts   map[cacheKey]uint32
	earliest map[cacheKey]earliestEntry
	units    map[uint64]uint32

	// log backs lazy recomputation of an invalidated earliest-ts-hash
	// entry and the full rebuild in SyncFromDB. It is read-only from the
	// cache's perspective.
	log *EventLog
}

// NewStorageCache returns an empty cache backed by log for rebuilds and
// lazy floor recomputation.
func NewStorageCache(log *EventLog) *StorageCache {
	return &StorageCache{
		counts:   make(map[cacheKey]uint32),
		earliest: make(map[cacheKey]earliestEntry),
		units:    make(map[uint64]uint32),
		log:      log,
	}
}

// GetMessageCount returns the live message count for (acct, set).
func (c *StorageCache) GetMessageCount(acct uint64, set SetTag) uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[cacheKey{acct, set}]
}

// GetEarliestTsHash returns the tsHash of the oldest live message in
// (acct, set), or nil if the set is empty. If the cached floor was
// invalidated by a removal, it is recomputed from the durable log
// before returning, then cached back.
func (c *StorageCache) GetEarliestTsHash(acct uint64, set SetTag) []byte {
	key := cacheKey{acct, set}
	c.mu.RLock()
	entry, ok := c.earliest[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	if !entry.needsRefresh {
		return entry.tsHash
	}
	recomputed := c.recomputeEarliest(acct, set)
	c.mu.Lock()
	c.earliest[key] = earliestEntry{tsHash: recomputed}
	c.mu.Unlock()
	return recomputed
}

// recomputeEarliest replays the durable event log filtered to (acct,
// set) to find the current floor tsHash. This is the "lazy, on next
// read" cache-repair policy; it is O(log size) but only runs after an
// invalidating removal, not on every read.
func (c *StorageCache) recomputeEarliest(acct uint64, set SetTag) []byte {
	if c.log == nil {
		return nil
	}
	events, err := c.log.GetEvents(0)
	if err != nil {
		logger.Error("cache_recompute_earliest_failed", zap.Uint64("account", acct), zap.Error(err))
		return nil
	}
	live := map[string]bool{}
	var order [][]byte
	for _, ev := range events {
		if ev.Args.Account != acct || eventSet(ev.Args) != set {
			continue
		}
		h := string(ev.Args.TsHash)
		switch ev.Args.Kind {
		case EventKindMergeMessage, EventKindMergeUsernameProof:
			if !live[h] {
				live[h] = true
				order = append(order, ev.Args.TsHash)
			}
		case EventKindPruneMessage, EventKindRevokeMessage:
			delete(live, h)
		}
	}
	var earliest []byte
	for _, h := range order {
		if !live[string(h)] {
			continue
		}
		if earliest == nil || bytes.Compare(h, earliest) < 0 {
			earliest = h
		}
	}
	return earliest
}

// eventSet returns the set an event's account cache entry belongs to.
// Username-proof events touch UserData, same as merges of user data.
func eventSet(a EventArgs) SetTag {
	if a.Kind == EventKindMergeUsernameProof {
		return SetUserData
	}
	return a.Set
}

// GetStorageUnits returns the purchased storage-unit count for acct.
// Zero is a valid, non-error result but is debug-logged: for a
// zero-unit account the oracle's size check never passes, so its
// prunability rests on the earliest-tsHash comparison alone.
func (c *StorageCache) GetStorageUnits(acct uint64) uint32 {
	c.mu.RLock()
	units := c.units[acct]
	c.mu.RUnlock()
	if units == 0 {
		logger.Debug("zero_storage_units", zap.Uint64("account", acct))
	}
	return units
}

// ProcessEvent applies a single committed event to the cache. It must
// be called in commit order; the Commit Coordinator is the only caller.
func (c *StorageCache) ProcessEvent(e Event) {
	a := e.Args
	switch a.Kind {
	case EventKindMergeMessage, EventKindMergeUsernameProof:
		c.applyMerge(a.Account, eventSet(a), a.TsHash)
	case EventKindPruneMessage, EventKindRevokeMessage:
		c.applyRemoval(a.Account, eventSet(a), a.TsHash)
	case EventKindMergeOnChainEvent:
		c.mu.Lock()
		c.units[a.Account] = a.StorageUnits
		c.mu.Unlock()
	default:
		logger.Warn("cache_process_event_unknown_kind", zap.Uint8("kind", uint8(a.Kind)))
	}
}

func (c *StorageCache) applyMerge(acct uint64, set SetTag, tsHash []byte) {
	key := cacheKey{acct, set}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	cur, ok := c.earliest[key]
	// An invalidated floor stays marked: the recompute on next read
	// replays the log, which already holds this merge.
	if !ok || (!cur.needsRefresh && (cur.tsHash == nil || bytes.Compare(tsHash, cur.tsHash) < 0)) {
		c.earliest[key] = earliestEntry{tsHash: append([]byte(nil), tsHash...)}
	}
}

func (c *StorageCache) applyRemoval(acct uint64, set SetTag, tsHash []byte) {
	key := cacheKey{acct, set}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[key] > 0 {
		c.counts[key]--
	}
	if cur, ok := c.earliest[key]; ok && !cur.needsRefresh && bytes.Equal(cur.tsHash, tsHash) {
		c.earliest[key] = earliestEntry{needsRefresh: true}
	}
}

// SyncFromDB fully rebuilds the cache by replaying the durable event
// log. Callers must ensure this does not overlap with commits — either
// hold the commit slot for its duration or run it before serving
// begins.
func (c *StorageCache) SyncFromDB() error {
	events, err := c.log.GetEvents(0)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.counts = make(map[cacheKey]uint32)
	c.earliest = make(map[cacheKey]earliestEntry)
	c.units = make(map[uint64]uint32)
	c.mu.Unlock()

	for _, ev := range events {
		c.ProcessEvent(ev)
	}
	// Resolve the needsRefresh markers left by replayed removals of a
	// partition's floor message, so the rebuilt cache holds no stale
	// entries.
	c.mu.RLock()
	stale := make([]cacheKey, 0)
	for k, e := range c.earliest {
		if e.needsRefresh {
			stale = append(stale, k)
		}
	}
	c.mu.RUnlock()
	for _, k := range stale {
		recomputed := c.recomputeEarliest(k.account, k.set)
		c.mu.Lock()
		c.earliest[k] = earliestEntry{tsHash: recomputed}
		c.mu.Unlock()
	}
	logger.Info("storage_cache_synced", zap.Int("events_replayed", len(events)))
	return nil
}
