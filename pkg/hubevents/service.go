package hubevents

import (
	"time"

	"github.com/cockroachdb/pebble"

	"hubevents/pkg/kv"
)

// Service is the upward interface collaborators use: it wires the ID
// generator, event log, storage cache, subscriber bus, commit
// coordinator, and prunability oracle behind the operations named in
// the external contract (commit, get_event, get_usage, is_prunable,
// prune_events, sync_cache, subscribe).
type Service struct {
	DB          *kv.DB
	Log         *EventLog
	Cache       *StorageCache
	Bus         *Bus
	Coordinator *Coordinator
	Oracle      *Oracle
}

// NewService wires a full Service over db. epochMs is the Farcaster
// epoch used by the ID generator; cfg configures the commit slot.
func NewService(db *kv.DB, epochMs uint64, cfg CoordinatorConfig) *Service {
	log := NewEventLog(db)
	cache := NewStorageCache(log)
	bus := NewBus()
	ids := NewIDGenerator(epochMs)
	coord := NewCoordinator(db, ids, cache, bus, cfg)
	oracle := NewOracle(cache)
	return &Service{DB: db, Log: log, Cache: cache, Bus: bus, Coordinator: coord, Oracle: oracle}
}

// Recover seeds the ID generator from the highest key currently in the
// log and rebuilds the storage cache, in that order. Must run once at
// startup before the service accepts commits.
func (s *Service) Recover() error {
	lastID, err := s.highestLogID()
	if err != nil {
		return err
	}
	s.Coordinator.ids.Seed(lastID)
	return s.Cache.SyncFromDB()
}

func (s *Service) highestLogID() (uint64, error) {
	upper, err := IncrementPrefix([]byte{RootPrefix})
	if err != nil {
		return 0, err
	}
	iter, err := s.DB.NewIter(&pebble.IterOptions{LowerBound: []byte{RootPrefix}, UpperBound: upper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, nil
	}
	id, ok := ParseLogKey(iter.Key())
	if !ok {
		return 0, nil
	}
	return id, nil
}

// Commit is the sole write path; see Coordinator.Commit.
func (s *Service) Commit(txn *pebble.Batch, args EventArgs) (uint64, error) {
	return s.Coordinator.Commit(txn, args)
}

// GetEvent, GetEvents, GetEventsPage delegate to the event log.
func (s *Service) GetEvent(id uint64) (Event, error) { return s.Log.GetEvent(id) }
func (s *Service) GetEvents(from uint64) ([]Event, error) { return s.Log.GetEvents(from) }
func (s *Service) GetEventsPage(from uint64, n int) ([]Event, uint64, error) {
	return s.Log.GetEventsPage(from, n)
}

// GetUsage answers the read-only usage view for (account, set).
func (s *Service) GetUsage(account uint64, set SetTag) Usage {
	earliest := s.Cache.GetEarliestTsHash(account, set)
	u := Usage{Used: s.Cache.GetMessageCount(account, set)}
	if earliest != nil {
		u.EarliestTimestamp, u.EarliestHash = splitTsHash(earliest)
	}
	return u
}

func splitTsHash(tsHash []byte) (uint32, []byte) {
	if len(tsHash) < 4 {
		return 0, nil
	}
	ts := uint32(tsHash[0])<<24 | uint32(tsHash[1])<<16 | uint32(tsHash[2])<<8 | uint32(tsHash[3])
	return ts, tsHash[4:]
}

// GetStorageUnitsForAccount returns the cached storage-unit count.
func (s *Service) GetStorageUnitsForAccount(account uint64) uint32 {
	return s.Cache.GetStorageUnits(account)
}

// IsPrunable delegates to the oracle.
func (s *Service) IsPrunable(msg Message, set SetTag, sizeLimit uint32, timeLimit *uint32) (bool, error) {
	return s.Oracle.IsPrunable(msg, set, sizeLimit, timeLimit)
}

// PruneEvents deletes log entries older than timeLimit (defaulting to
// 3 days), computing the boundary id relative to the coordinator's
// epoch and the current wall clock.
func (s *Service) PruneEvents(timeLimit time.Duration) (deleted int, budgetExceeded bool, err error) {
	if timeLimit <= 0 {
		timeLimit = 3 * 24 * time.Hour
	}
	nowMs := uint64(time.Now().UnixMilli())
	epochMs := s.Coordinator.ids.epoch
	var relMs uint64
	if nowMs > epochMs {
		relMs = nowMs - epochMs
	}
	limitMs := uint64(timeLimit.Milliseconds())
	var cutoffMs uint64
	if relMs > limitMs {
		cutoffMs = relMs - limitMs
	}
	boundary := MakeEventID(cutoffMs, 0)
	return s.Log.PruneEvents(boundary)
}

// SyncCache forces a full cache rebuild from the durable log. Callers
// must ensure this does not overlap with commits.
func (s *Service) SyncCache() error { return s.Cache.SyncFromDB() }

// Subscribe registers a listener for kind.
func (s *Service) Subscribe(kind EventKind, l Listener) { s.Bus.Subscribe(kind, l) }

// Close stops the coordinator's fan-out consumer and closes the KV
// handle.
func (s *Service) Close() error {
	s.Coordinator.Close()
	return s.DB.Close()
}
