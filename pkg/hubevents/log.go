package hubevents

import (
	"time"

	"github.com/cockroachdb/pebble"

	"hubevents/pkg/herrors"
	"hubevents/pkg/kv"
)

// EventLog provides point lookup, full scan, paginated scan, and
// time-bounded prune over the event key space owned by the core. It
// never mutates anything outside the RootPrefix range.
type EventLog struct {
	db *kv.DB
}

// NewEventLog wraps db for log operations.
func NewEventLog(db *kv.DB) *EventLog {
	return &EventLog{db: db}
}

// GetEvent performs a point lookup by id. id == 0 always misses: it
// addresses the bare prefix, not a real event.
func (l *EventLog) GetEvent(id uint64) (Event, error) {
	if id == 0 {
		return Event{}, herrors.NotFound("event id 0 is reserved and never addressable")
	}
	raw, err := l.db.Get(LogKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return Event{}, herrors.NotFound("event")
		}
		return Event{}, herrors.StorageFailure("get_event", err)
	}
	return DecodeEvent(id, raw)
}

// GetEvents scans the full log from fromID (0 means from the start) to
// the end, decoding every entry. Intended for subscriber bootstrap;
// callers with large logs should prefer GetEventsPage.
func (l *EventLog) GetEvents(fromID uint64) ([]Event, error) {
	events, _, err := l.scan(fromID, 0, 0)
	return events, err
}

// GetEventsPage scans up to pageSize entries with id >= fromID.
// nextPageEventID is last_yielded_id+1, or fromID if nothing was
// found, so a caller can always resume by passing it back.
func (l *EventLog) GetEventsPage(fromID uint64, pageSize int) (events []Event, nextPageEventID uint64, err error) {
	if pageSize <= 0 {
		return nil, fromID, herrors.InvalidParam("get_events_page: page_size must be positive, got %d", pageSize)
	}
	return l.scan(fromID, 0, pageSize)
}

// scan is the shared iteration core. limit == 0 means unbounded. toID
// == 0 means unbounded upper (scan to end of log).
func (l *EventLog) scan(fromID, toID uint64, limit int) ([]Event, uint64, error) {
	lower := logLowerBound(fromID)
	upper, err := logUpperBound(toID)
	if err != nil {
		return nil, fromID, err
	}

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fromID, herrors.StorageFailure("get_events_page", err)
	}
	defer iter.Close()

	var events []Event
	next := fromID
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		id, ok := ParseLogKey(key)
		if !ok {
			continue // the bare 1-byte prefix key, if ever written; not a real event
		}
		val := append([]byte(nil), iter.Value()...)
		ev, err := DecodeEvent(id, val)
		if err != nil {
			return events, next, err
		}
		events = append(events, ev)
		next = id + 1
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return events, next, herrors.StorageFailure("get_events_page", err)
	}
	return events, next, nil
}

// pruneWallClockBudget bounds a single PruneEvents call so a very large
// backlog cannot stall the caller indefinitely; the next invocation
// resumes from the front since deletions are irreversible and ordered.
const pruneWallClockBudget = 10 * time.Minute

// PruneEvents deletes every log entry with id < boundaryID. It returns
// the number of entries deleted and whether the wall-clock budget was
// exhausted before the whole range below boundaryID was covered
// (exceeding the budget is not itself an error).
func (l *EventLog) PruneEvents(boundaryID uint64) (deleted int, budgetExceeded bool, err error) {
	if boundaryID == 0 {
		// No id is below 0; logUpperBound(0) would mean "end of log".
		return 0, false, nil
	}
	upper, err := logUpperBound(boundaryID)
	if err != nil {
		return 0, false, err
	}
	lower := logLowerBound(0)

	deadline := time.Now().Add(pruneWallClockBudget)

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, false, herrors.StorageFailure("prune_events", err)
	}
	defer iter.Close()

	batch := l.db.NewBatch()
	defer batch.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if time.Now().After(deadline) {
			budgetExceeded = true
			break
		}
		key := append([]byte(nil), iter.Key()...)
		if _, ok := ParseLogKey(key); !ok {
			continue
		}
		if err := batch.Delete(key, nil); err != nil {
			return deleted, budgetExceeded, herrors.StorageFailure("prune_events", err)
		}
		deleted++
	}
	if err := iter.Error(); err != nil {
		return deleted, budgetExceeded, herrors.StorageFailure("prune_events", err)
	}
	if deleted == 0 {
		return 0, budgetExceeded, nil
	}
	if err := l.db.CommitBatch(batch); err != nil {
		return 0, budgetExceeded, herrors.StorageFailure("prune_events", err)
	}
	return deleted, budgetExceeded, nil
}
