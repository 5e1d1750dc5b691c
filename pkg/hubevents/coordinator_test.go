package hubevents

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubevents/pkg/herrors"
	"hubevents/pkg/kv"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *kv.DB, *StorageCache, *Bus) {
	t.Helper()
	db, err := kv.Open(kv.Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := NewEventLog(db)
	cache := NewStorageCache(log)
	bus := NewBus()
	coord := NewCoordinator(db, NewIDGenerator(0), cache, bus, DefaultCoordinatorConfig())
	t.Cleanup(coord.Close)
	return coord, db, cache, bus
}

func TestCoordinator_CommitAssignsIncreasingIDs(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)

	id1, err := coord.Commit(coord.newBatchForTest(), EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")})
	require.NoError(t, err)
	id2, err := coord.Commit(coord.newBatchForTest(), EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("b")})
	require.NoError(t, err)
	assert.Less(t, id1, id2)
}

func TestCoordinator_CommitIsReadableAfterSuccess(t *testing.T) {
	coord, db, _, _ := newTestCoordinator(t)
	log := NewEventLog(db)

	id, err := coord.Commit(coord.newBatchForTest(), EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")})
	require.NoError(t, err)

	ev, err := log.GetEvent(id)
	require.NoError(t, err)
	assert.Equal(t, EventKindMergeMessage, ev.Args.Kind)
}

func TestCoordinator_FanoutUpdatesCacheInOrder(t *testing.T) {
	coord, _, cache, _ := newTestCoordinator(t)

	_, err := coord.Commit(coord.newBatchForTest(), EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")})
	require.NoError(t, err)
	coord.Drain()

	assert.Equal(t, uint32(1), cache.GetMessageCount(1, SetCasts))
}

func TestCoordinator_FanoutBroadcastsToBus(t *testing.T) {
	coord, _, _, bus := newTestCoordinator(t)
	var received []uint64
	var mu sync.Mutex
	bus.Subscribe(EventKindMergeMessage, func(e Event) {
		mu.Lock()
		received = append(received, e.ID)
		mu.Unlock()
	})

	id, err := coord.Commit(coord.newBatchForTest(), EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")})
	require.NoError(t, err)
	coord.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{id}, received)
}

func TestCoordinator_TooBusyOnTimeout(t *testing.T) {
	db, err := kv.Open(kv.Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := NewEventLog(db)
	cache := NewStorageCache(log)
	bus := NewBus()
	coord := NewCoordinator(db, NewIDGenerator(0), cache, bus, CoordinatorConfig{
		LockMaxPending: 1000,
		LockTimeout:    10 * time.Millisecond,
	})
	t.Cleanup(coord.Close)

	// Hold the slot from another goroutine so the next Commit call
	// must wait past LockTimeout.
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		require.NoError(t, coord.acquireSlot())
		close(held)
		<-release
		coord.releaseSlot()
	}()
	<-held
	defer close(release)

	_, err = coord.Commit(coord.newBatchForTest(), EventArgs{Kind: EventKindMergeMessage, Account: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, herrors.ErrTooBusy)
}

// newBatchForTest returns a fresh empty batch the caller can pass to
// Commit; production callers populate it with their own mutations
// first.
func (c *Coordinator) newBatchForTest() *pebble.Batch {
	return c.db.NewBatch()
}
