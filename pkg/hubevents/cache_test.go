package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageCache_MergeIncrementsCount(t *testing.T) {
	c := NewStorageCache(nil)
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")}})
	assert.Equal(t, uint32(1), c.GetMessageCount(1, SetCasts))
}

func TestStorageCache_EarliestTracksMinimum(t *testing.T) {
	c := NewStorageCache(nil)
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("m")}})
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")}})
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("z")}})
	assert.Equal(t, []byte("a"), c.GetEarliestTsHash(1, SetCasts))
}

func TestStorageCache_RemovalDecrementsCount(t *testing.T) {
	c := NewStorageCache(nil)
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")}})
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindPruneMessage, Account: 1, Set: SetCasts, TsHash: []byte("a")}})
	assert.Equal(t, uint32(0), c.GetMessageCount(1, SetCasts))
}

func TestStorageCache_RemovalOfFloorRecomputesLazily(t *testing.T) {
	log := newTestLog(t)
	c := NewStorageCache(log)

	commitDirect := func(id uint64, kind EventKind, tsHash []byte) {
		batch := log.db.NewBatch()
		ev := Event{ID: id, Args: EventArgs{Kind: kind, Account: 1, Set: SetCasts, TsHash: tsHash}}
		require.NoError(t, batch.Set(LogKey(id), EncodeEvent(ev), nil))
		require.NoError(t, log.db.CommitBatch(batch))
		c.ProcessEvent(ev)
	}

	commitDirect(1, EventKindMergeMessage, []byte("a"))
	commitDirect(2, EventKindMergeMessage, []byte("b"))
	assert.Equal(t, []byte("a"), c.GetEarliestTsHash(1, SetCasts))

	commitDirect(3, EventKindPruneMessage, []byte("a"))
	assert.Equal(t, []byte("b"), c.GetEarliestTsHash(1, SetCasts))
}

func TestStorageCache_OnChainEventUpdatesUnits(t *testing.T) {
	c := NewStorageCache(nil)
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeOnChainEvent, Account: 1, StorageUnits: 5}})
	assert.Equal(t, uint32(5), c.GetStorageUnits(1))
}

func TestStorageCache_UsernameProofTouchesUserData(t *testing.T) {
	c := NewStorageCache(nil)
	c.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeUsernameProof, Account: 1, TsHash: []byte("a")}})
	assert.Equal(t, uint32(1), c.GetMessageCount(1, SetUserData))
}

func TestStorageCache_SyncFromDBRebuildsState(t *testing.T) {
	log := newTestLog(t)
	putEvent(t, log, 1, EventKindMergeMessage)
	putEvent(t, log, 2, EventKindMergeMessage)

	c := NewStorageCache(log)
	require.NoError(t, c.SyncFromDB())
	assert.Equal(t, uint32(2), c.GetMessageCount(1, SetUnknown))
}
