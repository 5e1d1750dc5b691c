package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFixedNow(t *testing.T, now uint32) {
	t.Helper()
	orig := NowFunc
	NowFunc = func() (uint32, error) { return now, nil }
	t.Cleanup(func() { NowFunc = orig })
}

func TestOracle_EmptySetNotPrunable(t *testing.T) {
	withFixedNow(t, 10_000)
	cache := NewStorageCache(nil)
	cache.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeOnChainEvent, Account: 1, StorageUnits: 1}})
	oracle := NewOracle(cache)

	prunable, err := oracle.IsPrunable(Message{Account: 1, Timestamp: 9_999, Hash: []byte("h")}, SetCasts, 5000, nil)
	require.NoError(t, err)
	assert.False(t, prunable)
}

func TestOracle_ZeroUnitsAmbiguityPreservedAsFalse(t *testing.T) {
	withFixedNow(t, 10_000)
	cache := NewStorageCache(nil)
	oracle := NewOracle(cache)

	prunable, err := oracle.IsPrunable(Message{Account: 1, Timestamp: 9_999, Hash: []byte("h")}, SetCasts, 5000, nil)
	require.NoError(t, err)
	assert.False(t, prunable, "zero-unit accounts fall through to the earliest-hash branch, which is false on an empty set")
}

func TestOracle_Displacement(t *testing.T) {
	withFixedNow(t, 10_000)
	cache := NewStorageCache(nil)
	cache.ProcessEvent(Event{Args: EventArgs{Kind: EventKindMergeOnChainEvent, Account: 1, StorageUnits: 1}})
	for i := 0; i < 10; i++ {
		cache.ProcessEvent(Event{Args: EventArgs{
			Kind: EventKindMergeMessage, Account: 1, Set: SetCasts,
			TsHash: MakeTsHash(uint32(5000+i), []byte("h")),
		}})
	}
	oracle := NewOracle(cache)

	older := Message{Account: 1, Timestamp: 4000, Hash: []byte("h")}
	prunable, err := oracle.IsPrunable(older, SetCasts, 10, nil)
	require.NoError(t, err)
	assert.True(t, prunable)

	newer := Message{Account: 1, Timestamp: 6000, Hash: []byte("h")}
	prunable, err = oracle.IsPrunable(newer, SetCasts, 10, nil)
	require.NoError(t, err)
	assert.False(t, prunable)
}

func TestOracle_TimeLimitShortCircuits(t *testing.T) {
	withFixedNow(t, 10_000)
	cache := NewStorageCache(nil)
	oracle := NewOracle(cache)
	limit := uint32(100)

	prunable, err := oracle.IsPrunable(Message{Account: 1, Timestamp: 9_800, Hash: []byte("h")}, SetCasts, 5000, &limit)
	require.NoError(t, err)
	assert.True(t, prunable)
}
