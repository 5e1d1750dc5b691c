package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubevents/pkg/kv"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := kv.Open(kv.Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(db, 0, DefaultCoordinatorConfig())
	t.Cleanup(svc.Coordinator.Close)
	require.NoError(t, svc.Recover())
	return svc
}

func TestService_CommitThenGetEvent(t *testing.T) {
	svc := newTestService(t)
	id, err := svc.Commit(svc.DB.NewBatch(), EventArgs{Kind: EventKindMergeMessage, Account: 1, Set: SetCasts, TsHash: MakeTsHash(100, []byte("h"))})
	require.NoError(t, err)

	ev, err := svc.GetEvent(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Args.Account)
}

func TestService_RecoverSeedsGeneratorPastExistingLog(t *testing.T) {
	dir := t.TempDir()
	db, err := kv.Open(kv.Options{Path: dir})
	require.NoError(t, err)
	svc1 := NewService(db, 0, DefaultCoordinatorConfig())
	require.NoError(t, svc1.Recover())
	firstID, err := svc1.Commit(svc1.DB.NewBatch(), EventArgs{Kind: EventKindMergeMessage, Account: 1})
	require.NoError(t, err)
	svc1.Coordinator.Close()
	require.NoError(t, db.Close())

	db2, err := kv.Open(kv.Options{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })
	svc2 := NewService(db2, 0, DefaultCoordinatorConfig())
	t.Cleanup(svc2.Coordinator.Close)
	require.NoError(t, svc2.Recover())

	secondID, err := svc2.Commit(svc2.DB.NewBatch(), EventArgs{Kind: EventKindMergeMessage, Account: 1})
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)
}

func TestService_GetUsageReflectsCommittedMerge(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Commit(svc.DB.NewBatch(), EventArgs{Kind: EventKindMergeMessage, Account: 7, Set: SetLinks, TsHash: MakeTsHash(50, []byte("h1"))})
	require.NoError(t, err)
	svc.Coordinator.Drain()

	usage := svc.GetUsage(7, SetLinks)
	assert.Equal(t, uint32(1), usage.Used)
	assert.Equal(t, uint32(50), usage.EarliestTimestamp)
}
