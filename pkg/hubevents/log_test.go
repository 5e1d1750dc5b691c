package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubevents/pkg/kv"
)

func newTestLog(t *testing.T) *EventLog {
	t.Helper()
	db, err := kv.Open(kv.Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEventLog(db)
}

func putEvent(t *testing.T, l *EventLog, id uint64, kind EventKind) {
	t.Helper()
	batch := l.db.NewBatch()
	ev := Event{ID: id, Args: EventArgs{Kind: kind, Account: 1, Payload: []byte("p")}}
	require.NoError(t, batch.Set(LogKey(id), EncodeEvent(ev), nil))
	require.NoError(t, l.db.CommitBatch(batch))
}

func TestEventLog_GetEvent_NotFound(t *testing.T) {
	l := newTestLog(t)
	_, err := l.GetEvent(1)
	assert.Error(t, err)
}

func TestEventLog_GetEvent_ZeroIDRejected(t *testing.T) {
	l := newTestLog(t)
	_, err := l.GetEvent(0)
	assert.Error(t, err)
}

func TestEventLog_PointLookupAfterPut(t *testing.T) {
	l := newTestLog(t)
	putEvent(t, l, 4097, EventKindMergeMessage)

	ev, err := l.GetEvent(4097)
	require.NoError(t, err)
	assert.Equal(t, uint64(4097), ev.ID)
	assert.Equal(t, EventKindMergeMessage, ev.Args.Kind)
}

func TestEventLog_GetEventsPage_Pagination(t *testing.T) {
	l := newTestLog(t)
	for i := uint64(1); i <= 25; i++ {
		putEvent(t, l, i, EventKindMergeMessage)
	}

	page1, next1, err := l.GetEventsPage(0, 10)
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.Equal(t, uint64(11), next1)

	page2, next2, err := l.GetEventsPage(next1, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 10)
	assert.Equal(t, uint64(21), next2)

	page3, next3, err := l.GetEventsPage(next2, 10)
	require.NoError(t, err)
	assert.Len(t, page3, 5)
	assert.Equal(t, uint64(26), next3)
}

func TestEventLog_GetEventsPage_EmptyReturnsFrom(t *testing.T) {
	l := newTestLog(t)
	events, next, err := l.GetEventsPage(5, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, uint64(5), next)
}

func TestEventLog_PruneEvents_Boundary(t *testing.T) {
	l := newTestLog(t)
	putEvent(t, l, 100, EventKindMergeMessage)
	putEvent(t, l, 200, EventKindMergeMessage)
	putEvent(t, l, 300, EventKindMergeMessage)

	deleted, exceeded, err := l.PruneEvents(200)
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.Equal(t, 1, deleted)

	_, err = l.GetEvent(100)
	assert.Error(t, err)
	_, err = l.GetEvent(200)
	assert.NoError(t, err)
	_, err = l.GetEvent(300)
	assert.NoError(t, err)
}
