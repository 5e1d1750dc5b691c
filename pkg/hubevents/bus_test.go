package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_RegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []int
	b.Subscribe(EventKindMergeMessage, func(Event) { order = append(order, 1) })
	b.Subscribe(EventKindMergeMessage, func(Event) { order = append(order, 2) })
	b.Subscribe(EventKindMergeMessage, func(Event) { order = append(order, 3) })

	err := b.Broadcast(Event{ID: 1, Args: EventArgs{Kind: EventKindMergeMessage}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_PanicIsolation(t *testing.T) {
	b := NewBus()
	var secondRan bool
	b.Subscribe(EventKindRevokeMessage, func(Event) { panic("boom") })
	b.Subscribe(EventKindRevokeMessage, func(Event) { secondRan = true })

	err := b.Broadcast(Event{ID: 1, Args: EventArgs{Kind: EventKindRevokeMessage}})
	require.NoError(t, err)
	assert.True(t, secondRan)
}

func TestBus_UnknownKind(t *testing.T) {
	b := NewBus()
	err := b.Broadcast(Event{ID: 1, Args: EventArgs{Kind: EventKindUnknown}})
	assert.Error(t, err)
}

func TestBus_DispatchesOnlyMatchingKind(t *testing.T) {
	b := NewBus()
	var mergeCount, pruneCount int
	b.Subscribe(EventKindMergeMessage, func(Event) { mergeCount++ })
	b.Subscribe(EventKindPruneMessage, func(Event) { pruneCount++ })

	require.NoError(t, b.Broadcast(Event{ID: 1, Args: EventArgs{Kind: EventKindMergeMessage}}))
	assert.Equal(t, 1, mergeCount)
	assert.Equal(t, 0, pruneCount)
}
