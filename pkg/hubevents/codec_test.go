package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent_RoundTrip(t *testing.T) {
	e := Event{
		ID: 4097,
		Args: EventArgs{
			Kind:         EventKindMergeMessage,
			Account:      42,
			Set:          SetCasts,
			TsHash:       []byte("some-ts-hash"),
			StorageUnits: 0,
			Payload:      []byte("opaque-message-bytes"),
		},
	}
	raw := EncodeEvent(e)
	got, err := DecodeEvent(e.ID, raw)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestEncodeDecodeEvent_EmptyTsHashAndPayload(t *testing.T) {
	e := Event{ID: 1, Args: EventArgs{Kind: EventKindMergeOnChainEvent, Account: 7, StorageUnits: 3}}
	raw := EncodeEvent(e)
	got, err := DecodeEvent(e.ID, raw)
	require.NoError(t, err)
	assert.Equal(t, e.Args.Kind, got.Args.Kind)
	assert.Equal(t, e.Args.StorageUnits, got.Args.StorageUnits)
}

func TestDecodeEvent_CorruptChecksum(t *testing.T) {
	e := Event{ID: 1, Args: EventArgs{Kind: EventKindMergeMessage, Account: 1, Payload: []byte("x")}}
	raw := EncodeEvent(e)
	raw[0] ^= 0xFF // corrupt kind byte, checksum no longer matches
	_, err := DecodeEvent(e.ID, raw)
	assert.Error(t, err)
}

func TestDecodeEvent_TooShort(t *testing.T) {
	_, err := DecodeEvent(1, []byte{1, 2, 3})
	assert.Error(t, err)
}
