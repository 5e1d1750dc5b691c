package hubevents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubevents/pkg/herrors"
)

func TestIDGenerator_Layout(t *testing.T) {
	g := NewIDGenerator(0)
	id, err := g.Generate(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<12), id)

	id2, err := g.Generate(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4097), id2)
}

func TestIDGenerator_Monotonic(t *testing.T) {
	g := NewIDGenerator(0)
	prev, err := g.Generate(100)
	require.NoError(t, err)
	for _, now := range []uint64{100, 101, 101, 50, 200} {
		id, err := g.Generate(now)
		require.NoError(t, err)
		assert.Greater(t, id, prev, "IDs must be strictly increasing even under clock regression")
		prev = id
	}
}

func TestIDGenerator_SequenceOverflow(t *testing.T) {
	g := NewIDGenerator(0)
	for i := 0; i < 4096; i++ {
		_, err := g.Generate(5)
		require.NoError(t, err)
	}
	_, err := g.Generate(5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, herrors.ErrInvalidParam))
}

func TestIDGenerator_TimestampOverflow(t *testing.T) {
	g := NewIDGenerator(0)
	_, err := g.Generate(maxTimestamp + 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, herrors.ErrInvalidParam))
}

func TestIDGenerator_SeedRecovery(t *testing.T) {
	g := NewIDGenerator(0)
	lastID, err := g.Generate(1000)
	require.NoError(t, err)

	g2 := NewIDGenerator(0)
	g2.Seed(lastID)
	next, err := g2.Generate(1000)
	require.NoError(t, err)
	assert.Greater(t, next, lastID)
}

func TestSplitAndMakeEventID_RoundTrip(t *testing.T) {
	ts, seq := SplitID(uint64(4097))
	assert.Equal(t, uint64(1), ts)
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, uint64(4097), MakeEventID(ts, seq))
}
