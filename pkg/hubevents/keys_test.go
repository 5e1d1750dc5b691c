package hubevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogKey_ZeroIsPrefixOnly(t *testing.T) {
	assert.Equal(t, []byte{RootPrefix}, LogKey(0))
}

func TestLogKey_RoundTrip(t *testing.T) {
	key := LogKey(4097)
	assert.Len(t, key, 9)
	id, ok := ParseLogKey(key)
	require.True(t, ok)
	assert.Equal(t, uint64(4097), id)
}

func TestLogKey_Ordering(t *testing.T) {
	a := LogKey(1)
	b := LogKey(2)
	assert.Equal(t, -1, compareBytes(a, b))
}

func TestIncrementPrefix(t *testing.T) {
	inc, err := IncrementPrefix([]byte{RootPrefix})
	require.NoError(t, err)
	assert.Equal(t, []byte{RootPrefix + 1}, inc)
}

func TestIncrementPrefix_AllFF(t *testing.T) {
	_, err := IncrementPrefix([]byte{0xFF, 0xFF})
	assert.Error(t, err)
}

func TestLogBounds(t *testing.T) {
	lo := logLowerBound(0)
	assert.Equal(t, []byte{RootPrefix}, lo)

	lo2 := logLowerBound(5)
	assert.Equal(t, LogKey(5), lo2)

	hi, err := logUpperBound(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{RootPrefix + 1}, hi)

	hi2, err := logUpperBound(10)
	require.NoError(t, err)
	assert.Equal(t, LogKey(10), hi2)
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
