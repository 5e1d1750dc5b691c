package hubevents

import (
	"bytes"
	"time"

	"hubevents/pkg/herrors"
)

// FarcasterEpoch is the project's fixed reference instant used to
// shrink message timestamps into seconds-since-epoch. It is a build
// constant, not a tunable: every tsHash in the system is computed
// relative to it.
const FarcasterEpoch = 1609459200 // 2021-01-01T00:00:00Z, unix seconds

// NowFunc returns the current Farcaster-epoch time in seconds. It is a
// package variable so tests can inject a fixed clock; production code
// leaves it at its default.
var NowFunc = func() (uint32, error) {
	return uint32(time.Now().Unix() - FarcasterEpoch), nil
}

// MakeTsHash builds the composite (timestamp, hash) byte string used
// as an opaque, lexicographically-ordered comparable identifier.
func MakeTsHash(timestamp uint32, hash []byte) []byte {
	out := make([]byte, 4+len(hash))
	out[0] = byte(timestamp >> 24)
	out[1] = byte(timestamp >> 16)
	out[2] = byte(timestamp >> 8)
	out[3] = byte(timestamp)
	copy(out[4:], hash)
	return out
}

// Oracle answers whether a candidate message would be immediately
// prune-eligible if committed now, against the current state of a
// StorageCache. It performs no writes.
type Oracle struct {
	cache *StorageCache
}

// NewOracle returns an oracle reading from cache.
func NewOracle(cache *StorageCache) *Oracle {
	return &Oracle{cache: cache}
}

// IsPrunable implements the five-step short-circuiting algorithm.
// sizeLimit is the per-storage-unit message cap for set; timeLimit, if
// non-nil, is an absolute age cutoff in seconds.
func (o *Oracle) IsPrunable(msg Message, set SetTag, sizeLimit uint32, timeLimit *uint32) (bool, error) {
	now, err := NowFunc()
	if err != nil {
		return false, herrors.StorageFailure("is_prunable", err)
	}

	if timeLimit != nil {
		cutoff := int64(now) - int64(*timeLimit)
		if int64(msg.Timestamp) < cutoff {
			return true, nil
		}
	}

	units := o.cache.GetStorageUnits(msg.Account)
	count := o.cache.GetMessageCount(msg.Account, set)
	if uint64(count) < uint64(sizeLimit)*uint64(units) {
		return false, nil
	}

	tsHash := MakeTsHash(msg.Timestamp, msg.Hash)
	earliest := o.cache.GetEarliestTsHash(msg.Account, set)
	if earliest == nil {
		return false, nil
	}
	return bytes.Compare(tsHash, earliest) < 0, nil
}
