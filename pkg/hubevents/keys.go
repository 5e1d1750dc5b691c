package hubevents

import (
	"encoding/binary"

	"hubevents/pkg/herrors"
)

// RootPrefix is the single byte owning every key the core writes. No
// other component may write under this prefix.
const RootPrefix byte = 0xE5

// LogKey returns the 9-byte storage key for id, or the 1-byte bare
// prefix when id == 0. The zero-id case is a preserved footgun: id 0
// is treated as "no id supplied" and produces a prefix-only key that
// is the lower bound for full-log scans, not a real event key. Callers
// must not request GetEvent(0).
func LogKey(id uint64) []byte {
	if id == 0 {
		return []byte{RootPrefix}
	}
	key := make([]byte, 9)
	key[0] = RootPrefix
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

// ParseLogKey extracts the id from a 9-byte log key produced by LogKey.
func ParseLogKey(key []byte) (id uint64, ok bool) {
	if len(key) != 9 || key[0] != RootPrefix {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[1:]), true
}

// IncrementPrefix returns the lexicographically smallest byte string
// strictly greater than every string with prefix p, for use as an
// iterator's exclusive upper bound. It fails if p is all 0xFF, since no
// such increment exists and the caller must not silently scan past the
// intended key space.
func IncrementPrefix(p []byte) ([]byte, error) {
	out := append([]byte(nil), p...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1], nil
		}
	}
	return nil, herrors.InvalidParam("keys: prefix %x has no successor", p)
}

// logLowerBound returns the inclusive lower iterator bound for a scan
// starting at fromID. fromID == 0 means "from the start of the log".
func logLowerBound(fromID uint64) []byte {
	if fromID == 0 {
		return []byte{RootPrefix}
	}
	return LogKey(fromID)
}

// logUpperBound returns the exclusive iterator upper bound for a scan
// ending at toID, or the increment of the bare prefix when toID == 0
// (meaning "to the end of the log").
func logUpperBound(toID uint64) ([]byte, error) {
	if toID == 0 {
		return IncrementPrefix([]byte{RootPrefix})
	}
	return LogKey(toID), nil
}
