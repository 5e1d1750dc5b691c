package hubevents

import (
	"sync"

	"go.uber.org/zap"

	"hubevents/pkg/herrors"
	"hubevents/pkg/logger"
)

const (
	// timestampBits is the width of the millisecond-since-epoch field.
	timestampBits = 41
	// sequenceBits is the width of the intra-millisecond counter field.
	sequenceBits = 12

	maxTimestamp = uint64(1)<<timestampBits - 1
	maxSequence  = uint64(1)<<sequenceBits - 1
)

// IDGenerator produces strictly-increasing 53-bit event IDs laid out as
// [timestamp:41 | sequence:12], milliseconds since Epoch. It is owned
// exclusively by the Commit Coordinator; nothing else may call Generate.
type IDGenerator struct {
	mu    sync.Mutex
	epoch uint64 // Farcaster epoch, in unix milliseconds

	lastTimestamp uint64
	lastSeq       uint64
}

// NewIDGenerator returns a generator anchored at epochMs (unix
// milliseconds). The caller should follow up with Seed if there is a
// prior log to recover from.
func NewIDGenerator(epochMs uint64) *IDGenerator {
	return &IDGenerator{epoch: epochMs}
}

// Seed recovers generator state from the highest ID observed in the
// durable log, so a restart never reissues an ID. Called once at
// startup before the generator serves any Generate calls.
func (g *IDGenerator) Seed(lastID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ts, seq := SplitID(lastID)
	g.lastTimestamp = ts
	g.lastSeq = seq
}

// Generate returns the next strictly-increasing ID for the wall-clock
// time nowMs (unix milliseconds). Backward clock movement must never
// regress observable IDs: lastTimestamp is pinned to max(lastTimestamp, t)
// rather than assigned unconditionally, and the sequence keeps advancing
// under the pinned timestamp so regression never repeats an ID.
func (g *IDGenerator) Generate(nowMs uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var t uint64
	if nowMs >= g.epoch {
		t = nowMs - g.epoch
	}

	if t > g.lastTimestamp {
		g.lastTimestamp = t
		g.lastSeq = 0
	} else {
		if t < g.lastTimestamp {
			logger.Warn("id_generator_clock_regression",
				zap.Uint64("observed_ts", t),
				zap.Uint64("last_ts", g.lastTimestamp))
		}
		g.lastSeq++
	}

	if g.lastTimestamp > maxTimestamp {
		return 0, herrors.InvalidParam("id generator: timestamp %d exceeds %d bits", g.lastTimestamp, timestampBits)
	}
	if g.lastSeq > maxSequence {
		return 0, herrors.InvalidParam("id generator: sequence %d exceeds %d bits", g.lastSeq, sequenceBits)
	}

	return (g.lastTimestamp << sequenceBits) | g.lastSeq, nil
}

// SplitID decomposes an ID into its timestamp and sequence parts.
func SplitID(id uint64) (timestamp, sequence uint64) {
	return id >> sequenceBits, id & maxSequence
}

// MakeEventID reconstructs the ID that would be produced by a given
// (timestamp, sequence) pair, without touching generator state. Used by
// PruneEvents to compute a prune boundary.
func MakeEventID(timestamp, sequence uint64) uint64 {
	return (timestamp << sequenceBits) | sequence
}
