package hubevents

import (
	"encoding/binary"
	"hash/crc32"

	"hubevents/pkg/herrors"
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// wire layout of an encoded event value:
//   [kind:1 | account:8 | set:1 | tsHashLen:2 | tsHash | storageUnits:4 |
//    payloadLen:4 | payload | crc32:4]
//
// The crc covers everything before it. A checksum mismatch or a length
// that runs past the buffer means corruption or schema drift; decode
// fails hard rather than returning a best-effort partial event, per the
// core's no-tolerant-decoding policy.

// EncodeEvent serializes an Event to its durable payload.
func EncodeEvent(e Event) []byte {
	a := e.Args
	size := 1 + 8 + 1 + 2 + len(a.TsHash) + 4 + 4 + len(a.Payload) + 4
	buf := make([]byte, size)
	i := 0
	buf[i] = byte(a.Kind)
	i++
	binary.BigEndian.PutUint64(buf[i:], a.Account)
	i += 8
	buf[i] = byte(a.Set)
	i++
	binary.BigEndian.PutUint16(buf[i:], uint16(len(a.TsHash)))
	i += 2
	i += copy(buf[i:], a.TsHash)
	binary.BigEndian.PutUint32(buf[i:], a.StorageUnits)
	i += 4
	binary.BigEndian.PutUint32(buf[i:], uint32(len(a.Payload)))
	i += 4
	i += copy(buf[i:], a.Payload)

	sum := crc32.Checksum(buf[:i], crcTable)
	binary.BigEndian.PutUint32(buf[i:], sum)
	return buf
}

// DecodeEvent parses a durable payload back into event args. id is
// supplied by the caller from the storage key, not the payload — the
// key is the sole source of truth for ID.
func DecodeEvent(id uint64, raw []byte) (Event, error) {
	const minLen = 1 + 8 + 1 + 2 + 4 + 4 + 4
	if len(raw) < minLen {
		return Event{}, herrors.StorageFailure("decode_event", errShortBuffer(len(raw), minLen))
	}

	body := raw[:len(raw)-4]
	wantSum := binary.BigEndian.Uint32(raw[len(raw)-4:])
	gotSum := crc32.Checksum(body, crcTable)
	if gotSum != wantSum {
		return Event{}, herrors.StorageFailure("decode_event", errChecksumMismatch(wantSum, gotSum))
	}

	i := 0
	kind := EventKind(body[i])
	i++
	account := binary.BigEndian.Uint64(body[i:])
	i += 8
	set := SetTag(body[i])
	i++
	tsHashLen := int(binary.BigEndian.Uint16(body[i:]))
	i += 2
	if i+tsHashLen > len(body) {
		return Event{}, herrors.StorageFailure("decode_event", errShortBuffer(len(body), i+tsHashLen))
	}
	tsHash := append([]byte(nil), body[i:i+tsHashLen]...)
	i += tsHashLen
	if i+4 > len(body) {
		return Event{}, herrors.StorageFailure("decode_event", errShortBuffer(len(body), i+4))
	}
	storageUnits := binary.BigEndian.Uint32(body[i:])
	i += 4
	if i+4 > len(body) {
		return Event{}, herrors.StorageFailure("decode_event", errShortBuffer(len(body), i+4))
	}
	payloadLen := int(binary.BigEndian.Uint32(body[i:]))
	i += 4
	if i+payloadLen != len(body) {
		return Event{}, herrors.StorageFailure("decode_event", errShortBuffer(len(body), i+payloadLen))
	}
	payload := append([]byte(nil), body[i:i+payloadLen]...)

	return Event{
		ID: id,
		Args: EventArgs{
			Kind:         kind,
			Account:      account,
			Set:          set,
			TsHash:       tsHash,
			StorageUnits: storageUnits,
			Payload:      payload,
		},
	}, nil
}

type shortBufferError struct {
	have, want int
}

func (e *shortBufferError) Error() string {
	return "hubevents: short buffer decoding event"
}

func errShortBuffer(have, want int) error { return &shortBufferError{have, want} }

type checksumMismatchError struct {
	want, got uint32
}

func (e *checksumMismatchError) Error() string {
	return "hubevents: crc32 mismatch decoding event"
}

func errChecksumMismatch(want, got uint32) error { return &checksumMismatchError{want, got} }
