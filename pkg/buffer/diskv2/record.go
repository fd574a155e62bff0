// Package diskv2 implements the current disk-backed buffer variant (C4):
// a durable, bounded, single-producer/single-consumer queue backed by a
// sequence of fixed-cap data files plus a memory-mapped ledger.
package diskv2

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// frameHeaderSize is the fixed-size prefix of every on-disk record:
// record_id (u64 BE) | event_count (u32 BE) | length (u32 BE).
const frameHeaderSize = 8 + 4 + 4

// frameTrailerSize is the trailing crc32c (u32 BE).
const frameTrailerSize = 4

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Record is one decoded frame read back from a data file.
type Record struct {
	ID         uint64
	EventCount uint32
	Payload    []byte
}

// frameHeader is the fixed prefix, read independently of the payload so
// that a truncated/partial tail can be detected without allocating for
// the (possibly bogus) declared length.
type frameHeader struct {
	RecordID   uint64
	EventCount uint32
	Length     uint32
}

// totalLen returns the full on-disk size of a frame with this header's
// declared payload length.
func (h frameHeader) totalLen() int64 {
	return int64(frameHeaderSize) + int64(h.Length) + int64(frameTrailerSize)
}

func decodeFrameHeader(b []byte) (frameHeader, error) {
	if len(b) < frameHeaderSize {
		return frameHeader{}, fmt.Errorf("diskv2: short frame header (%d bytes)", len(b))
	}
	return frameHeader{
		RecordID:   binary.BigEndian.Uint64(b[0:8]),
		EventCount: binary.BigEndian.Uint32(b[8:12]),
		Length:     binary.BigEndian.Uint32(b[12:16]),
	}, nil
}

// encodeFrame serializes a full record frame: header, payload, and a
// trailing crc32c computed over header+payload.
func encodeFrame(recordID uint64, eventCount uint32, payload []byte) []byte {
	buf := make([]byte, frameHeaderSize+len(payload)+frameTrailerSize)
	binary.BigEndian.PutUint64(buf[0:8], recordID)
	binary.BigEndian.PutUint32(buf[8:12], eventCount)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	sum := crc32.Checksum(buf[:frameHeaderSize+len(payload)], castagnoli)
	binary.BigEndian.PutUint32(buf[frameHeaderSize+len(payload):], sum)
	return buf
}

// verifyChecksum reports whether the trailing crc32c matches the
// header+payload bytes that precede it.
func verifyChecksum(header []byte, payload []byte, trailer []byte) bool {
	if len(trailer) < frameTrailerSize {
		return false
	}
	want := binary.BigEndian.Uint32(trailer[:frameTrailerSize])
	h := crc32.New(castagnoli)
	h.Write(header)
	h.Write(payload)
	return h.Sum32() == want
}
