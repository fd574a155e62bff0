package diskv2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	frame := encodeFrame(42, 3, []byte("payload"))
	hdr, err := decodeFrameHeader(frame[:frameHeaderSize])
	require.NoError(t, err)
	assert.Equal(t, uint64(42), hdr.RecordID)
	assert.Equal(t, uint32(3), hdr.EventCount)
	assert.Equal(t, uint32(7), hdr.Length)
	assert.Equal(t, int64(len(frame)), hdr.totalLen())

	payload := frame[frameHeaderSize : frameHeaderSize+7]
	trailer := frame[frameHeaderSize+7:]
	assert.True(t, verifyChecksum(frame[:frameHeaderSize], payload, trailer))
}

func TestVerifyChecksumRejectsCorruption(t *testing.T) {
	frame := encodeFrame(1, 1, []byte("hello"))
	frame[frameHeaderSize] ^= 0xff // flip a payload byte
	payload := frame[frameHeaderSize : frameHeaderSize+5]
	trailer := frame[frameHeaderSize+5:]
	assert.False(t, verifyChecksum(frame[:frameHeaderSize], payload, trailer))
}

func TestDecodeFrameHeaderRejectsShortInput(t *testing.T) {
	_, err := decodeFrameHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}
