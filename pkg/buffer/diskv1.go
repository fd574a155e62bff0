package buffer

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Codec converts a value to and from bytes for the legacy disk_v1
// transport. Production code normally passes a small JSON-backed codec;
// this package does not prescribe the wire format.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// JSONCodec is the default Codec: one JSON document per record, the
// simplest encoding that works across every event shape.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

// DiskV1Channel is the legacy disk-backed transport: a single file of
// length-prefixed records, fsync'd after every Send. Reads are not
// acknowledged: the read position is kept in memory only, so reopening
// the file replays it from the first record. It exists
// for backward compatibility with buffers created before disk_v2; new
// sinks should configure disk_v2 (see pkg/buffer/diskv2) instead.
type DiskV1Channel[T any] struct {
	codec Codec[T]

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	cond   *sync.Cond

	readOffset int64
	writeEnd   int64
	closed     bool
}

// OpenDiskV1 opens (creating if absent) the single backing file at path.
func OpenDiskV1[T any](path string, codec Codec[T]) (*DiskV1Channel[T], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, fmt.Errorf("diskv1: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	d := &DiskV1Channel[T]{
		codec:    codec,
		file:     f,
		writer:   bufio.NewWriter(f),
		writeEnd: info.Size(),
	}
	d.cond = sync.NewCond(&d.mu)
	return d, nil
}

func (d *DiskV1Channel[T]) ProducerSide() Sender[T]   { return diskv1Sender[T]{d} }
func (d *DiskV1Channel[T]) ConsumerSide() Receiver[T] { return diskv1Receiver[T]{d} }

type diskv1Sender[T any] struct{ d *DiskV1Channel[T] }

func (s diskv1Sender[T]) Send(_ context.Context, v T) error {
	payload, err := s.d.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("diskv1: encode: %w", err)
	}
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Seek(d.writeEnd, io.SeekStart); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := d.file.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := d.file.Write(payload); err != nil {
		return err
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("diskv1: fsync: %w", err)
	}
	d.writeEnd += int64(len(lenBuf)) + int64(len(payload))
	d.cond.Broadcast()
	return nil
}

func (s diskv1Sender[T]) Close() {
	d := s.d
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
}

type diskv1Receiver[T any] struct{ d *DiskV1Channel[T] }

func (r diskv1Receiver[T]) Recv(ctx context.Context) (T, bool, error) {
	var zero T
	d := r.d
	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	})
	defer stop()
	d.mu.Lock()
	for d.readOffset >= d.writeEnd && !d.closed {
		d.mu.Unlock()
		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		default:
		}
		d.mu.Lock()
		if d.readOffset >= d.writeEnd && !d.closed && ctx.Err() == nil {
			d.cond.Wait()
		}
	}
	if d.readOffset >= d.writeEnd && d.closed {
		d.mu.Unlock()
		return zero, false, nil
	}

	offset := d.readOffset
	d.mu.Unlock()

	var lenBuf [4]byte
	if _, err := d.file.ReadAt(lenBuf[:], offset); err != nil {
		return zero, false, fmt.Errorf("diskv1: read length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, length)
	if _, err := d.file.ReadAt(payload, offset+4); err != nil {
		return zero, false, fmt.Errorf("diskv1: read payload: %w", err)
	}

	v, err := d.codec.Decode(payload)
	if err != nil {
		return zero, false, fmt.Errorf("diskv1: decode: %w", err)
	}

	d.mu.Lock()
	d.readOffset = offset + 4 + int64(length)
	d.mu.Unlock()

	return v, true, nil
}

// Close releases the underlying file handle. Safe to call once consumers
// have observed end-of-stream.
func (d *DiskV1Channel[T]) Close() error {
	return d.file.Close()
}
