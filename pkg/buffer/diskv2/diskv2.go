package diskv2

import (
	"context"
	"fmt"
)

// Codec converts a value to and from the bytes stored as one record's
// payload. The buffer never inspects the payload itself; event_count is
// tracked separately so a reader can account for batch size without
// decoding.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
	// Count returns how many events v represents, stored in the frame
	// header for observability (pending_events accounting) without a
	// decode.
	Count(T) uint32
}

// ErrClosed names the finished-and-drained condition. Recv does not
// return it: once the writer has finished and every queued record has
// been delivered, Recv reports ok=false with a nil error.
var ErrClosed = fmt.Errorf("diskv2: channel closed")

// Channel is a disk_v2-backed buffer: durable, bounded by
// max_size.bytes (via the writer's backpressure loop), surviving process
// restarts by replaying the ledger and data files left on disk. The
// number of data files is not capped separately.
type Channel[T any] struct {
	codec  Codec[T]
	ledger *Ledger
	writer *Writer
	reader *Reader
}

// Options configures a disk_v2 buffer instance.
type Options struct {
	Dir             string
	MaxDataFileSize int64
	MaxBufferSize   int64
}

// Open creates or resumes a disk_v2 buffer rooted at opts.Dir. Resuming
// an existing directory replays the ledger's cursors and validates the
// writer's tail file for crash-recovery.
func Open[T any](opts Options, codec Codec[T]) (*Channel[T], error) {
	ledger, err := OpenLedger(fmt.Sprintf("%s/ledger.db", opts.Dir))
	if err != nil {
		return nil, err
	}

	notifyReader := make(chan struct{}, 1)
	notifyWriter := make(chan struct{}, 1)

	w, err := NewWriter(opts.Dir, ledger, opts.MaxDataFileSize, opts.MaxBufferSize, notifyReader, notifyWriter)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	r, err := NewReader(opts.Dir, ledger, notifyReader, notifyWriter)
	if err != nil {
		w.Close()
		ledger.Close()
		return nil, err
	}

	return &Channel[T]{codec: codec, ledger: ledger, writer: w, reader: r}, nil
}

// Send appends v as a new record, blocking under backpressure exactly as
// Writer.WriteRecord does.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	payload, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("diskv2: encode: %w", err)
	}
	_, err = c.writer.WriteRecord(ctx, c.codec.Count(v), payload)
	return err
}

// Flush fsyncs pending writes; callers that need durability acknowledged
// to an upstream component (e.g. before acking a source's own inbound
// batch) call this after Send.
func (c *Channel[T]) Flush() error { return c.writer.Flush() }

// Recv returns the next record's decoded value. The returned ack func
// must be called once the value has been durably handed off downstream;
// until it is, a crash replays the same record again.
func (c *Channel[T]) Recv(ctx context.Context) (v T, ack func(), ok bool, err error) {
	rec, ok, err := c.reader.Next(ctx)
	if err != nil || !ok {
		var zero T
		return zero, nil, ok, err
	}
	val, err := c.codec.Decode(rec.Payload)
	if err != nil {
		var zero T
		return zero, nil, false, fmt.Errorf("diskv2: decode record %d: %w", rec.ID, err)
	}
	id := rec.ID
	return val, func() { c.reader.Ack(id) }, true, nil
}

// PendingBytes reports the ledger's current pending-bytes watermark, for
// the topology's buffer-depth metrics.
func (c *Channel[T]) PendingBytes() uint64 { return c.ledger.PendingBytes() }

// PendingRecords reports the ledger's current pending-records watermark.
func (c *Channel[T]) PendingRecords() uint64 { return c.ledger.PendingRecords() }

// CloseWriter signals end-of-stream: the reader drains whatever remains
// on disk and then observes ErrClosed-equivalent (ok=false) from Recv.
func (c *Channel[T]) CloseWriter() error { return c.writer.Close() }

// Close releases the reader's and ledger's file handles. Call after the
// writer side has been closed and fully drained.
func (c *Channel[T]) Close() error {
	if err := c.reader.Close(); err != nil {
		return err
	}
	return c.ledger.Close()
}
