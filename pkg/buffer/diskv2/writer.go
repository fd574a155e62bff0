package diskv2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// dataFileName is the on-disk naming convention for a rotated data file.
func dataFileName(dir string, id uint16) string {
	return filepath.Join(dir, fmt.Sprintf("buffer-data-%05d.dat", id))
}

// Writer appends records to the current data file, rotating to a new one
// once maxDataFileSize is reached, and applies backpressure once the
// ledger's pending-bytes watermark reaches maxBufferSize.
type Writer struct {
	dir             string
	ledger          *Ledger
	maxDataFileSize int64
	maxBufferSize   int64

	mu       sync.Mutex
	file     *os.File
	fileSize int64

	// notifyReader wakes a blocked reader after a write; notifyWriter wakes
	// a backpressured writer after the reader acknowledges a record.
	// Buffered size 1: a pending signal is enough, extra sends coalesce.
	notifyReader chan struct{}
	notifyWriter <-chan struct{}
}

// NewWriter opens (or resumes) the writer side of a disk_v2 buffer rooted
// at dir. On resume it reopens the file named by the ledger's current
// writer_file_id and truncates any partial tail frame left by a crash,
// matching the crash-recovery invariant for the writer.
func NewWriter(dir string, ledger *Ledger, maxDataFileSize, maxBufferSize int64, notifyReader chan struct{}, notifyWriter <-chan struct{}) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	w := &Writer{
		dir:             dir,
		ledger:          ledger,
		maxDataFileSize: maxDataFileSize,
		maxBufferSize:   maxBufferSize,
		notifyReader:    notifyReader,
		notifyWriter:    notifyWriter,
	}
	f, err := os.OpenFile(dataFileName(dir, ledger.WriterFileID()), os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, fmt.Errorf("diskv2: open writer data file: %w", err)
	}
	validSize, err := validateTail(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(validSize); err != nil {
		f.Close()
		return nil, err
	}
	w.file = f
	w.fileSize = validSize
	return w, nil
}

// validateTail scans every frame sequentially from the start of f and
// returns the offset just past the last frame whose header, payload, and
// crc32c are all intact. Anything after that offset is a partial write
// from a process that crashed mid-append and is discarded by the caller.
func validateTail(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	var offset int64
	headerBuf := make([]byte, frameHeaderSize)
	for offset < size {
		n, err := f.ReadAt(headerBuf, offset)
		if n < frameHeaderSize || (err != nil && n < frameHeaderSize) {
			break
		}
		hdr, err := decodeFrameHeader(headerBuf)
		if err != nil {
			break
		}
		total := hdr.totalLen()
		if offset+total > size {
			break
		}
		body := make([]byte, hdr.Length+frameTrailerSize)
		if _, err := f.ReadAt(body, offset+frameHeaderSize); err != nil {
			break
		}
		payload := body[:hdr.Length]
		trailer := body[hdr.Length:]
		if !verifyChecksum(headerBuf, payload, trailer) {
			break
		}
		offset += total
	}
	return offset, nil
}

// WriteRecord appends a record and returns its assigned id. It blocks
// (subject to ctx) while the ledger's pending-bytes watermark would
// exceed maxBufferSize, realizing the disk buffer's bounded-capacity
// guarantee.
func (w *Writer) WriteRecord(ctx context.Context, eventCount uint32, payload []byte) (uint64, error) {
	frameLen := int64(frameHeaderSize + len(payload) + frameTrailerSize)

	for w.maxBufferSize > 0 && int64(w.ledger.PendingBytes())+frameLen > w.maxBufferSize {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-w.notifyWriter:
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.maxDataFileSize > 0 && w.fileSize+frameLen > w.maxDataFileSize {
		if err := w.rollover(); err != nil {
			return 0, err
		}
	}

	recordID := w.ledger.WriterNextRecordID()
	frame := encodeFrame(recordID, eventCount, payload)
	if _, err := w.file.WriteAt(frame, w.fileSize); err != nil {
		return 0, fmt.Errorf("diskv2: write record %d: %w", recordID, err)
	}
	w.fileSize += int64(len(frame))
	w.ledger.SetWriterNextRecordID(recordID + 1)
	w.ledger.AddPendingBytes(int64(len(frame)))
	w.ledger.AddPendingRecords(1)

	select {
	case w.notifyReader <- struct{}{}:
	default:
	}
	return recordID, nil
}

// rollover closes the current file and opens the next one in sequence.
// If the next file already exists (an earlier crash rotated but never
// finished writing to it) it is truncated and reused rather than treated
// as an error.
func (w *Writer) rollover() error {
	nextID := w.ledger.WriterFileID() + 1
	path := dataFileName(w.dir, nextID)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o640)
		}
		if err != nil {
			return fmt.Errorf("diskv2: rollover to %s: %w", path, err)
		}
	}

	// WriteRecord already holds w.mu, so sync here rather than through
	// Flush, which takes the lock itself.
	if err := w.file.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("diskv2: fsync data file: %w", err)
	}
	if err := w.ledger.Flush(); err != nil {
		f.Close()
		return err
	}
	old := w.file
	w.file = f
	w.fileSize = 0
	w.ledger.SetWriterFileID(nextID)
	return old.Close()
}

// Flush fsyncs the current data file then the ledger, in that order: a
// crash between the two leaves the ledger possibly unaware of bytes that
// are nonetheless safely on disk, which validateTail/the reader's own
// scan tolerate; the reverse order could claim durability the data file
// doesn't have.
func (w *Writer) Flush() error {
	w.mu.Lock()
	f := w.file
	w.mu.Unlock()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("diskv2: fsync data file: %w", err)
	}
	return w.ledger.Flush()
}

// Close flushes and closes the writer's current data file, and marks the
// ledger done so a reader that catches up observes end-of-stream instead
// of waiting for a writer that will never resume.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.ledger.SetWriterDone(true)
	if err := w.ledger.Flush(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
