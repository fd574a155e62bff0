package finalization

import (
	"sync"
	"sync/atomic"
)

// BatchNotifier is shared by all events contributed to a single source
// batch. Its status monotonically weakens from Delivered, and sending the
// final status back to the source over the one-shot channel happens
// exactly once, on the drop of the last reference.
type BatchNotifier struct {
	status atomic.Uint32
	refs   atomic.Int32
	done   chan BatchStatus
	once   sync.Once
}

// New creates a BatchNotifier with one reference already held by the
// caller, along with the channel the source should read its outcome from.
func New() (*BatchNotifier, <-chan BatchStatus) {
	b := &BatchNotifier{
		done: make(chan BatchStatus, 1),
	}
	b.status.Store(uint32(BatchDelivered))
	b.refs.Store(1)
	return b, b.done
}

// Acquire adds a reference and returns the same notifier, used when a
// finalizer set fans out to more than one event.
func (b *BatchNotifier) Acquire() *BatchNotifier {
	b.refs.Add(1)
	return b
}

// update joins an event's projected status into this batch's status.
func (b *BatchNotifier) update(es EventStatus) {
	if es == Recorded {
		return
	}
	delta := projectToBatch(es)
	for {
		old := BatchStatus(b.status.Load())
		nw := batchJoin(old, delta)
		if nw == old {
			return
		}
		if b.status.CompareAndSwap(uint32(old), uint32(nw)) {
			return
		}
	}
}

// Status returns the current joined status without consuming a reference.
func (b *BatchNotifier) Status() BatchStatus {
	return BatchStatus(b.status.Load())
}

// Release drops one reference. On the last reference, the current status
// is sent through the one-shot channel exactly once. If nothing is ever
// listening, the buffered channel simply absorbs the value.
func (b *BatchNotifier) Release() {
	if b.refs.Add(-1) != 0 {
		return
	}
	b.once.Do(func() {
		status := BatchStatus(b.status.Load())
		select {
		case b.done <- status:
		default:
		}
		close(b.done)
	})
}
