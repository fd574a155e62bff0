package finalization

import "sync/atomic"

// EventFinalizer is a reference-counted handle tracking one event's
// delivery outcome across every clone of that event, fanning the final
// joined status out to every BatchNotifier the event's batches hold.
//
// Go has no destructors, so "drop of the last reference" is realized
// explicitly: every clone of an event must call
// Acquire, and every place an event is consumed, dropped, or replaced must
// call Release exactly once per handle it held.
type EventFinalizer struct {
	status    atomic.Uint32
	refs      atomic.Int32
	notifiers []*BatchNotifier
}

// NewEventFinalizer creates a finalizer for a new event in the given
// batch, with one reference already held by the caller. The finalizer
// acquires its own reference on batch; the caller still owns, and must
// Release, the notifier reference it already held. A panic inside a
// caller's update path never reaches here; UpdateStatus and Release never
// panic themselves, so a defer/recover at the call site (see pkg/driver)
// is sufficient to degrade any surrounding logic failure to Errored
// without losing the finalizer's own bookkeeping.
func NewEventFinalizer(batch *BatchNotifier) *EventFinalizer {
	f := &EventFinalizer{
		notifiers: []*BatchNotifier{batch.Acquire()},
	}
	f.status.Store(uint32(Dropped))
	f.refs.Store(1)
	return f
}

// newMerged builds a finalizer that carries the given batch notifiers,
// whose references the caller has already acquired. Set.Merge does not
// use it: it concatenates the two sets' finalizer handles instead.
func newMerged(notifiers []*BatchNotifier) *EventFinalizer {
	f := &EventFinalizer{notifiers: notifiers}
	f.status.Store(uint32(Dropped))
	f.refs.Store(1)
	return f
}

// Acquire adds a reference, as happens whenever an event carrying this
// finalizer is cloned.
func (f *EventFinalizer) Acquire() *EventFinalizer {
	f.refs.Add(1)
	return f
}

// UpdateStatus joins the given status into the finalizer's current status.
// It is idempotent under lattice-join and a no-op once the finalizer has
// reached Recorded.
func (f *EventFinalizer) UpdateStatus(s EventStatus) {
	for {
		old := EventStatus(f.status.Load())
		if old == Recorded {
			return
		}
		nw := join(old, s)
		if nw == old {
			return
		}
		if f.status.CompareAndSwap(uint32(old), uint32(nw)) {
			return
		}
	}
}

// Status returns the current status without releasing a reference.
func (f *EventFinalizer) Status() EventStatus {
	return EventStatus(f.status.Load())
}

// Release drops one reference. On the last reference, if the status has
// not already reached Recorded, every associated BatchNotifier is updated
// with the finalizer's final status and the finalizer transitions to
// Recorded.
func (f *EventFinalizer) Release() {
	if f.refs.Add(-1) != 0 {
		return
	}
	final := EventStatus(f.status.Swap(uint32(Recorded)))
	if final == Recorded {
		return
	}
	for _, n := range f.notifiers {
		n.update(final)
		n.Release()
	}
}
