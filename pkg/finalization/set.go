package finalization

// Set is the finalizer handle set carried by an event's metadata. Cloning
// an event clones the Set (each finalizer gains one more handle); merging
// two events unions the sets (multiset union).
type Set struct {
	finalizers []*EventFinalizer
}

// Empty returns a Set carrying no finalizers, for events with
// acknowledgements disabled.
func Empty() Set { return Set{} }

// NewSingle wraps one freshly created finalizer (already holding one
// reference) in a Set, the common case of a source emitting one event per
// finalizer.
func NewSingle(batch *BatchNotifier) Set {
	return Set{finalizers: []*EventFinalizer{NewEventFinalizer(batch)}}
}

// Len reports how many finalizer handles the set holds.
func (s Set) Len() int { return len(s.finalizers) }

// Clone returns a Set sharing the same finalizers, each with one more
// reference acquired — the event-clone case: metadata is always shared,
// and every clone contributes to the same delivery outcome.
func (s Set) Clone() Set {
	if len(s.finalizers) == 0 {
		return Set{}
	}
	out := make([]*EventFinalizer, len(s.finalizers))
	for i, f := range s.finalizers {
		out[i] = f.Acquire()
	}
	return Set{finalizers: out}
}

// Take removes the finalizer set from the receiver, returning it, and
// leaves the receiver empty. Used by sinks immediately before encoding a
// batch so that all outcomes attach to the local batch's finalizer set,
// not to later copies of the event.
func Take(s *Set) Set {
	out := *s
	*s = Set{}
	return out
}

// Merge combines two finalizer sets into one multiset union, as happens
// when an aggregating transform combines events. It consumes both inputs'
// handles (no extra Acquire is performed); the result owns exactly the
// union of handles the inputs owned.
func Merge(a, b Set) Set {
	if len(a.finalizers) == 0 {
		return b
	}
	if len(b.finalizers) == 0 {
		return a
	}
	out := make([]*EventFinalizer, 0, len(a.finalizers)+len(b.finalizers))
	out = append(out, a.finalizers...)
	out = append(out, b.finalizers...)
	return Set{finalizers: out}
}

// UpdateStatus joins the given status into every finalizer in the set,
// without releasing any reference. Sinks call this as events in a batch
// succeed or fail individually before the batch-level Release.
func (s Set) UpdateStatus(status EventStatus) {
	for _, f := range s.finalizers {
		f.UpdateStatus(status)
	}
}

// ReleaseAll drops one reference from every finalizer in the set. Called
// once a batch has reached a terminal outcome and will never be retried,
// or when an event is dropped without being forwarded (the Dropped
// outcome, since a finalizer's default status is Dropped).
func (s Set) ReleaseAll() {
	for _, f := range s.finalizers {
		f.Release()
	}
}
