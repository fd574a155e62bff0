package event

import (
	"fmt"

	"github.com/cuemby/flowd/pkg/finalization"
)

// Array is a homogeneous batch of up to N events of the same Kind, the
// unit the channel fabric (C3) and the sink driver (C7) move instead of
// individual events once a source or transform groups them.
type Array struct {
	kind   Kind
	events []Event
}

// NewArray builds an Array from events that must share one Kind.
func NewArray(events ...Event) (Array, error) {
	if len(events) == 0 {
		return Array{}, nil
	}
	k := events[0].Kind()
	for _, e := range events[1:] {
		if e.Kind() != k {
			return Array{}, fmt.Errorf("event array must be homogeneous: got %s and %s", k, e.Kind())
		}
	}
	return Array{kind: k, events: events}, nil
}

// Kind reports the homogeneous kind of this array's events.
func (a Array) Kind() Kind { return a.kind }

// Len returns the number of events in the array.
func (a Array) Len() int { return len(a.events) }

// Events returns the underlying slice. Callers must not retain it across
// a Split/Append that could reallocate.
func (a Array) Events() []Event { return a.events }

// Append adds an event to the array; the caller is responsible for
// ensuring kind homogeneity.
func (a *Array) Append(e Event) {
	if len(a.events) == 0 {
		a.kind = e.Kind()
	}
	a.events = append(a.events, e)
}

// EstimatedJSONSize sums the per-event estimates, the figure batch-by-
// bytes thresholds (C7) and disk-buffer back-pressure accounting (C4)
// both key off.
func (a Array) EstimatedJSONSize() int {
	n := 0
	for _, e := range a.events {
		n += e.EstimatedJSONSize()
	}
	return n
}

// SplitFinalizers removes and unions the finalizer sets of every event in
// the array, the batch-level equivalent of Event.SplitFinalizers, for
// sinks that receive event.Array batches (component.CaptureSink calls it).
func (a *Array) SplitFinalizers() finalization.Set {
	out := finalization.Empty()
	for i := range a.events {
		out = finalization.Merge(out, a.events[i].SplitFinalizers())
	}
	return out
}
