package event

import (
	"time"

	"github.com/cuemby/flowd/pkg/finalization"
	"github.com/google/uuid"
)

// NewEventID mints a correlation id for a source whose upstream
// protocol doesn't supply one of its own (e.g. a line-delimited file
// tailer has a byte offset; a stdin reader has nothing). Sources use
// this as the Ack.Token so the finalizer stream still has something to
// correlate a terminal batch status back to.
func NewEventID() string {
	return uuid.NewString()
}

// Kind discriminates the Event tagged union.
type Kind uint8

const (
	KindLog Kind = iota
	KindMetric
	KindTrace
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindMetric:
		return "metric"
	case KindTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Metadata carries everything about an event that is not its payload.
// Event.Clone copies Metadata shallowly: the clone gets its own copy of
// these fields, and its Finalizers set holds the same finalizers, each
// with one more reference.
type Metadata struct {
	Finalizers finalization.Set
	SourceID   string
	Ingested   time.Time
	Schema     any // opaque schema-definition reference, owned by the codec layer
}

// Trace is the payload of a Trace event: a bag of ordered fields, the same
// shape as a Log payload, matching how the dataplane treats spans as
// structured records rather than a dedicated schema.
type Trace = LogPayload

// Event is an immutable-after-finalization tagged union over Log, Metric,
// and Trace payloads, plus shared Metadata.
//
// Payload is copy-on-write: Clone shares the payload pointer; a mutating
// accessor (MutableLog, MutableMetric, MutableTrace) performs the
// lazy clone the first time it's called on a shared payload.
type Event struct {
	kind Kind

	log    *LogPayload
	metric *Metric
	trace  *Trace

	// shared tracks whether the payload pointer above may be aliased by
	// another Event, i.e. whether a mutator must clone before writing.
	shared *bool

	Metadata Metadata
}

// NewLog creates a Log event from an already-built payload.
func NewLog(payload *LogPayload) Event {
	return Event{kind: KindLog, log: payload, shared: new(bool)}
}

// NewMetric creates a Metric event.
func NewMetric(m Metric) Event {
	return Event{kind: KindMetric, metric: &m, shared: new(bool)}
}

// NewTrace creates a Trace event from an already-built payload.
func NewTrace(payload *Trace) Event {
	return Event{kind: KindTrace, trace: payload, shared: new(bool)}
}

// Kind reports which variant this event holds.
func (e Event) Kind() Kind { return e.kind }

// Log returns the log payload (nil if this is not a Log event). Callers
// must not mutate the result directly; use MutableLog.
func (e Event) Log() *LogPayload { return e.log }

// Metric returns the metric payload (nil if this is not a Metric event).
func (e Event) Metric() *Metric { return e.metric }

// Trace returns the trace payload (nil if this is not a Trace event).
func (e Event) Trace() *Trace { return e.trace }

// MutableLog returns a LogPayload safe to mutate in place, performing a
// lazy copy-on-write clone if the current payload is shared with another
// Event.
func (e *Event) MutableLog() *LogPayload {
	if e.kind != KindLog {
		return nil
	}
	if *e.shared {
		e.log = e.log.clone()
		e.shared = new(bool)
	}
	return e.log
}

// MutableMetric returns a Metric safe to mutate in place, cloning lazily
// if shared.
func (e *Event) MutableMetric() *Metric {
	if e.kind != KindMetric {
		return nil
	}
	if *e.shared {
		m := e.metric.clone()
		e.metric = &m
		e.shared = new(bool)
	}
	return e.metric
}

// MutableTrace mirrors MutableLog for Trace events (same representation).
func (e *Event) MutableTrace() *Trace {
	if e.kind != KindTrace {
		return nil
	}
	if *e.shared {
		e.trace = e.trace.clone()
		e.shared = new(bool)
	}
	return e.trace
}

// Clone returns an Event sharing this event's payload (copy-on-write) and
// finalizers (shared ownership: the clone contributes +1 handle per
// existing finalizer).
func (e Event) Clone() Event {
	*e.shared = true
	c := e
	c.Metadata.Finalizers = e.Metadata.Finalizers.Clone()
	return c
}

// SplitFinalizers takes the finalizer set out of this event's metadata,
// leaving it empty, and returns the removed set. Sinks call this
// immediately before encoding a batch so that all outcomes attach to the
// local batch, not to later copies of the event.
func (e *Event) SplitFinalizers() finalization.Set {
	return finalization.Take(&e.Metadata.Finalizers)
}

// EstimatedJSONSize is an O(payload) size estimate used for batch-by-bytes
// accounting. It need not be exact but is stable for identical inputs.
func (e Event) EstimatedJSONSize() int {
	switch e.kind {
	case KindLog:
		return e.log.estimatedSize()
	case KindMetric:
		if e.metric == nil {
			return 0
		}
		return e.metric.estimatedSize()
	case KindTrace:
		return e.trace.estimatedSize()
	default:
		return 0
	}
}
