// Package component defines the three capability contracts every pipeline
// node implements (C5): Source, Transform, Sink. The topology scheduler
// (pkg/topology) builds instances of these from config and wires channel
// fabric (pkg/buffer) between them.
package component

import (
	"context"

	"github.com/cuemby/flowd/pkg/event"
	"github.com/cuemby/flowd/pkg/finalization"
)

// Key identifies one component instance, unique within a running config.
type Key string

// PayloadType is the declared event kind an input accepts or an output
// produces. Any matches every event kind.
type PayloadType uint8

const (
	PayloadLog PayloadType = iota
	PayloadMetric
	PayloadTrace
	PayloadAny
)

func (t PayloadType) String() string {
	switch t {
	case PayloadLog:
		return "log"
	case PayloadMetric:
		return "metric"
	case PayloadTrace:
		return "trace"
	case PayloadAny:
		return "any"
	default:
		return "unknown"
	}
}

// Accepts reports whether a producer declaring PayloadType t satisfies a
// consumer that declared want.
func (t PayloadType) Accepts(want PayloadType) bool {
	return want == PayloadAny || t == want
}

// Output describes one named output a component exposes, for topology
// wiring and config validation.
type Output struct {
	Name string
	Type PayloadType
}

// ShutdownSignal is broadcast to every source when the topology begins a
// graceful shutdown. Sources observing it stop emitting new events but
// may finish an in-flight read.
type ShutdownSignal <-chan struct{}

// NewShutdownSignal returns a signal and the func that fires it. Firing
// is idempotent: callers may fire() more than once safely.
func NewShutdownSignal() (ShutdownSignal, func()) {
	ch := make(chan struct{})
	var fired bool
	return ch, func() {
		if fired {
			return
		}
		fired = true
		close(ch)
	}
}

// EventSink is the destination a Source writes events into: the
// producer side of whatever channel variant the topology wired for this
// component's output edge.
type EventSink interface {
	Send(ctx context.Context, e event.Event) error
}

// Ack pairs a source-defined correlation token (e.g. a file offset, a
// Kafka partition/offset pair) with the terminal batch status the
// finalizer stream resolved it to.
type Ack struct {
	Token  any
	Status finalization.BatchStatus
}

// AckStream delivers Acks to a Source in the order its ordered/unordered
// finalizer stream (pkg/finalization) produces them.
type AckStream <-chan Ack

// Source produces events until ShutdownSignal fires or it decides it has
// no more to produce. When acknowledgements are configured, events it
// emits must carry a finalizer sharing ackStream's batch notifier; the
// source acknowledges its own upstream protocol only on
// finalization.BatchDelivered.
type Source interface {
	Run(ctx context.Context, out EventSink, shutdown ShutdownSignal, ackStream AckStream) error
	Outputs() []Output
}

// FunctionTransform is the stateless-per-event transform variant: safe
// to run concurrently across workers since it holds no state across
// calls. Returning zero events with the input's finalizer set intact is
// the Dropped outcome; returning more than the input
// (fan-out) or events with different finalizers (merge) is also valid —
// the caller is responsible for finalizer accounting either way.
type FunctionTransform interface {
	Transform(e event.Event) []event.Event
	InputType() PayloadType
	Outputs() []Output
}

// TaskTransform is the stateful transform variant: it owns an input
// stream and produces an output stream, holding state across events
// (aggregation, throttling, dedupe).
type TaskTransform interface {
	Run(ctx context.Context, in <-chan event.Event, out EventSink) error
	InputType() PayloadType
	Outputs() []Output
}

// Sink consumes batches until its input closes, calling SplitFinalizers
// on each batch before any network I/O and updating status to
// Delivered/Rejected/Errored according to the outcome.
type Sink interface {
	Run(ctx context.Context, in <-chan event.Array) error
	InputType() PayloadType
}

// Healthchecker is implemented by sinks (and any component) that expose
// an independent healthcheck, invoked at build time and optionally on a
// period.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}
