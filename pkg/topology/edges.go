package topology

import (
	"context"

	"github.com/cuemby/flowd/pkg/buffer"
	"github.com/cuemby/flowd/pkg/event"
)

// fanoutSender broadcasts one upstream event to N downstream senders,
// cloning for every consumer but the last so each gets its own
// copy-on-write handle and its own +1 share of the finalizer set — the
// channel fabric itself is single-consumer, so an output
// consumed by more than one input is realized as N independent edges
// fed by one fanoutSender instead of true multicast.
type fanoutSender struct {
	targets []buffer.Sender[event.Event]
}

func (f fanoutSender) Send(ctx context.Context, e event.Event) error {
	for i, t := range f.targets {
		v := e
		if i < len(f.targets)-1 {
			v = e.Clone()
		}
		if err := t.Send(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (f fanoutSender) Close() {
	for _, t := range f.targets {
		t.Close()
	}
}

// edgeSink adapts a buffer.Sender[event.Event] to component.EventSink.
type edgeSink struct {
	s buffer.Sender[event.Event]
}

func (e edgeSink) Send(ctx context.Context, ev event.Event) error { return e.s.Send(ctx, ev) }
