// Package buffer implements the channel fabric (C3): bounded, typed,
// backpressure-aware conduits connecting topology components, with
// in-memory and disk-backed variants.
package buffer

import (
	"context"
	"errors"
)

// ErrClosed names the closed-channel condition. The receivers in this
// package do not return it: Recv reports a closed and fully drained
// channel as ok=false with a nil error.
var ErrClosed = errors.New("buffer: channel closed")

// WhenFull selects the behavior of Send when a channel is at capacity.
type WhenFull uint8

const (
	// Block suspends the producer until capacity frees up. This is the
	// default and the only policy that guarantees no event is ever lost.
	Block WhenFull = iota
	// DropNewest finalizes the incoming event as Dropped immediately and
	// returns without enqueueing it.
	DropNewest
)

// Sender is the producer side of an edge. Send suspends (subject to ctx)
// when the channel is at capacity and the policy is Block; under
// DropNewest it never blocks. Close signals end-of-stream: the consumer
// drains whatever is already queued and then observes ok=false from Recv.
type Sender[T any] interface {
	Send(ctx context.Context, v T) error
	Close()
}

// Receiver is the single consumer side of an edge.
type Receiver[T any] interface {
	// Recv blocks (subject to ctx) until a value is available, the
	// producer has closed and drained, or ctx is done. ok is false only
	// once the producer has closed and every queued value has been
	// delivered.
	Recv(ctx context.Context) (v T, ok bool, err error)
}

// Channel is both ends of one edge, as returned by constructors in this
// package. Callers typically hand ProducerSide() to the upstream
// component and ConsumerSide() to the downstream one.
type Channel[T any] interface {
	ProducerSide() Sender[T]
	ConsumerSide() Receiver[T]
}
