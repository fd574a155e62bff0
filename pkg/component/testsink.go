package component

import (
	"context"
	"sync"

	"github.com/cuemby/flowd/pkg/event"
	"github.com/cuemby/flowd/pkg/finalization"
)

// CaptureSink is a Sink that appends every array it receives to an
// in-memory slice, for use in topology-level tests (scenario S1 and
// friends) that need to observe exactly what reached the end of the
// pipeline.
type CaptureSink struct {
	mu    sync.Mutex
	input PayloadType
	got   []event.Array
}

// NewCaptureSink creates a capture sink accepting the given input type.
func NewCaptureSink(input PayloadType) *CaptureSink {
	return &CaptureSink{input: input}
}

func (s *CaptureSink) InputType() PayloadType { return s.input }

func (s *CaptureSink) Run(ctx context.Context, in <-chan event.Array) error {
	for {
		select {
		case arr, ok := <-in:
			if !ok {
				return nil
			}
			finalizers := arr.SplitFinalizers()
			finalizers.UpdateStatus(finalization.Delivered)
			finalizers.ReleaseAll()

			s.mu.Lock()
			s.got = append(s.got, arr)
			s.mu.Unlock()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Captured returns every array received so far.
func (s *CaptureSink) Captured() []event.Array {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Array, len(s.got))
	copy(out, s.got)
	return out
}
