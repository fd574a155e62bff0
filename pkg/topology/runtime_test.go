package topology

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/flowd/pkg/component"
	"github.com/cuemby/flowd/pkg/event"
	"github.com/stretchr/testify/require"
)

// countingSource emits n log events then returns nil, simulating a
// finite source (e.g. reading a file to EOF).
type countingSource struct {
	n int
}

func (s *countingSource) Outputs() []component.Output {
	return []component.Output{{Name: "default", Type: component.PayloadLog}}
}

func (s *countingSource) Run(ctx context.Context, out component.EventSink, shutdown component.ShutdownSignal, acks component.AckStream) error {
	for i := 0; i < s.n; i++ {
		payload := event.NewLogPayload()
		payload.Set("message", event.Str("hello"))
		if err := out.Send(ctx, event.NewLog(payload)); err != nil {
			return err
		}
	}
	return nil
}

type sourceFactory struct{ n int }

func (f sourceFactory) Outputs(map[string]any) []component.Output {
	return []component.Output{{Name: "default", Type: component.PayloadLog}}
}
func (f sourceFactory) Build(component.Key, map[string]any) (component.Source, error) {
	return &countingSource{n: f.n}, nil
}

type identityFactory struct{}

func (identityFactory) InputType(map[string]any) component.PayloadType { return component.PayloadLog }
func (identityFactory) Outputs(map[string]any) []component.Output {
	return []component.Output{{Name: "default", Type: component.PayloadLog}}
}
func (identityFactory) Build(id component.Key, params map[string]any) (any, error) {
	return component.NewIdentity(component.PayloadLog), nil
}

type captureFactory struct{ sink *component.CaptureSink }

func (f *captureFactory) InputType(map[string]any) component.PayloadType { return component.PayloadLog }
func (f *captureFactory) Build(component.Key, map[string]any) (component.Sink, error) {
	f.sink = component.NewCaptureSink(component.PayloadLog)
	return f.sink, nil
}

func TestRuntimeRunsSourceTransformSinkAndDrainsOnSourceEOF(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource("counting", sourceFactory{n: 20})
	reg.RegisterTransform("identity", identityFactory{})
	cf := &captureFactory{}
	reg.RegisterSink("capture", cf)

	cfg := Config{
		Sources: map[string]SourceConfig{
			"in": {Type: "counting"},
		},
		Transforms: map[string]TransformConfig{
			"mid": {Type: "identity", Inputs: []string{"in"}},
		},
		Sinks: map[string]SinkConfig{
			"out": {Type: "capture", Inputs: []string{"mid"}, Batch: BatchConfig{MaxEvents: 5, TimeoutSec: 0.05}},
		},
		GracefulShutdownSecs: 2,
	}

	rt, err := Build(context.Background(), cfg, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = rt.Run(ctx)
	require.NoError(t, err)

	total := 0
	for _, arr := range cf.sink.Captured() {
		total += arr.Len()
	}
	require.Equal(t, 20, total)
}

func TestRuntimeFanoutClonesToEveryConsumer(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource("counting", sourceFactory{n: 3})
	capA := &captureFactory{}
	capB := &captureFactory{}
	reg.RegisterSink("capture-a", capA)
	reg.RegisterSink("capture-b", capB)

	cfg := Config{
		Sources: map[string]SourceConfig{"in": {Type: "counting"}},
		Sinks: map[string]SinkConfig{
			"a": {Type: "capture-a", Inputs: []string{"in"}, Batch: BatchConfig{MaxEvents: 1, TimeoutSec: 0.05}},
			"b": {Type: "capture-b", Inputs: []string{"in"}, Batch: BatchConfig{MaxEvents: 1, TimeoutSec: 0.05}},
		},
		GracefulShutdownSecs: 2,
	}

	rt, err := Build(context.Background(), cfg, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Run(ctx))

	countA, countB := 0, 0
	for _, arr := range capA.sink.Captured() {
		countA += arr.Len()
	}
	for _, arr := range capB.sink.Captured() {
		countB += arr.Len()
	}
	require.Equal(t, 3, countA)
	require.Equal(t, 3, countB)
}

func TestRuntimeShutdownFiresSignalAndDrains(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource("counting", sourceFactory{n: 1})
	cf := &captureFactory{}
	reg.RegisterSink("capture", cf)

	cfg := Config{
		Sources:              map[string]SourceConfig{"in": {Type: "counting"}},
		Sinks:                map[string]SinkConfig{"out": {Type: "capture", Inputs: []string{"in"}}},
		GracefulShutdownSecs: 1,
	}

	rt, err := Build(context.Background(), cfg, reg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = rt.Run(context.Background())
	}()

	require.NoError(t, rt.Shutdown(context.Background()))
	wg.Wait()
	require.NoError(t, runErr)
}
