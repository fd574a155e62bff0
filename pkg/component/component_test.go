package component

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/flowd/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadTypeAccepts(t *testing.T) {
	assert.True(t, PayloadLog.Accepts(PayloadAny))
	assert.True(t, PayloadLog.Accepts(PayloadLog))
	assert.False(t, PayloadLog.Accepts(PayloadMetric))
}

func TestShutdownSignalFireIsIdempotent(t *testing.T) {
	sig, fire := NewShutdownSignal()
	fire()
	fire() // must not panic or double-close

	select {
	case <-sig:
	case <-time.After(time.Second):
		t.Fatal("signal should already be closed")
	}
}

func TestIdentityTransformPassesEventThrough(t *testing.T) {
	id := NewIdentity(PayloadLog)
	payload := event.NewLogPayload()
	payload.Set("message", event.Str("hello"))
	in := event.NewLog(payload)

	out := id.Transform(in)
	require.Len(t, out, 1)
	v, ok := out[0].Log().Get("message")
	require.True(t, ok)
	assert.Equal(t, "hello", v.String())
}

func TestCaptureSinkCollectsArraysInArrivalOrder(t *testing.T) {
	sink := NewCaptureSink(PayloadLog)
	in := make(chan event.Array, 2)

	a := mustArray(t, "a")
	b := mustArray(t, "b")
	in <- a
	in <- b
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sink.Run(ctx, in))

	got := sink.Captured()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Len())
	assert.Equal(t, 1, got[1].Len())
}

func mustArray(t *testing.T, msg string) event.Array {
	t.Helper()
	payload := event.NewLogPayload()
	payload.Set("message", event.Str(msg))
	arr, err := event.NewArray(event.NewLog(payload))
	require.NoError(t, err)
	return arr
}
