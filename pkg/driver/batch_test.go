package driver

import (
	"testing"
	"time"

	"github.com/cuemby/flowd/pkg/event"
	"github.com/stretchr/testify/require"
)

func logEvent(t *testing.T, msg string) event.Event {
	t.Helper()
	p := event.NewLogPayload()
	p.Set("message", event.Str(msg))
	return event.NewLog(p)
}

func TestBatcherFlushesOnMaxEvents(t *testing.T) {
	b := newBatcher("p", BatchConfig{MaxEvents: 2})

	_, ready := b.add(logEvent(t, "one"))
	require.False(t, ready)

	batch, ready := b.add(logEvent(t, "two"))
	require.True(t, ready)
	require.Len(t, batch.Events, 2)
}

func TestBatcherFlushesOnMaxBytes(t *testing.T) {
	b := newBatcher("p", BatchConfig{MaxEvents: 1000, MaxBytes: 1})

	batch, ready := b.add(logEvent(t, "this is not an empty payload"))
	require.True(t, ready)
	require.Len(t, batch.Events, 1)
}

func TestBatcherExpiresOnMaxAge(t *testing.T) {
	b := newBatcher("p", BatchConfig{MaxEvents: 1000, MaxAge: 10 * time.Millisecond})

	_, ready := b.add(logEvent(t, "one"))
	require.False(t, ready)

	_, ready = b.expire(time.Now())
	require.False(t, ready, "should not expire before MaxAge elapses")

	batch, ready := b.expire(time.Now().Add(20 * time.Millisecond))
	require.True(t, ready)
	require.Len(t, batch.Events, 1)
}

func TestBatcherFlushReturnsWhateverIsAccumulated(t *testing.T) {
	b := newBatcher("p", BatchConfig{MaxEvents: 1000})
	_, ready := b.flush()
	require.False(t, ready, "nothing accumulated yet")

	b.add(logEvent(t, "partial"))
	batch, ready := b.flush()
	require.True(t, ready)
	require.Len(t, batch.Events, 1)
}
