package buffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryChannelFIFO is scenario S1's transport-level building block: a
// producer sending "a", "b", "c" must be observed by the consumer in that
// order.
func TestMemoryChannelFIFO(t *testing.T) {
	ch := NewMemory[string](4, nil)
	ctx := context.Background()

	producer := ch.ProducerSide()
	require.NoError(t, producer.Send(ctx, "a"))
	require.NoError(t, producer.Send(ctx, "b"))
	require.NoError(t, producer.Send(ctx, "c"))
	producer.Close()

	consumer := ch.ConsumerSide()
	var got []string
	for {
		v, ok, err := consumer.Recv(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

// TestMemoryChannelBackpressure is scenario S6 in miniature: capacity 4,
// consumer doesn't receive; four sends succeed, the 5th send must
// suspend, and receiving one item must unblock that pending send.
func TestMemoryChannelBackpressure(t *testing.T) {
	ch := NewMemory[int](4, nil)
	ctx := context.Background()
	producer := ch.ProducerSide()

	for i := 0; i < 4; i++ {
		require.NoError(t, producer.Send(ctx, i))
	}

	sendReturned := make(chan struct{})
	go func() {
		_ = producer.Send(ctx, 4)
		close(sendReturned)
	}()

	select {
	case <-sendReturned:
		t.Fatal("5th send must suspend while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	consumer := ch.ConsumerSide()
	v, ok, err := consumer.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	select {
	case <-sendReturned:
	case <-time.After(time.Second):
		t.Fatal("consuming one item must unblock the pending send")
	}
}

func TestMemoryChannelDropNewestFinalizesImmediately(t *testing.T) {
	var mu sync.Mutex
	var dropped []int
	ch := NewMemory[int](1, func(v int) {
		mu.Lock()
		dropped = append(dropped, v)
		mu.Unlock()
	})
	ctx := context.Background()
	producer := ch.ProducerSide()

	require.NoError(t, producer.Send(ctx, 1))
	require.NoError(t, producer.Send(ctx, 2)) // buffer full, dropped

	mu.Lock()
	assert.Equal(t, []int{2}, dropped)
	mu.Unlock()
}

func TestMemoryChannelCloseSignalsEndOfStreamOnce(t *testing.T) {
	ch := NewMemory[int](2, nil)
	ctx := context.Background()
	producer := ch.ProducerSide()
	require.NoError(t, producer.Send(ctx, 1))
	producer.Close()

	consumer := ch.ConsumerSide()
	v, ok, err := consumer.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok, err = consumer.Recv(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = consumer.Recv(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
