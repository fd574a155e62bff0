package finalization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedStreamPreservesSubmissionOrder(t *testing.T) {
	s := NewOrdered[int](4)

	n1, d1 := New()
	n2, d2 := New()
	n3, d3 := New()
	s.Submit(1, d1)
	s.Submit(2, d2)
	s.Submit(3, d3)

	// Complete out of order: 3, then 1, then 2.
	n3.Release()
	time.Sleep(10 * time.Millisecond)
	n1.Release()
	n2.Release()
	s.Close()

	var got []int
	for o := range s.Out() {
		got = append(got, o.Value)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestOrderedStreamEndOfStreamAfterDrain(t *testing.T) {
	s := NewOrdered[string](1)
	n, d := New()
	s.Submit("a", d)
	n.Release()

	out, ok := <-s.Out()
	require.True(t, ok)
	assert.Equal(t, "a", out.Value)

	s.Close()
	_, ok = <-s.Out()
	assert.False(t, ok)
}

func TestUnorderedStreamCompletionOrder(t *testing.T) {
	s := NewUnordered[int](4)
	n1, d1 := New()
	n2, d2 := New()
	s.Submit(1, d1)
	s.Submit(2, d2)

	// 2 completes first; unordered stream must surface it first.
	n2.Release()
	first := <-s.Out()
	assert.Equal(t, 2, first.Value)

	n1.Release()
	second := <-s.Out()
	assert.Equal(t, 1, second.Value)

	s.Close()
	_, ok := <-s.Out()
	assert.False(t, ok)
}
