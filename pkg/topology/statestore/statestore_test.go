package statestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingComponentNotFound(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.Get("sink_a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("sink_a", "abc123"))

	hash, found, err := s.Get("sink_a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", hash)
}

func TestChangedDetectsFirstRunAndModifications(t *testing.T) {
	s := openTestStore(t)

	changed, err := s.Changed("sink_a", "hash1")
	require.NoError(t, err)
	assert.True(t, changed, "first observation of a component is always a change")

	changed, err = s.Changed("sink_a", "hash1")
	require.NoError(t, err)
	assert.False(t, changed, "same hash on the next run is not a change")

	changed, err = s.Changed("sink_a", "hash2")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestHashConfigStableAcrossMapKeyOrder(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1}
	b := map[string]any{"a": 1, "b": 2}

	hashA, err := HashConfig(a)
	require.NoError(t, err)
	hashB, err := HashConfig(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestHashConfigDiffersOnValueChange(t *testing.T) {
	hashA, err := HashConfig(map[string]any{"max_events": 100})
	require.NoError(t, err)
	hashB, err := HashConfig(map[string]any{"max_events": 200})
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestDeleteRemovesRecordedHash(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set("sink_a", "abc123"))
	require.NoError(t, s.Delete("sink_a"))

	_, found, err := s.Get("sink_a")
	require.NoError(t, err)
	assert.False(t, found)
}
