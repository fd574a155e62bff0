package api

import (
	"context"
	"testing"

	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestGetStatusReportsComponentStates(t *testing.T) {
	s := NewServer(readyTopology())

	status, err := s.GetStatus(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	components := status.Fields["components"].GetStructValue().AsMap()
	assert.Equal(t, "running", components["source_in"])
	assert.Equal(t, "running", components["sink_out"])
	assert.Greater(t, status.Fields["uptime_secs"].GetNumberValue(), -0.001)
}

func TestGetComponentStatsReportsBufferDepths(t *testing.T) {
	topo := &fakeTopology{
		stats: []metrics.ComponentStats{
			{ComponentID: "sink_out", BufferVariant: "memory", PendingEvents: 42, PendingBytes: 1024},
		},
	}
	s := NewServer(topo)

	stats, err := s.GetComponentStats(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	list := stats.Fields["components"].GetListValue().AsSlice()
	require.Len(t, list, 1)
	entry := list[0].(map[string]interface{})
	assert.Equal(t, "sink_out", entry["component_id"])
	assert.Equal(t, float64(42), entry["pending_events"])
}
