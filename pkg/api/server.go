package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cuemby/flowd/pkg/log"
	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Topology is the read-only view of a running dataplane the
// introspection service reports on. pkg/topology.Runtime implements it
// alongside metrics.StatSource.
type Topology interface {
	metrics.StatSource
	ComponentStates() map[string]string
}

// Server implements the introspection gRPC service: topology shape,
// component state, and buffer-depth stats, narrowed to what an
// operator's CLI or dashboard needs to inspect a running instance.
// There is no write surface — reconfiguration happens by editing the
// config file and sending SIGHUP, not through this API.
type Server struct {
	topo      Topology
	startedAt time.Time
	grpc      *grpc.Server
	logger    zerolog.Logger
}

// NewServer builds a Server reporting on topo.
func NewServer(topo Topology) *Server {
	s := &Server{
		topo:      topo,
		startedAt: time.Now(),
		logger:    log.WithComponent("api"),
	}
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(s.logger)))
	s.grpc.RegisterService(&introspectionServiceDesc, s)
	return s
}

// Start listens on addr and serves until the listener fails or Stop is
// called. Intended to run in its own goroutine, joined by the
// topology's shutdown sequence.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %q: %w", addr, err)
	}
	s.logger.Info().Str("address", addr).Msg("introspection api listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server, waiting for in-flight RPCs.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// GetStatus reports process uptime and per-component state.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	states := make(map[string]any, len(s.topo.ComponentStates()))
	for id, state := range s.topo.ComponentStates() {
		states[id] = state
	}
	return structpb.NewStruct(map[string]any{
		"started_at": timestamppb.New(s.startedAt).AsTime().Format(time.RFC3339),
		"uptime_secs": time.Since(s.startedAt).Seconds(),
		"components":  states,
	})
}

// GetComponentStats reports each edge's buffer-depth snapshot.
func (s *Server) GetComponentStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.topo.ComponentStats()
	list := make([]any, 0, len(stats))
	for _, st := range stats {
		list = append(list, map[string]any{
			"component_id":   st.ComponentID,
			"buffer_variant": st.BufferVariant,
			"pending_bytes":  float64(st.PendingBytes),
			"pending_events": float64(st.PendingEvents),
		})
	}
	return structpb.NewStruct(map[string]any{"components": list})
}
