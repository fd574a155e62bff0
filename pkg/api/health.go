package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/flowd/pkg/metrics"
)

// HealthServer serves the plain-HTTP liveness/readiness endpoints and
// mounts the Prometheus handler, separate from the gRPC introspection
// service so a minimal deployment can run it without standing up gRPC
// at all.
type HealthServer struct {
	topo Topology
	mux  *http.ServeMux
}

// NewHealthServer creates a health check HTTP server reporting on topo.
func NewHealthServer(topo Topology) *HealthServer {
	hs := &HealthServer{topo: topo, mux: http.NewServeMux()}
	hs.mux.HandleFunc("/health", hs.healthHandler)
	hs.mux.HandleFunc("/ready", hs.readyHandler)
	hs.mux.Handle("/metrics", metrics.Handler())
	return hs
}

// Start starts the health check HTTP server. Blocks until the server
// stops or errors.
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// HealthResponse is the /health liveness response: the process is up.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse is the /ready readiness response: every component has
// reached the running state.
type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	states := hs.topo.ComponentStates()
	ready := true
	for _, state := range states {
		if state != "running" {
			ready = false
			break
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ReadyResponse{Status: status, Timestamp: time.Now(), Components: states})
}

// GetHandler returns the HTTP handler for embedding in another server.
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}
