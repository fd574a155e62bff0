package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/stretchr/testify/assert"
)

// fakeTopology is a minimal Topology double for exercising the HTTP and
// gRPC introspection handlers without a real running graph.
type fakeTopology struct {
	states map[string]string
	stats  []metrics.ComponentStats
}

func (f *fakeTopology) ComponentStates() map[string]string      { return f.states }
func (f *fakeTopology) ComponentStats() []metrics.ComponentStats { return f.stats }

func notReadyTopology() *fakeTopology {
	return &fakeTopology{states: map[string]string{"sink_out": "starting"}}
}

func readyTopology() *fakeTopology {
	return &fakeTopology{states: map[string]string{"source_in": "running", "sink_out": "running"}}
}

func TestHealthHandler(t *testing.T) {
	hs := NewHealthServer(notReadyTopology())

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request succeeds", http.MethodGet, http.StatusOK},
		{"POST request fails", http.MethodPost, http.StatusMethodNotAllowed},
		{"PUT request fails", http.MethodPut, http.StatusMethodNotAllowed},
		{"DELETE request fails", http.MethodDelete, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			hs.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var response HealthResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				assert.NoError(t, err)
				assert.Equal(t, "healthy", response.Status)
				assert.False(t, response.Timestamp.IsZero())
			}
		})
	}
}

func TestReadyHandlerNotAllComponentsRunning(t *testing.T) {
	hs := NewHealthServer(notReadyTopology())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response ReadyResponse
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "starting", response.Components["sink_out"])
}

func TestReadyHandlerAllComponentsRunning(t *testing.T) {
	hs := NewHealthServer(readyTopology())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response ReadyResponse
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
}

func TestReadyHandlerMethodValidation(t *testing.T) {
	hs := NewHealthServer(readyTopology())

	tests := []struct {
		method         string
		expectedStatus int
	}{
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodPut, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/ready", nil)
		w := httptest.NewRecorder()
		hs.readyHandler(w, req)
		assert.Equal(t, tt.expectedStatus, w.Code)
	}
}

func TestNewHealthServerRegistersRoutes(t *testing.T) {
	hs := NewHealthServer(readyTopology())
	assert.NotNil(t, hs.mux)

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			hs.mux.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code, "path: %s", tt.path)
		})
	}
}

func TestGetHandler(t *testing.T) {
	hs := NewHealthServer(readyTopology())
	handler := hs.GetHandler()
	assert.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthServerConcurrency(t *testing.T) {
	hs := NewHealthServer(readyTopology())
	done := make(chan bool, 20)

	for i := 0; i < 10; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			hs.healthHandler(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			hs.readyHandler(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			done <- true
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
