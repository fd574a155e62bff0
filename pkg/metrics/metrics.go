package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Component throughput metrics, labeled by component_id and
	// component_kind (source/transform/sink).
	EventsInTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_component_events_in_total",
			Help: "Total number of events received by a component",
		},
		[]string{"component_id", "component_kind"},
	)

	EventsOutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_component_events_out_total",
			Help: "Total number of events sent downstream by a component",
		},
		[]string{"component_id", "component_kind"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_component_events_dropped_total",
			Help: "Total number of events dropped by a component, by reason",
		},
		[]string{"component_id", "reason"},
	)

	// Buffer (channel fabric) metrics.
	BufferPendingBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowd_buffer_pending_bytes",
			Help: "Current number of bytes queued in a component's buffer",
		},
		[]string{"component_id", "buffer_variant"},
	)

	BufferPendingEvents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowd_buffer_pending_events",
			Help: "Current number of events queued in a component's buffer",
		},
		[]string{"component_id", "buffer_variant"},
	)

	BufferSendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowd_buffer_send_duration_seconds",
			Help:    "Time a producer spent blocked in Send (backpressure), by component",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component_id"},
	)

	// Sink driver (C7) metrics.
	SinkBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_sink_batches_total",
			Help: "Total number of batches sent by a sink, by outcome",
		},
		[]string{"component_id", "outcome"},
	)

	SinkBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowd_sink_batch_duration_seconds",
			Help:    "Time taken to send one batch, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component_id"},
	)

	SinkRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_sink_retries_total",
			Help: "Total number of retried sink requests",
		},
		[]string{"component_id"},
	)

	SinkInFlightRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowd_sink_in_flight_requests",
			Help: "Current number of in-flight requests permitted by the adaptive concurrency limiter",
		},
		[]string{"component_id"},
	)

	SinkConcurrencyLimit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowd_sink_concurrency_limit",
			Help: "Current adaptive concurrency limit",
		},
		[]string{"component_id"},
	)

	// Topology (C6) metrics.
	ComponentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowd_component_state",
			Help: "Current lifecycle state of a component (1 = this state is active, else 0)",
		},
		[]string{"component_id", "state"},
	)

	TopologyReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_topology_reloads_total",
			Help: "Total number of topology reloads by outcome",
		},
		[]string{"outcome"},
	)

	TopologyReloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowd_topology_reload_duration_seconds",
			Help:    "Time taken to apply a topology reload",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Finalization (C2) metrics.
	EventStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowd_event_status_total",
			Help: "Total number of events reaching a terminal finalization status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(EventsInTotal)
	prometheus.MustRegister(EventsOutTotal)
	prometheus.MustRegister(EventsDroppedTotal)
	prometheus.MustRegister(BufferPendingBytes)
	prometheus.MustRegister(BufferPendingEvents)
	prometheus.MustRegister(BufferSendDuration)
	prometheus.MustRegister(SinkBatchesTotal)
	prometheus.MustRegister(SinkBatchDuration)
	prometheus.MustRegister(SinkRetriesTotal)
	prometheus.MustRegister(SinkInFlightRequests)
	prometheus.MustRegister(SinkConcurrencyLimit)
	prometheus.MustRegister(ComponentState)
	prometheus.MustRegister(TopologyReloadsTotal)
	prometheus.MustRegister(TopologyReloadDuration)
	prometheus.MustRegister(EventStatusTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
