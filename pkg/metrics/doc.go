/*
Package metrics defines the dataplane's Prometheus instrumentation and
the two HTTP health surfaces built on top of it.

# Metrics

All metric vectors live as package vars in metrics.go and are
registered at init, labeled by component_id (and component_kind where
ambiguous): event throughput (EventsInTotal/EventsOutTotal/
EventsDroppedTotal), buffer depth (BufferPendingBytes/
BufferPendingEvents/BufferSendDuration), the sink driver (SinkBatches
Total/SinkBatchDuration/SinkRetriesTotal/SinkInFlightRequests/
SinkConcurrencyLimit), topology lifecycle (ComponentState/
TopologyReloadsTotal/TopologyReloadDuration), and finalization
(EventStatusTotal). Handler() returns the promhttp handler that serves
them.

# Collector

Collector (collector.go) polls a StatSource — pkg/topology.Runtime —
on an interval and refreshes the buffer-depth gauges from its
ComponentStats(), the bridge between pull-based Prometheus scraping and
the topology's own push-style internal counters.

# Health

health.go is a second, coarser surface: a process-global
RegisterComponent/UpdateComponent registry feeding HealthHandler,
ReadyHandler and LivenessHandler, meant to be always reachable on a
loopback port regardless of whether the gRPC introspection API
(pkg/api) is enabled. GetReadiness treats "topology" and "api" as the
critical components; a deployment that never enables the introspection
API registers "api" healthy-by-default rather than blocking readiness
on a server nothing asked for.
*/
package metrics
