/*
Package health provides health check mechanisms for sinks: HTTP, TCP, and
exec checks that a sink driver runs against its downstream destination
before the topology is marked ready, and that it can keep running on an
interval to detect a dependency going unhealthy.

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                     Checker Interface                        │
	│  • Check(ctx) Result                                         │
	│  • Type() CheckType                                          │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	    ┌────┴──────┬──────────┐
	    ▼           ▼          ▼
	┌────────┐  ┌──────┐  ┌────────┐
	│  HTTP  │  │ TCP  │  │  Exec  │
	│Checker │  │Checker│ │Checker │
	└────────┘  └──────┘  └────────┘

# Health Check Types

HTTP checks perform a request against a URL and accept a status-code
range (default 200-399). TCP checks just dial an address and accept
any successful connection. Exec checks run a local command and treat
exit code 0 as healthy — useful for checking a local socket, mounted
volume, or a downstream dependency with no network-reachable probe.

# Status Tracking

Status implements hysteresis so a single flaky check doesn't flip a
sink unhealthy:

	Healthy → 1 failure → still healthy
	Healthy → Retries failures → unhealthy
	Unhealthy → 1 success → healthy again

# Integration

`driver.Healthcheck` adapts a Checker to component.Healthchecker so any
Driver-backed sink can expose one. When `healthchecks.require_healthy`
is set, the topology runtime runs every component's Healthcheck once
at build time and refuses to start the graph if any of them fail.
*/
package health
