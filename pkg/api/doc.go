/*
Package api implements the optional introspection surface: a gRPC
service reporting topology shape and component state, plus a plain
HTTP server for liveness/readiness probes and the Prometheus handler.

Enabled via the `api.enabled`/`api.address` config keys. There is no
write surface; reconfiguration happens by editing the config file and
sending SIGHUP, not through this API.

# gRPC service

The Introspection service is hand-registered with a grpc.ServiceDesc
rather than generated by protoc — every request and response is a
protobuf well-known type (emptypb.Empty, structpb.Struct), so no
.proto compilation step is required:

	GetStatus(Empty) -> Struct{started_at, uptime_secs, components}
	GetComponentStats(Empty) -> Struct{components: [...]}

# HTTP endpoints

	GET /health   liveness: 200 once the process is up
	GET /ready    readiness: 200 once every component reports "running"
	GET /metrics  Prometheus text exposition
*/
package api
