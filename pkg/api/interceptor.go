package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// loggingInterceptor logs every introspection call's method and
// latency. There's nothing to authorize here — every method on this
// service is read-only — so this one never rejects a call, it only
// observes.
func loggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		}
		event.Str("method", info.FullMethod).Dur("duration", time.Since(start)).Msg("introspection api call")
		return resp, err
	}
}
