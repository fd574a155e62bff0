package driver

import (
	"context"

	"github.com/cuemby/flowd/pkg/health"
)

// Healthcheck adapts a health.Checker (the exec/tcp/http checkers) to
// component.Healthchecker, so any Driver-backed sink can expose one by
// embedding this alongside its own Sink.
type Healthcheck struct {
	Checker health.Checker
}

func (h Healthcheck) Healthcheck(ctx context.Context) error {
	result := h.Checker.Check(ctx)
	if !result.Healthy {
		return &HealthcheckError{Message: result.Message}
	}
	return nil
}

// HealthcheckError reports why a sink's healthcheck failed.
type HealthcheckError struct {
	Message string
}

func (e *HealthcheckError) Error() string { return e.Message }
