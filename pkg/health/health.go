package health

import (
	"context"
	"time"
)

// CheckType identifies which probe mechanism produced a Result.
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeExec CheckType = "exec"
)

// Result is the outcome of a single probe against a sink's downstream
// dependency.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface every health probe implements.
type Checker interface {
	// Check runs the probe once and returns its outcome.
	Check(ctx context.Context) Result

	// Type reports which probe mechanism this is.
	Type() CheckType
}

// Config controls how a Checker's results feed into a Status.
type Config struct {
	// Interval is the time between probes.
	Interval time.Duration

	// Timeout is the maximum time to wait for one probe.
	Timeout time.Duration

	// Retries is the number of consecutive failures before Status flips
	// unhealthy.
	Retries int

	// StartPeriod is the grace period after a sink first comes up before
	// failures count against it, for destinations that are slow to
	// become reachable.
	StartPeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		Retries:     3,
		StartPeriod: 0,
	}
}

// Status tracks a sink's downstream dependency health across repeated
// probes, with hysteresis so a single flaky check doesn't flip it
// unhealthy.
type Status struct {
	// ConsecutiveFailures tracks the number of consecutive failed checks
	ConsecutiveFailures int

	// ConsecutiveSuccesses tracks the number of consecutive successful checks
	ConsecutiveSuccesses int

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time

	// LastResult is the result of the last health check
	LastResult Result

	// Healthy indicates if the dependency is currently considered healthy
	Healthy bool

	// StartedAt is when health monitoring started for this dependency
	StartedAt time.Time
}

// NewStatus creates a new Status, optimistic until proven otherwise.
func NewStatus() *Status {
	return &Status{
		Healthy:   true,
		StartedAt: time.Now(),
	}
}

// Update folds one Result into the running Status.
func (s *Status) Update(result Result, config Config) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0

		// A single success is enough to clear an unhealthy status.
		s.Healthy = true
	} else {
		s.ConsecutiveFailures++
		s.ConsecutiveSuccesses = 0

		if s.ConsecutiveFailures >= config.Retries {
			s.Healthy = false
		}
	}
}

// InStartPeriod reports whether this dependency is still inside its
// startup grace period, during which failures don't count.
func (s *Status) InStartPeriod(config Config) bool {
	if config.StartPeriod == 0 {
		return false
	}
	return time.Since(s.StartedAt) < config.StartPeriod
}
