// Package topology implements the topology scheduler (C6): building a DAG
// of components from config, wiring the channel fabric between them,
// running and supervising each component's task, and hot-reloading or
// gracefully shutting down the whole graph.
package topology

import (
	"time"

	"github.com/cuemby/flowd/pkg/component"
)

// BufferVariant selects the channel fabric transport for one edge.
type BufferVariant string

const (
	BufferMemory BufferVariant = "memory"
	BufferDisk   BufferVariant = "disk"
)

// WhenFull mirrors buffer.WhenFull in config form.
type WhenFull string

const (
	WhenFullBlock      WhenFull = "block"
	WhenFullDropNewest WhenFull = "drop_newest"
)

// BufferConfig is a sink's edge buffer configuration.
type BufferConfig struct {
	Type      BufferVariant `yaml:"type" toml:"type"`
	MaxEvents int           `yaml:"max_events,omitempty" toml:"max_events,omitempty"`
	MaxBytes  int64         `yaml:"max_size,omitempty" toml:"max_size,omitempty"`
	WhenFull  WhenFull      `yaml:"when_full,omitempty" toml:"when_full,omitempty"`
}

// BatchConfig controls the sink driver's batching thresholds (C7).
type BatchConfig struct {
	MaxEvents  int     `yaml:"max_events,omitempty" toml:"max_events,omitempty"`
	MaxBytes   int     `yaml:"max_bytes,omitempty" toml:"max_bytes,omitempty"`
	TimeoutSec float64 `yaml:"timeout_secs,omitempty" toml:"timeout_secs,omitempty"`
}

// RequestConfig controls the sink driver's request service layer (C7).
type RequestConfig struct {
	Concurrency            string  `yaml:"concurrency,omitempty" toml:"concurrency,omitempty"` // "adaptive" or a number
	RateLimitNum            int     `yaml:"rate_limit_num,omitempty" toml:"rate_limit_num,omitempty"`
	RateLimitDurationSecs   float64 `yaml:"rate_limit_duration_secs,omitempty" toml:"rate_limit_duration_secs,omitempty"`
	TimeoutSecs             float64 `yaml:"timeout_secs,omitempty" toml:"timeout_secs,omitempty"`
	RetryAttempts           int     `yaml:"retry_attempts,omitempty" toml:"retry_attempts,omitempty"`
	RetryMaxDurationSecs    float64 `yaml:"retry_max_duration_secs,omitempty" toml:"retry_max_duration_secs,omitempty"`
	RetryInitialBackoffSecs float64 `yaml:"retry_initial_backoff_secs,omitempty" toml:"retry_initial_backoff_secs,omitempty"`
	RetryMaxBackoffSecs     float64 `yaml:"retry_max_backoff_secs,omitempty" toml:"retry_max_backoff_secs,omitempty"`
}

// SourceConfig declares one source component.
type SourceConfig struct {
	Type   string         `yaml:"type" toml:"type"`
	Params map[string]any `yaml:",inline" toml:"-"`
}

// TransformConfig declares one transform component.
type TransformConfig struct {
	Type   string         `yaml:"type" toml:"type"`
	Inputs []string       `yaml:"inputs" toml:"inputs"`
	Params map[string]any `yaml:",inline" toml:"-"`
}

// SinkConfig declares one sink component.
type SinkConfig struct {
	Type    string         `yaml:"type" toml:"type"`
	Inputs  []string       `yaml:"inputs" toml:"inputs"`
	Buffer  BufferConfig   `yaml:"buffer,omitempty" toml:"buffer,omitempty"`
	Batch   BatchConfig    `yaml:"batch,omitempty" toml:"batch,omitempty"`
	Request RequestConfig  `yaml:"request,omitempty" toml:"request,omitempty"`
	Params  map[string]any `yaml:",inline" toml:"-"`
}

// HealthchecksConfig controls build-time healthcheck behavior.
type HealthchecksConfig struct {
	RequireHealthy bool `yaml:"require_healthy" toml:"require_healthy"`
}

// APIConfig controls the optional gRPC introspection endpoint (pkg/api).
type APIConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Address string `yaml:"address,omitempty" toml:"address,omitempty"`
}

// SecretConfig declares one secret backend (e.g. "env", "file").
type SecretConfig struct {
	Type   string         `yaml:"type" toml:"type"`
	Params map[string]any `yaml:",inline" toml:"-"`
}

// FieldAssertion names one expected field value in a test case's input
// or output event.
type FieldAssertion struct {
	Path  string `yaml:"path" toml:"path"`
	Equals string `yaml:"equals" toml:"equals"`
}

// TestInput seeds one log event into the named transform under test.
type TestInput struct {
	Fields []FieldAssertion `yaml:"log_fields,omitempty" toml:"log_fields,omitempty"`
}

// TestOutput asserts on one event the transform under test produced.
// Dropped, when true, asserts the transform produced no events at all.
type TestOutput struct {
	Dropped bool             `yaml:"dropped,omitempty" toml:"dropped,omitempty"`
	Fields  []FieldAssertion `yaml:"log_fields,omitempty" toml:"log_fields,omitempty"`
}

// TestCase declares one embedded unit test: feed Input into Transform,
// assert the result matches Outputs. Backs the `test` subcommand:
// "run embedded unit-test declarations" against the
// transform graph without standing up sources or sinks.
type TestCase struct {
	Name      string       `yaml:"name" toml:"name"`
	Transform string       `yaml:"transform" toml:"transform"`
	Input     TestInput    `yaml:"input" toml:"input"`
	Outputs   []TestOutput `yaml:"outputs" toml:"outputs"`
}

// Config is the full topology definition, the direct decode target of
// the YAML/TOML/JSON config file (pkg/config).
type Config struct {
	DataDir              string                     `yaml:"data_dir" toml:"data_dir"`
	Sources              map[string]SourceConfig    `yaml:"sources" toml:"sources"`
	Transforms           map[string]TransformConfig `yaml:"transforms" toml:"transforms"`
	Sinks                map[string]SinkConfig      `yaml:"sinks" toml:"sinks"`
	Healthchecks         HealthchecksConfig         `yaml:"healthchecks,omitempty" toml:"healthchecks,omitempty"`
	API                  APIConfig                  `yaml:"api,omitempty" toml:"api,omitempty"`
	Secrets              map[string]SecretConfig    `yaml:"secret,omitempty" toml:"secret,omitempty"`
	Tests                []TestCase                 `yaml:"tests,omitempty" toml:"tests,omitempty"`
	GracefulShutdownSecs float64                    `yaml:"graceful_shutdown_duration_secs,omitempty" toml:"graceful_shutdown_duration_secs,omitempty"`
}

// graceSeconds returns the configured graceful shutdown window in
// seconds, default 60.
func (c Config) graceSeconds() float64 {
	if c.GracefulShutdownSecs > 0 {
		return c.GracefulShutdownSecs
	}
	return 60
}

// GraceDuration returns the configured graceful shutdown window as a
// time.Duration, for callers (cmd/flowd) bounding the final Shutdown call.
func (c Config) GraceDuration() time.Duration {
	return time.Duration(c.graceSeconds() * float64(time.Second))
}

// inputRef splits an "id" or "id.output" input reference.
type inputRef struct {
	ComponentID component.Key
	Output      string
}

func parseInputRef(s string) inputRef {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return inputRef{ComponentID: component.Key(s[:i]), Output: s[i+1:]}
		}
	}
	return inputRef{ComponentID: component.Key(s), Output: "default"}
}
