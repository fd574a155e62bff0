// Command flowd runs the observability dataplane: a config-driven graph
// of sources, transforms and sinks connected by the buffered channel
// fabric in pkg/buffer, scheduled and supervised by pkg/topology.
package main

import (
	"fmt"
	"os"
)

// Exit codes per the CLI surface: 0 success, 1 generic failure, 78
// config error (matches the conventional EX_CONFIG).
const (
	exitSuccess     = 0
	exitFailure     = 1
	exitConfigError = 78
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if _, ok := err.(*configError); ok {
			os.Exit(exitConfigError)
		}
		os.Exit(exitFailure)
	}
	os.Exit(exitSuccess)
}

// configError wraps an error that should map to exit code 78 rather
// than the generic 1 — a config file that fails to parse or a topology
// that fails to build.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
