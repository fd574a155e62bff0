/*
Package log provides structured logging for flowd using zerolog.

The log package wraps zerolog to give every component (source, transform,
sink, topology, buffer) a logger tagged with its component_id, component
kind, and component type, so a single running process's logs can be
filtered down to one node in the pipeline graph.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("flowd starting")

	srcLog := log.WithComponentType("source", "file")
	srcLog = srcLog.With().Str("component_id", "tail_json").Logger()
	srcLog.Info().Msg("watching file")

# Log levels

Debug is for development only; Info is the default production level;
Warn/Error cover failed sends, retried batches, and buffer corruption
events. Fatal exits the process and is reserved for startup failures
(bad config, an unopenable buffer directory) that cannot self-heal.

# Design

A single package-level Logger is initialized once via Init and read by
every other package without being passed down explicitly — the same
pattern the rest of this codebase uses for metrics and for the process
health registry (both in pkg/metrics). Component loggers are created with
.With().Str(...) chains rather than a growing set of named helpers, so
adding a new tagged dimension never requires touching this package.
*/
package log
