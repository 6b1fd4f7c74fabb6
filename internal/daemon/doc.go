// Package daemon coordinates the long-running Sentinel process.
//
// It builds the source, analyzer, sinks, notifier, state store, and metrics
// from configuration, wires them into a poller, and runs it under a
// flock-based single-instance lock. The optional HTTP server exposes
// Prometheus metrics and a JSON status document. The CLI uses the same type
// for one-shot cycles, status output, and cursor maintenance.
//
// Keep orchestration logic here: polling semantics live in the poller package.
package daemon
