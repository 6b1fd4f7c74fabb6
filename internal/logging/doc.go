// Package logging assembles structured slog loggers and formatting helpers used
// across Sentinel components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so poller code can automatically
// tag log lines with cycle IDs, source names, and poller states. The package
// also provides a no-op logger for tests and wiring code that cannot fail, plus
// retention pruning for the per-run log files the daemon writes.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the agent.
package logging
