// Package services defines shared utilities consumed by the poller and its
// external integrations (sources, analyzers, sinks, notifiers).
//
// Key responsibilities:
//   - Context helpers that stamp cycle identifiers, source names, and poller
//     states for logging.
//   - Structured error markers plus the Wrap helper that classify failures into
//     the transient/malformed/persistence buckets the poller reacts to.
//
// Use these helpers when wiring a new integration so operational behaviour
// (error classification, observability) stays uniform across the agent.
package services
