// Package poller runs the watermark poll loop.
//
// Each cycle fetches the window [cursor, now) from the configured source,
// hands a non-empty batch to the analyzer, writes the report to the sinks,
// and only then moves the cursor to the timestamp of the newest record. An
// empty batch leaves the cursor alone and gives the heartbeat suppressor a
// chance to send a "still alive" notice.
//
// The loop is an explicit state machine (idle, fetching, analyzing,
// persisting, sleeping). The context is checked on every transition, so a
// cancelled daemon stops between steps rather than in the middle of one.
package poller
