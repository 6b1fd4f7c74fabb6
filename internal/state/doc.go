// Package state persists the poller watermarks between runs.
//
// Two watermarks are tracked: the cursor (inclusive lower bound of the next
// fetch window) and the time of the last heartbeat notification. FileStore
// keeps each as ISO-8601 text in the state directory so operators can inspect
// or hand-edit them. SQLiteStore keeps them in a watermarks table and also
// records the verdict history consumed by `sentinel history`.
//
// A missing watermark is reported as (zero, false, nil) so callers can
// distinguish "first run" from a read failure.
package state
