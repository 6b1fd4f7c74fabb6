// Package heartbeat decides when a quiet poller should announce that it is
// still alive.
//
// The policy is a pure debounce: callers pass the current time and the time
// of the last notification, and receive the timestamp to remember plus
// whether a notification is due. Persisting the returned timestamp is the
// caller's job.
package heartbeat

import "time"

// DefaultInterval is the minimum spacing between heartbeats.
const DefaultInterval = 4 * time.Hour

// Maybe reports whether a heartbeat is due at now. It returns (now, true) when
// at least minInterval has elapsed since last, or when last is zero. Otherwise
// it returns (last, false). A minInterval <= 0 disables heartbeats.
func Maybe(now, last time.Time, minInterval time.Duration) (time.Time, bool) {
	if minInterval <= 0 {
		return last, false
	}
	if last.IsZero() || now.Sub(last) >= minInterval {
		return now, true
	}
	return last, false
}

// Next returns the earliest time a heartbeat may fire after last. The zero
// time means one is due immediately; a disabled interval returns the zero time
// and false.
func Next(last time.Time, minInterval time.Duration) (time.Time, bool) {
	if minInterval <= 0 {
		return time.Time{}, false
	}
	if last.IsZero() {
		return time.Time{}, true
	}
	return last.Add(minInterval), true
}
