// Package notifications pushes escalations, analyzer failures and heartbeats
// to a phone.
//
// Two transports are supported: ntfy (plain-text POST to a topic URL) and the
// Home Assistant notify service. Every Message carries a dedupe tag; both
// transports forward it so repeated alerts for the same condition replace one
// another on the receiving device instead of stacking. When neither transport
// is configured NewService returns a no-op implementation, so callers never
// nil-check.
package notifications
