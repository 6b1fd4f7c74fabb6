// Package preflight provides readiness checks for the endpoints and paths
// Sentinel depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs failures as warnings.
//     The poll loop still starts; a failing source only produces
//     fetch_failed cycles until it recovers.
//   - The CLI "sentinel check" command prints every result and exits non-zero
//     when a required check fails.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
