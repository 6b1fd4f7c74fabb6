// Package logs reads the per-run daemon log files written by the logging
// package.
//
// LatestRunLog locates the newest sentinel-*.log in the log directory,
// LastLines returns the tail of a file with bounded memory, and Follow polls
// for appended lines until the context is cancelled. A file that shrinks
// below the saved offset is treated as rotated and re-read from the start.
package logs
