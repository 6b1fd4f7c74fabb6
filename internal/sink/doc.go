// Package sink persists analysis reports.
//
// A report is written to every configured sink before the poller advances its
// cursor. The append-only analysis file is always present; the sqlite history
// and the S3-compatible archive are optional.
package sink
