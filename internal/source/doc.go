// Package source defines the log/state sources the poller fetches from.
//
// A Source answers one question: which records fall inside a time window.
// Providers live in subpackages (graylog, homeassistant, logfile) and register
// themselves by name in init; callers blank-import the providers they want and
// build one with New.
package source
