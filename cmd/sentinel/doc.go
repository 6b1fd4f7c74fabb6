// Package main hosts the Sentinel CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the poll loop in the foreground, executes
// single cycles, prints status and verdict history, maintains the cursor, and
// scaffolds configuration. It centralizes configuration resolution and logger
// setup so subcommands can focus on output instead of wiring.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
