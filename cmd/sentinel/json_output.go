package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/poller"
)

// writeJSON encodes v as indented JSON on the command's stdout. HTML escaping
// is off so verdict text keeps characters like < and & readable.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// nonNil keeps empty listings encoded as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// cycleResult is the machine-readable summary of one poll cycle.
type cycleResult struct {
	Outcome poller.Outcome `json:"outcome"`
	Status  string         `json:"status"`
	Cursor  string         `json:"cursor"`
}

func newCycleResult(outcome poller.Outcome, cursor time.Time) cycleResult {
	return cycleResult{
		Outcome: outcome,
		Status:  strings.ToLower(statusTag(outcomeKind(outcome))),
		Cursor:  cursor.UTC().Format(time.RFC3339Nano),
	}
}

// incomplete reports whether the cycle left its window for the next run.
func (r cycleResult) incomplete() bool {
	return outcomeKind(r.Outcome) == statusError
}
