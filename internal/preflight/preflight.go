package preflight

import (
	"context"
	"path/filepath"

	"sentinel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Output.AnalysisFile != "" {
		results = append(results, CheckDirectoryAccess("Analysis directory", filepath.Dir(cfg.Output.AnalysisFile)))
	}

	results = append(results, CheckSource(ctx, cfg.Source))
	results = append(results, CheckAnalyzer(ctx, cfg.Analyzer))

	if cfg.Notifications.Provider == "none" {
		results = append(results, Result{Name: "Notifications", Passed: true, Optional: true, Detail: "disabled"})
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
