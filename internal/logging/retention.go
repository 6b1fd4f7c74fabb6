package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
	// MaxFiles keeps at most this many matching files (newest first). Zero
	// means no count limit.
	MaxFiles int
}

type retainedFile struct {
	path    string
	modTime time.Time
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays or beyond a target's MaxFiles. A retentionDays value of 0
// disables age-based pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	var cutoff time.Time
	if retentionDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -retentionDays)
	}

	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					exclusions[abs] = struct{}{}
				}
			}
		}
	}

	for _, target := range targets {
		if cutoff.IsZero() && target.MaxFiles <= 0 {
			continue
		}
		candidates := collectCandidates(target, exclusions)
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].modTime.After(candidates[j].modTime)
		})
		for idx, file := range candidates {
			expired := !cutoff.IsZero() && file.modTime.Before(cutoff)
			overflow := target.MaxFiles > 0 && idx >= target.MaxFiles
			if !expired && !overflow {
				continue
			}
			removeLog(logger, file.path)
		}
	}
}

func collectCandidates(target RetentionTarget, exclusions map[string]struct{}) []retainedFile {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []retainedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if pat := strings.TrimSpace(target.Pattern); pat != "" {
			matched, err := filepath.Match(pat, name)
			if err != nil || !matched {
				continue
			}
		}
		fullPath := filepath.Join(dir, name)
		if absPath, err := filepath.Abs(fullPath); err == nil {
			fullPath = absPath
		}
		if _, skip := exclusions[fullPath]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, retainedFile{path: fullPath, modTime: info.ModTime()})
	}
	return out
}

func removeLog(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check file permissions and log_dir ownership"),
			String(FieldImpact, "old log file remains on disk"),
		)
		return
	}
	if logger != nil {
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
}
