// Package logfile scans a local log file for severity keywords.
package logfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/services"
	"sentinel/internal/source"
)

// Name is the provider name used in configuration.
const Name = "logfile"

const defaultMaxLines = 50

var severityKeywords = []string{"ERROR", "WARN", "WARNING", "EXCEPTION", "FATAL", "CRITICAL", "FAILURE"}

func init() {
	source.Register(Name, func(cfg config.Source) (source.Source, error) {
		return New(cfg)
	})
}

// Source reads a log file and keeps lines that mention a severity keyword.
type Source struct {
	path     string
	maxLines int
	keywords []string
}

// New builds a log file source from cfg.
func New(cfg config.Source) (*Source, error) {
	path := strings.TrimSpace(cfg.LogPath)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, Name, "init", "log_path is required", nil)
	}
	maxLines := cfg.MaxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	keywords := append([]string(nil), severityKeywords...)
	if cfg.IncludeInfo {
		keywords = append(keywords, "INFO")
	}
	return &Source{path: path, maxLines: maxLines, keywords: keywords}, nil
}

func (s *Source) Name() string { return Name }

// Fetch returns matching lines stamped inside window, oldest first and capped
// at maxLines so the next window resumes after the last returned line. Lines
// sharing the last kept timestamp are never split across batches. Lines
// without a leading timestamp inherit the previous line's, or the file
// modification time when none precedes them.
func (s *Source) Fetch(ctx context.Context, window source.Window) ([]source.Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, Name, "open", s.path, err)
		}
		return nil, services.Wrap(services.ErrTransient, Name, "open", s.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, Name, "stat", s.path, err)
	}
	current := info.ModTime().UTC()

	var records []source.Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if ts, ok := LeadingTimestamp(line); ok {
			current = ts
		}
		if !s.matches(line) {
			continue
		}
		if current.Before(window.From) || !current.Before(window.To) {
			continue
		}
		records = append(records, source.Record{
			Timestamp: current,
			Message:   line,
			Source:    s.path,
			Fields:    map[string]string{"line": fmt.Sprint(lineNo)},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, Name, "read", s.path, err)
	}

	source.SortRecords(records)
	return capOldest(records, s.maxLines), nil
}

func capOldest(records []source.Record, limit int) []source.Record {
	if len(records) <= limit {
		return records
	}
	end := limit
	last := records[limit-1].Timestamp
	for end < len(records) && records[end].Timestamp.Equal(last) {
		end++
	}
	return records[:end]
}

func (s *Source) matches(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range s.keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

var leadingLayouts = []struct {
	layout string
	fields int
}{
	{time.RFC3339Nano, 1},
	{"2006-01-02T15:04:05.999999999", 1},
	{"2006-01-02 15:04:05.999999999Z07:00", 2},
	{"2006-01-02 15:04:05.999999999", 2},
	{"2006-01-02 15:04:05,999", 2},
}

// LeadingTimestamp parses a timestamp at the start of line. Values without a
// zone are read as UTC.
func LeadingTimestamp(line string) (time.Time, bool) {
	trimmed := strings.TrimLeft(line, " \t[")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	for _, candidate := range leadingLayouts {
		if len(fields) < candidate.fields {
			continue
		}
		value := strings.TrimRight(strings.Join(fields[:candidate.fields], " "), "]")
		if parsed, err := time.Parse(candidate.layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
