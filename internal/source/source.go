package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window is the half-open fetch interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Record is one log line or state change returned by a source.
type Record struct {
	Timestamp time.Time
	Message   string
	EntityID  string
	State     string
	Source    string
	Fields    map[string]string
}

// Text renders the record body used in prompts.
func (r Record) Text() string {
	if r.Message != "" {
		return r.Message
	}
	if r.EntityID != "" {
		return r.EntityID + "=" + r.State
	}
	return r.State
}

// Key identifies a record for duplicate suppression at the cursor boundary.
func (r Record) Key() string {
	return r.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + r.EntityID + "|" + r.Text()
}

// Source fetches records inside a window, sorted ascending by timestamp.
type Source interface {
	Name() string
	Fetch(ctx context.Context, window Window) ([]Record, error)
}

// SortRecords orders records by timestamp, keeping the source order for ties.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// ParseTimestamp accepts the timestamp shapes returned by the supported APIs.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05.999999999"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
