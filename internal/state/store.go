package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/services"
)

const (
	cursorKey    = "cursor"
	heartbeatKey = "heartbeat"
)

// Store persists the cursor and heartbeat watermarks.
type Store interface {
	LoadCursor(ctx context.Context) (time.Time, bool, error)
	SaveCursor(ctx context.Context, cursor time.Time) error
	LoadHeartbeat(ctx context.Context) (time.Time, bool, error)
	SaveHeartbeat(ctx context.Context, at time.Time) error
	Close() error
}

// Open returns the store selected by state.backend.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "state", "open", "config is nil", nil)
	}
	switch cfg.State.Backend {
	case "sqlite":
		return OpenSQLite(cfg.StateDBPath())
	case "file", "":
		return NewFileStore(cfg.Paths.StateDir)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "state", "open", fmt.Sprintf("unknown backend %q", cfg.State.Backend), nil)
	}
}

// FormatTimestamp renders a watermark the way it is persisted.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp accepts RFC 3339 text, with or without fractional seconds or
// zone. Values without a zone are treated as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
