package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sentinel/internal/services"
)

// SQLiteStore keeps watermarks and verdict history in a single database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and applies
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "state", "open", "create state dir", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) LoadCursor(ctx context.Context) (time.Time, bool, error) {
	return s.loadWatermark(ctx, cursorKey)
}

func (s *SQLiteStore) SaveCursor(ctx context.Context, cursor time.Time) error {
	return s.saveWatermark(ctx, cursorKey, cursor)
}

func (s *SQLiteStore) LoadHeartbeat(ctx context.Context) (time.Time, bool, error) {
	return s.loadWatermark(ctx, heartbeatKey)
}

func (s *SQLiteStore) SaveHeartbeat(ctx context.Context, at time.Time) error {
	return s.saveWatermark(ctx, heartbeatKey, at)
}

func (s *SQLiteStore) loadWatermark(ctx context.Context, name string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM watermarks WHERE name = ?", name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, services.Wrap(services.ErrPersistence, "state", "load", name, err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, false, services.Wrap(services.ErrMalformed, "state", "load", name, err)
	}
	return parsed, true, nil
}

func (s *SQLiteStore) saveWatermark(ctx context.Context, name string, value time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watermarks (name, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name,
		FormatTimestamp(value),
		FormatTimestamp(time.Now()),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "state", "save", name, err)
	}
	return nil
}
