package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sentinel/internal/services"
)

const (
	cursorFileName    = "last_timestamp.txt"
	heartbeatFileName = "last_heartbeat.txt"
)

// FileStore keeps each watermark in its own text file.
type FileStore struct {
	dir string
}

// NewFileStore prepares dir and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "state", "open", "state dir is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "state", "open", "create state dir", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the watermark files.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) LoadCursor(_ context.Context) (time.Time, bool, error) {
	return s.load(cursorFileName)
}

func (s *FileStore) SaveCursor(_ context.Context, cursor time.Time) error {
	return s.save(cursorFileName, cursor)
}

func (s *FileStore) LoadHeartbeat(_ context.Context) (time.Time, bool, error) {
	return s.load(heartbeatFileName)
}

func (s *FileStore) SaveHeartbeat(_ context.Context, at time.Time) error {
	return s.save(heartbeatFileName, at)
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) load(name string) (time.Time, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, services.Wrap(services.ErrPersistence, "state", "load", name, err)
	}
	parsed, err := ParseTimestamp(string(data))
	if err != nil {
		return time.Time{}, false, services.Wrap(services.ErrMalformed, "state", "load", name, err)
	}
	return parsed, true, nil
}

// save writes through a temp file and rename so a crash never leaves a
// truncated watermark behind.
func (s *FileStore) save(name string, value time.Time) error {
	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "state", "save", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := fmt.Fprintln(tmp, FormatTimestamp(value)); err != nil {
		_ = tmp.Close()
		cleanup()
		return services.Wrap(services.ErrPersistence, "state", "save", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return services.Wrap(services.ErrPersistence, "state", "save", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return services.Wrap(services.ErrPersistence, "state", "save", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return services.Wrap(services.ErrPersistence, "state", "save", name, err)
	}
	return nil
}
