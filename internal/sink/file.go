package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sentinel/internal/services"
)

// File appends rendered reports to a text file.
type File struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewFile opens path for appending, creating parent directories.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "sink", "file", "analysis file path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "sink", "file", "create directory", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "sink", "file", "open "+path, err)
	}
	return &File{path: path, f: f}, nil
}

func (s *File) Name() string { return "file" }

// Path returns the analysis file location.
func (s *File) Path() string { return s.path }

func (s *File) Write(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return services.Wrap(services.ErrPersistence, "sink", "file", "closed", nil)
	}
	if _, err := s.f.WriteString(Render(report)); err != nil {
		return services.Wrap(services.ErrPersistence, "sink", "file", fmt.Sprintf("append %s", s.path), err)
	}
	if err := s.f.Sync(); err != nil {
		return services.Wrap(services.ErrPersistence, "sink", "file", "sync", err)
	}
	return nil
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
