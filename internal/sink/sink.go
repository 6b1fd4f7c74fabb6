package sink

import (
	"context"
	"errors"
	"time"

	"sentinel/internal/analyzer"
	"sentinel/internal/source"
)

// Report describes one analyzed batch.
type Report struct {
	CycleID     string
	Source      string
	Window      source.Window
	RecordCount int
	FirstRecord time.Time
	LastRecord  time.Time
	Verdict     analyzer.Verdict
	Escalated   bool
	CreatedAt   time.Time
}

// Status returns the verdict status label written to every sink.
func (r Report) Status() string {
	if r.Verdict.Failed() {
		return analyzer.StatusError
	}
	return analyzer.StatusOK
}

// Sink is the interface every report destination implements.
type Sink interface {
	Name() string
	Write(ctx context.Context, report Report) error
	Close() error
}

// Multi fans a report out to several sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti drops nil entries.
func NewMulti(sinks ...Sink) *Multi {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Multi{sinks: kept}
}

func (m *Multi) Name() string { return "multi" }

// Names lists the wrapped sinks.
func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Write attempts every sink and returns the joined failures.
func (m *Multi) Write(ctx context.Context, report Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
