package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/analyzer"
	"sentinel/internal/config"
	"sentinel/internal/logging"
	"sentinel/internal/metrics"
	"sentinel/internal/notifications"
	"sentinel/internal/sink"
	"sentinel/internal/source"
)

// State is the poller's position in its cycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateAnalyzing  State = "analyzing"
	StatePersisting State = "persisting"
	StateSleeping   State = "sleeping"
)

// Outcome summarizes one cycle.
type Outcome string

const (
	OutcomeEmpty          Outcome = "empty"
	OutcomeFetchFailed    Outcome = "fetch_failed"
	OutcomeProcessed      Outcome = "processed"
	OutcomeAnalysisFailed Outcome = "analysis_failed"
	OutcomeSinkFailed     Outcome = "sink_failed"
	OutcomeCancelled      Outcome = "cancelled"
)

// Config holds the loop timing. It is derived once from the application
// config and never mutated.
type Config struct {
	Interval          time.Duration
	Lookback          time.Duration
	HeartbeatInterval time.Duration
	FetchTimeout      time.Duration
	AnalysisTimeout   time.Duration
	SystemPrompt      string
	Model             string
}

// ConfigFrom derives the poller settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Interval:          cfg.PollInterval(),
		Lookback:          cfg.Lookback(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		FetchTimeout:      cfg.FetchTimeout(),
		AnalysisTimeout:   cfg.AnalysisTimeout(),
		SystemPrompt:      cfg.Analyzer.SystemPrompt,
		Model:             cfg.Analyzer.Model,
	}
}

// Notifier delivers push notifications.
type Notifier interface {
	Notify(ctx context.Context, msg notifications.Message) error
}

// Store persists the cursor and heartbeat watermarks.
type Store interface {
	LoadCursor(ctx context.Context) (time.Time, bool, error)
	SaveCursor(ctx context.Context, cursor time.Time) error
	LoadHeartbeat(ctx context.Context) (time.Time, bool, error)
	SaveHeartbeat(ctx context.Context, at time.Time) error
}

// Deps are the poller's collaborators. Source, Analyzer, Sink and Store are
// required.
type Deps struct {
	Source     source.Source
	Analyzer   analyzer.Analyzer
	Sink       sink.Sink
	Notifier   Notifier
	Store      Store
	Escalation analyzer.Escalation
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NewCycleID defaults to a random UUID.
	NewCycleID func() string
}

// Poller owns the cursor and heartbeat watermarks for one source.
type Poller struct {
	cfg        Config
	source     source.Source
	analyzer   analyzer.Analyzer
	sink       sink.Sink
	notifier   Notifier
	store      Store
	escalation analyzer.Escalation
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newCycleID func() string

	mu            sync.Mutex
	state         State
	cursor        time.Time
	lastHeartbeat time.Time
	lastOutcome   Outcome
	// boundary holds the keys of records stamped exactly at boundaryAt that
	// were already analyzed; the inclusive window start returns them again.
	boundary   map[string]struct{}
	boundaryAt time.Time
}

// New validates deps and builds a poller in the idle state.
func New(cfg Config, deps Deps) (*Poller, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("poller: source is required")
	case deps.Analyzer == nil:
		return nil, errors.New("poller: analyzer is required")
	case deps.Sink == nil:
		return nil, errors.New("poller: sink is required")
	case deps.Store == nil:
		return nil, errors.New("poller: store is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 10 * time.Minute
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewCycleID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	escalation := deps.Escalation
	if len(escalation.Markers()) == 0 {
		escalation = analyzer.NewEscalation(nil)
	}
	return &Poller{
		cfg:        cfg,
		source:     deps.Source,
		analyzer:   deps.Analyzer,
		sink:       deps.Sink,
		notifier:   deps.Notifier,
		store:      deps.Store,
		escalation: escalation,
		metrics:    deps.Metrics,
		logger:     logging.NewComponentLogger(deps.Logger, "poller"),
		now:        now,
		newCycleID: newID,
		state:      StateIdle,
	}, nil
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cursor returns the in-memory cursor.
func (p *Poller) Cursor() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// LastHeartbeat returns when the last heartbeat was sent.
func (p *Poller) LastHeartbeat() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHeartbeat
}

// LastOutcome returns the outcome of the most recent cycle.
func (p *Poller) LastOutcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOutcome
}

// transition moves to next after checking for cancellation.
func (p *Poller) transition(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	prev := p.state
	p.state = next
	p.mu.Unlock()
	if prev != next {
		logging.WithContext(ctx, p.logger).Debug("poller state changed",
			logging.String("from", string(prev)),
			logging.String("to", string(next)),
		)
	}
	return nil
}

func (p *Poller) setIdle() {
	p.mu.Lock()
	p.state = StateIdle
	p.mu.Unlock()
}
