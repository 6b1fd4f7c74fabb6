package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sentinel/internal/analyzer"
	"sentinel/internal/config"
	"sentinel/internal/logging"
	"sentinel/internal/metrics"
	"sentinel/internal/notifications"
	"sentinel/internal/poller"
	"sentinel/internal/sink"
	"sentinel/internal/source"
	"sentinel/internal/state"

	_ "sentinel/internal/source/graylog"
	_ "sentinel/internal/source/homeassistant"
	_ "sentinel/internal/source/logfile"
)

// ErrAlreadyRunning is returned when another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another sentinel instance is already running")

// Option overrides a collaborator normally built from configuration.
type Option func(*options)

type options struct {
	source   source.Source
	analyzer analyzer.Analyzer
	notifier notifications.Service
	now      func() time.Time
	onToken  analyzer.TokenFunc
}

// WithSource replaces the configured source.
func WithSource(src source.Source) Option {
	return func(o *options) { o.source = src }
}

// WithAnalyzer replaces the configured analyzer backend.
func WithAnalyzer(a analyzer.Analyzer) Option {
	return func(o *options) { o.analyzer = a }
}

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock replaces time.Now for the poller.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTokenHandler receives streamed analyzer tokens.
func WithTokenHandler(fn analyzer.TokenFunc) Option {
	return func(o *options) { o.onToken = fn }
}

// Daemon coordinates the poller and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    state.Store
	history  *state.SQLiteStore
	ownsHist bool
	sink     *sink.Multi
	notifier notifications.Service
	metrics  *metrics.Metrics
	poller   *poller.Poller
	source   source.Source

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		metrics:  metrics.New(),
	}

	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	store, err := state.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	d.store = store

	if cfg.Output.History {
		if sqlite, isSQLite := store.(*state.SQLiteStore); isSQLite {
			d.history = sqlite
		} else {
			hist, err := state.OpenSQLite(cfg.StateDBPath())
			if err != nil {
				return nil, fmt.Errorf("open verdict history: %w", err)
			}
			d.history = hist
			d.ownsHist = true
		}
	}

	sinks, err := d.buildSinks()
	if err != nil {
		return nil, err
	}
	d.sink = sink.NewMulti(sinks...)

	src := o.source
	if src == nil {
		if src, err = source.New(cfg.Source); err != nil {
			return nil, fmt.Errorf("build source: %w", err)
		}
	}
	d.source = src

	an := o.analyzer
	if an == nil {
		if an, err = analyzer.New(cfg.Analyzer, o.onToken); err != nil {
			return nil, fmt.Errorf("build analyzer: %w", err)
		}
	}

	d.notifier = o.notifier
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}

	p, err := poller.New(poller.ConfigFrom(cfg), poller.Deps{
		Source:     src,
		Analyzer:   an,
		Sink:       d.sink,
		Notifier:   d.notifier,
		Store:      store,
		Escalation: analyzer.NewEscalation(cfg.Escalation.Markers),
		Metrics:    d.metrics,
		Logger:     logger,
		Now:        o.now,
	})
	if err != nil {
		return nil, err
	}
	d.poller = p
	ok = true
	return d, nil
}

func (d *Daemon) buildSinks() ([]sink.Sink, error) {
	var sinks []sink.Sink
	if path := d.cfg.Output.AnalysisFile; path != "" {
		file, err := sink.NewFile(path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, file)
	}
	if d.history != nil {
		sinks = append(sinks, sink.NewHistory(d.history))
	}
	if d.cfg.Archive.Enabled {
		archive, err := sink.NewArchive(d.cfg.Archive)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archive)
	}
	if len(sinks) == 0 {
		return nil, errors.New("no report sink configured; set output.analysis_file, output.history, or archive.enabled")
	}
	return sinks, nil
}

// Run acquires the lock, serves metrics when configured, and polls until ctx
// is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.acquire(); err != nil {
		return err
	}
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		d.release()
	}()

	srv, err := newHTTPServer(d.cfg, d, d.logger)
	if err != nil {
		return err
	}
	if err := srv.start(ctx); err != nil {
		return err
	}
	defer srv.stop()

	d.logPreflight(ctx)

	d.logger.Info("sentinel daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldSource, d.source.Name()),
		logging.String("sinks", fmt.Sprint(d.sink.Names())),
	)
	err = d.poller.Run(ctx)
	d.logger.Info("sentinel daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return err
}

// Once runs a single cycle from the stored cursor.
func (d *Daemon) Once(ctx context.Context) (poller.Outcome, time.Time, error) {
	if err := d.acquire(); err != nil {
		return "", time.Time{}, err
	}
	defer d.release()

	cursor := d.poller.Load(ctx)
	next, outcome := d.poller.RunCycle(ctx, cursor)
	return outcome, next, nil
}

// SetCursor overwrites the stored cursor. It refuses while the daemon runs.
func (d *Daemon) SetCursor(ctx context.Context, cursor time.Time) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()
	if err := d.store.SaveCursor(ctx, cursor.UTC()); err != nil {
		return err
	}
	d.logger.Info("cursor reset",
		logging.String(logging.FieldEventType, "cursor_reset"),
		logging.Time("cursor", cursor),
	)
	return nil
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if notifications.IsNoop(d.notifier) {
		return false, "notifications not configured", nil
	}
	if err := d.notifier.Test(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// RecentVerdicts returns the newest history rows, or nil when history is off.
func (d *Daemon) RecentVerdicts(ctx context.Context, limit int) ([]state.VerdictRecord, error) {
	if d.history == nil {
		return nil, nil
	}
	return d.history.RecentVerdicts(ctx, limit)
}

// Metrics exposes the collectors.
func (d *Daemon) Metrics() *metrics.Metrics { return d.metrics }

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	var errs []error
	if d.sink != nil {
		errs = append(errs, d.sink.Close())
	}
	if d.ownsHist && d.history != nil {
		errs = append(errs, d.history.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

func (d *Daemon) acquire() error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	return nil
}

func (d *Daemon) release() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no sentinel process is running"),
		)
	}
}
