package testsupport

import (
	"path/filepath"
	"testing"

	"sentinel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config seeded with unique temp directories per
// test. It points the source at a local log file and disables notifications,
// then applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Output.AnalysisFile = filepath.Join(base, "state", "llm_analysis_output.txt")
	cfgVal.Source.Provider = "logfile"
	cfgVal.Source.LogPath = filepath.Join(base, "system.log")
	cfgVal.Source.TimeoutSeconds = 5
	cfgVal.Analyzer.BaseURL = "http://127.0.0.1:0"
	cfgVal.Analyzer.Model = "test-model"
	cfgVal.Analyzer.TimeoutSeconds = 5
	cfgVal.Poller.IntervalSeconds = 1
	cfgVal.Notifications.Provider = "none"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithAnalyzerURL points the analyzer at a test server.
func WithAnalyzerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analyzer.BaseURL = url
	}
}

// WithStateBackend selects the cursor store backend.
func WithStateBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.State.Backend = backend
	}
}

// WithNtfyTopic enables ntfy notifications against the given URL.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.Provider = "ntfy"
		b.cfg.Notifications.NtfyTopic = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
