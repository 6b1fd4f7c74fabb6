package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir" yaml:"state_dir"`
	LogDir   string `toml:"log_dir" yaml:"log_dir"`
}

// Source selects and configures the log/state source that is polled.
type Source struct {
	Provider       string   `toml:"provider" yaml:"provider"`
	URL            string   `toml:"url" yaml:"url"`
	Token          string   `toml:"token" yaml:"token"`
	StreamID       string   `toml:"stream_id" yaml:"stream_id"`
	Query          string   `toml:"query" yaml:"query"`
	Limit          int      `toml:"limit" yaml:"limit"`
	Entities       []string `toml:"entities" yaml:"entities"`
	LogPath        string   `toml:"log_path" yaml:"log_path"`
	MaxLines       int      `toml:"max_lines" yaml:"max_lines"`
	IncludeInfo    bool     `toml:"include_info" yaml:"include_info"`
	TimeoutSeconds int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Analyzer contains the LLM inference endpoint settings.
type Analyzer struct {
	Provider       string `toml:"provider" yaml:"provider"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	Model          string `toml:"model" yaml:"model"`
	Mode           string `toml:"mode" yaml:"mode"`
	SystemPrompt   string `toml:"system_prompt" yaml:"system_prompt"`
	NumCtx         int    `toml:"num_ctx" yaml:"num_ctx"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	Referer        string `toml:"referer" yaml:"referer"`
	Title          string `toml:"title" yaml:"title"`
}

// Poller contains loop timing.
type Poller struct {
	IntervalSeconds          int `toml:"interval_seconds" yaml:"interval_seconds"`
	LookbackMinutes          int `toml:"lookback_minutes" yaml:"lookback_minutes"`
	HeartbeatIntervalMinutes int `toml:"heartbeat_interval_minutes" yaml:"heartbeat_interval_minutes"`
}

// Escalation configures the verdict markers that trigger an alert.
type Escalation struct {
	Markers []string `toml:"markers" yaml:"markers"`
}

// Output contains local persistence destinations for verdicts.
type Output struct {
	AnalysisFile string `toml:"analysis_file" yaml:"analysis_file"`
	History      bool   `toml:"history" yaml:"history"`
}

// Archive configures the optional S3-compatible verdict archive.
type Archive struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Endpoint  string `toml:"endpoint" yaml:"endpoint"`
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
	Bucket    string `toml:"bucket" yaml:"bucket"`
	Prefix    string `toml:"prefix" yaml:"prefix"`
	UseSSL    bool   `toml:"use_ssl" yaml:"use_ssl"`
}

// Notifications contains push notification settings.
type Notifications struct {
	Provider       string `toml:"provider" yaml:"provider"`
	NtfyTopic      string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	HAURL          string `toml:"ha_url" yaml:"ha_url"`
	HAToken        string `toml:"ha_token" yaml:"ha_token"`
	HAService      string `toml:"ha_service" yaml:"ha_service"`
	RequestTimeout int    `toml:"request_timeout" yaml:"request_timeout"`
}

// State selects where the cursor and heartbeat watermarks live.
type State struct {
	Backend string `toml:"backend" yaml:"backend"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Bind string `toml:"bind" yaml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" yaml:"format"`
	Level         string `toml:"level" yaml:"level"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Config encapsulates all configuration values for Sentinel. It is loaded
// once at startup and treated as read-only afterwards.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Source: which log/state API is polled and how
//   - Analyzer: LLM endpoint, model, and streaming mode
//   - Poller: interval, first-run lookback, heartbeat interval
//   - Escalation: verdict markers that raise an alert
//   - Output/Archive: where verdicts are persisted
//   - Notifications: ntfy or Home Assistant push settings
//   - State: cursor store backend
//   - Metrics: Prometheus bind address
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Source        Source        `toml:"source" yaml:"source"`
	Analyzer      Analyzer      `toml:"analyzer" yaml:"analyzer"`
	Poller        Poller        `toml:"poller" yaml:"poller"`
	Escalation    Escalation    `toml:"escalation" yaml:"escalation"`
	Output        Output        `toml:"output" yaml:"output"`
	Archive       Archive       `toml:"archive" yaml:"archive"`
	Notifications Notifications `toml:"notifications" yaml:"notifications"`
	State         State         `toml:"state" yaml:"state"`
	Metrics       Metrics       `toml:"metrics" yaml:"metrics"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized, and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := decode(resolvedPath, data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		return decoder.Decode(cfg)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	for _, name := range []string{"sentinel.toml", "sentinel.yaml", "sentinel.yml"} {
		projectPath, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if file := strings.TrimSpace(c.Output.AnalysisFile); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return fmt.Errorf("create directory for %q: %w", file, err)
		}
	}
	return nil
}

// PollInterval returns the sleep between cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalSeconds) * time.Second
}

// Lookback returns the first-run window size.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Poller.LookbackMinutes) * time.Minute
}

// HeartbeatInterval returns the minimum time between "still alive"
// notifications. Zero disables heartbeats.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Poller.HeartbeatIntervalMinutes) * time.Minute
}

// FetchTimeout bounds a single source request.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// AnalysisTimeout bounds a single analyzer request.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analyzer.TimeoutSeconds) * time.Second
}

// StateDBPath returns the sqlite database path used by the sqlite backend and
// the verdict history.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "sentinel.db")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sentinel.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
