package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSource(); err != nil {
		return err
	}
	c.normalizeAnalyzer()
	if err := c.normalizePoller(); err != nil {
		return err
	}
	c.normalizeEscalation()
	c.normalizeNotifications()
	c.normalizeArchive()
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	if c.State.Backend == "" {
		c.State.Backend = defaultStateBackend
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Output.AnalysisFile) != "" {
		if c.Output.AnalysisFile, err = expandPath(c.Output.AnalysisFile); err != nil {
			return fmt.Errorf("output.analysis_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSource() error {
	c.Source.Provider = strings.ToLower(strings.TrimSpace(c.Source.Provider))
	if c.Source.Provider == "" {
		c.Source.Provider = defaultSourceProvider
	}

	switch c.Source.Provider {
	case "graylog":
		lookupEnv(&c.Source.URL, "GRAYLOG_API_URL")
		lookupEnv(&c.Source.Token, "GRAYLOG_API_TOKEN")
		lookupEnv(&c.Source.StreamID, "GRAYLOG_STREAM_ID")
		c.Source.URL = GraylogAPIURL(c.Source.URL)
	case "homeassistant":
		lookupEnv(&c.Source.URL, "HASS_URL")
		lookupEnv(&c.Source.Token, "HASS_TOKEN")
		c.Source.URL = strings.TrimRight(strings.TrimSpace(c.Source.URL), "/")
	case "logfile":
		if strings.TrimSpace(c.Source.LogPath) != "" {
			expanded, err := expandPath(c.Source.LogPath)
			if err != nil {
				return fmt.Errorf("source.log_path: %w", err)
			}
			c.Source.LogPath = expanded
		}
	}

	c.Source.Token = strings.TrimSpace(c.Source.Token)
	c.Source.StreamID = strings.TrimSpace(c.Source.StreamID)
	c.Source.Query = strings.TrimSpace(c.Source.Query)
	entities := c.Source.Entities[:0]
	for _, entity := range c.Source.Entities {
		if trimmed := strings.TrimSpace(entity); trimmed != "" {
			entities = append(entities, trimmed)
		}
	}
	c.Source.Entities = entities
	if c.Source.Limit <= 0 {
		c.Source.Limit = defaultSourceLimit
	}
	if c.Source.MaxLines <= 0 {
		c.Source.MaxLines = defaultSourceMaxLines
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = defaultSourceTimeoutSeconds
	}
	return nil
}

// GraylogAPIURL makes sure a Graylog base URL targets the REST API rather than
// the web UI by appending /api when missing.
func GraylogAPIURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	if strings.HasSuffix(trimmed, "/api") {
		return trimmed
	}
	return trimmed + "/api"
}

func (c *Config) normalizeAnalyzer() {
	c.Analyzer.Provider = strings.ToLower(strings.TrimSpace(c.Analyzer.Provider))
	if c.Analyzer.Provider == "" {
		c.Analyzer.Provider = defaultAnalyzerProvider
	}
	c.Analyzer.Mode = strings.ToLower(strings.TrimSpace(c.Analyzer.Mode))
	if c.Analyzer.Mode == "" {
		c.Analyzer.Mode = defaultAnalyzerMode
	}

	c.Analyzer.BaseURL = strings.TrimSpace(c.Analyzer.BaseURL)
	if c.Analyzer.Provider == "ollama" {
		if c.Analyzer.BaseURL == "" {
			if value, ok := os.LookupEnv("OLLAMA_API_URL"); ok && strings.TrimSpace(value) != "" {
				c.Analyzer.BaseURL = strings.TrimSpace(value)
			} else if host, ok := os.LookupEnv("OLLAMA_HOST"); ok && strings.TrimSpace(host) != "" {
				c.Analyzer.BaseURL = ollamaHostURL(strings.TrimSpace(host))
			}
		}
		if c.Analyzer.BaseURL == "" {
			c.Analyzer.BaseURL = defaultOllamaBaseURL
		}
		// OLLAMA_API_URL historically pointed at the generate endpoint itself.
		c.Analyzer.BaseURL = strings.TrimSuffix(strings.TrimRight(c.Analyzer.BaseURL, "/"), "/api/generate")
	} else if c.Analyzer.BaseURL == "" {
		c.Analyzer.BaseURL = defaultOpenAIBaseURL
	}

	c.Analyzer.Model = strings.TrimSpace(c.Analyzer.Model)
	lookupEnv(&c.Analyzer.Model, "OLLAMA_MODEL")
	if c.Analyzer.Model == "" {
		c.Analyzer.Model = defaultAnalyzerModel
	}
	c.Analyzer.APIKey = strings.TrimSpace(c.Analyzer.APIKey)
	c.Analyzer.Referer = strings.TrimSpace(c.Analyzer.Referer)
	c.Analyzer.Title = strings.TrimSpace(c.Analyzer.Title)
	c.Analyzer.SystemPrompt = strings.TrimSpace(c.Analyzer.SystemPrompt)
	if c.Analyzer.SystemPrompt == "" {
		c.Analyzer.SystemPrompt = DefaultSystemPrompt
	}
	if c.Analyzer.NumCtx < 0 {
		c.Analyzer.NumCtx = 0
	}
	if c.Analyzer.TimeoutSeconds <= 0 {
		c.Analyzer.TimeoutSeconds = defaultBlockingTimeoutSeconds
		if c.Analyzer.Mode == "stream" {
			c.Analyzer.TimeoutSeconds = defaultStreamingTimeoutSeconds
		}
	}
}

func ollamaHostURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	if strings.Contains(host, ":") {
		return "http://" + host
	}
	return "http://" + host + ":11434"
}

func (c *Config) normalizePoller() error {
	if c.Poller.IntervalSeconds <= 0 {
		if value, ok := os.LookupEnv("CHECK_INTERVAL_SECONDS"); ok && strings.TrimSpace(value) != "" {
			seconds, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("CHECK_INTERVAL_SECONDS: %w", err)
			}
			c.Poller.IntervalSeconds = seconds
		}
	}
	if c.Poller.IntervalSeconds <= 0 {
		c.Poller.IntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Poller.LookbackMinutes <= 0 {
		c.Poller.LookbackMinutes = defaultLookbackMinutes
	}
	if c.Poller.HeartbeatIntervalMinutes < 0 {
		c.Poller.HeartbeatIntervalMinutes = 0
	}
	return nil
}

func (c *Config) normalizeEscalation() {
	markers := make([]string, 0, len(c.Escalation.Markers))
	seen := make(map[string]struct{}, len(c.Escalation.Markers))
	for _, marker := range c.Escalation.Markers {
		trimmed := strings.TrimSpace(marker)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		markers = append(markers, trimmed)
	}
	c.Escalation.Markers = markers
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	n.Provider = strings.ToLower(strings.TrimSpace(n.Provider))
	lookupEnv(&n.NtfyTopic, "NTFY_TOPIC")
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	n.HAURL = strings.TrimRight(strings.TrimSpace(n.HAURL), "/")
	n.HAToken = strings.TrimSpace(n.HAToken)
	n.HAService = strings.TrimSpace(n.HAService)
	if n.HAService == "" {
		n.HAService = defaultHAService
	}
	if n.Provider == "" {
		switch {
		case n.NtfyTopic != "":
			n.Provider = "ntfy"
		case n.HAURL != "" && n.HAToken != "":
			n.Provider = "homeassistant"
		default:
			n.Provider = "none"
		}
	}
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeArchive() {
	a := &c.Archive
	a.Endpoint = strings.TrimSpace(a.Endpoint)
	a.Bucket = strings.TrimSpace(a.Bucket)
	a.AccessKey = strings.TrimSpace(a.AccessKey)
	a.SecretKey = strings.TrimSpace(a.SecretKey)
	a.Prefix = strings.Trim(strings.TrimSpace(a.Prefix), "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnv(target *string, key string) {
	if strings.TrimSpace(*target) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}
