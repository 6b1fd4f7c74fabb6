package config

import (
	"errors"
	"fmt"
	"strings"
)

// SourceProviders lists the source provider names the configuration accepts.
var SourceProviders = []string{"graylog", "homeassistant", "logfile"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateAnalyzer(); err != nil {
		return err
	}
	if err := c.validatePoller(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	switch c.State.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("state.backend must be file or sqlite, got %q", c.State.Backend)
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Provider {
	case "graylog":
		if c.Source.URL == "" {
			return errors.New("source.url is required for graylog. Set GRAYLOG_API_URL or edit the config (create with 'sentinel config init')")
		}
		if c.Source.Token == "" {
			return errors.New("source.token is required for graylog. Set GRAYLOG_API_TOKEN or edit the config")
		}
		if c.Source.StreamID == "" && c.Source.Query == "" {
			return errors.New("source.stream_id or source.query must be set for graylog")
		}
	case "homeassistant":
		if c.Source.URL == "" || c.Source.Token == "" {
			return errors.New("source.url and source.token are required for homeassistant (or HASS_URL/HASS_TOKEN)")
		}
		if len(c.Source.Entities) == 0 {
			return errors.New("source.entities must list at least one entity for homeassistant")
		}
	case "logfile":
		if strings.TrimSpace(c.Source.LogPath) == "" {
			return errors.New("source.log_path is required for logfile")
		}
	default:
		return fmt.Errorf("source.provider must be one of %s, got %q", strings.Join(SourceProviders, ", "), c.Source.Provider)
	}
	return nil
}

func (c *Config) validateAnalyzer() error {
	switch c.Analyzer.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("analyzer.provider must be ollama or openai, got %q", c.Analyzer.Provider)
	}
	switch c.Analyzer.Mode {
	case "stream", "blocking":
	default:
		return fmt.Errorf("analyzer.mode must be stream or blocking, got %q", c.Analyzer.Mode)
	}
	if c.Analyzer.Model == "" {
		return errors.New("analyzer.model must be set")
	}
	return nil
}

func (c *Config) validatePoller() error {
	if c.Poller.IntervalSeconds <= 0 {
		return errors.New("poller.interval_seconds must be positive")
	}
	if c.Poller.LookbackMinutes <= 0 {
		return errors.New("poller.lookback_minutes must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Provider {
	case "none":
	case "ntfy":
		if c.Notifications.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when provider is ntfy")
		}
	case "homeassistant":
		if c.Notifications.HAURL == "" || c.Notifications.HAToken == "" {
			return errors.New("notifications.ha_url and notifications.ha_token must be set when provider is homeassistant")
		}
	default:
		return fmt.Errorf("notifications.provider must be ntfy, homeassistant, or none, got %q", c.Notifications.Provider)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Endpoint == "" || c.Archive.Bucket == "" {
		return errors.New("archive.endpoint and archive.bucket must be set when archive.enabled is true")
	}
	if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
		return errors.New("archive.access_key and archive.secret_key must be set when archive.enabled is true")
	}
	return nil
}
