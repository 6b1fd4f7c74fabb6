package main

import (
	"os"
	"strings"

	"sentinel/internal/config"
	"sentinel/internal/logging"
)

const configEnvVar = "SENTINEL_CONFIG"

func configPathFromEnv() string {
	return strings.TrimSpace(os.Getenv(configEnvVar))
}

func startupAttrs(cfg *config.Config, configPath string, exists bool, logPath string) []logging.Attr {
	if cfg == nil {
		return nil
	}
	attrs := []logging.Attr{
		logging.String("config", configPath),
		logging.Bool("config_found", exists),
		logging.String(logging.FieldSource, cfg.Source.Provider),
		logging.String("model", cfg.Analyzer.Model),
		logging.String("mode", cfg.Analyzer.Mode),
		logging.Duration("interval", cfg.PollInterval()),
		logging.String("state_backend", cfg.State.Backend),
		logging.String("notifications", cfg.Notifications.Provider),
	}
	if logPath != "" {
		attrs = append(attrs, logging.String("log_file", logPath))
	}
	if cfg.Metrics.Bind != "" {
		attrs = append(attrs, logging.String("metrics_bind", cfg.Metrics.Bind))
	}
	return attrs
}
