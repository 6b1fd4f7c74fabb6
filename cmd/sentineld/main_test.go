package main

import (
	"testing"

	"sentinel/internal/logging"
	"sentinel/internal/testsupport"
)

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(configEnvVar, "  /etc/sentinel/config.toml ")
	if got := configPathFromEnv(); got != "/etc/sentinel/config.toml" {
		t.Fatalf("unexpected path %q", got)
	}
	t.Setenv(configEnvVar, "")
	if got := configPathFromEnv(); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}

func TestStartupAttrs(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	attrs := startupAttrs(cfg, "/tmp/config.toml", true, "")
	if !logging.HasAttrKey(attrs, logging.FieldSource) {
		t.Fatalf("expected source attr in %v", attrs)
	}
	if logging.HasAttrKey(attrs, "log_file") || logging.HasAttrKey(attrs, "metrics_bind") {
		t.Fatalf("unexpected optional attrs in %v", attrs)
	}

	cfg.Metrics.Bind = "127.0.0.1:9464"
	attrs = startupAttrs(cfg, "/tmp/config.toml", true, "/tmp/run.log")
	if !logging.HasAttrKey(attrs, "log_file") || !logging.HasAttrKey(attrs, "metrics_bind") {
		t.Fatalf("expected optional attrs in %v", attrs)
	}

	if startupAttrs(nil, "", false, "") != nil {
		t.Fatal("expected nil attrs for nil config")
	}
}
