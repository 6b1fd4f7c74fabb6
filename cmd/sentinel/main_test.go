package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
	"sentinel/internal/state"
)

func TestOnceStatusAndHistory(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")
	last := time.Now().Add(-2 * time.Minute).UTC().Truncate(time.Second)
	env.writeLog(t,
		last.Add(-time.Minute).Format(time.RFC3339)+" ERROR ata1: failed command READ FPDMA",
		last.Format(time.RFC3339)+" WARN smartd: reallocated sectors",
	)

	out, _, err := runCLI(t, []string{"once", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode once json: %v\n%s", err, out)
	}
	if payload["outcome"] != "processed" {
		t.Fatalf("expected processed cycle, got %+v", payload)
	}
	cursor, err := time.Parse(time.RFC3339Nano, payload["cursor"])
	if err != nil || !cursor.Equal(last) {
		t.Fatalf("expected cursor at last record %s, got %q (%v)", last, payload["cursor"], err)
	}
	if env.calls.Load() != 1 {
		t.Fatalf("expected one analyzer call, got %d", env.calls.Load())
	}
	data, err := os.ReadFile(env.analysisPath)
	if err != nil {
		t.Fatalf("read analysis file: %v", err)
	}
	requireContains(t, string(data), "STATUS: OK")
	requireContains(t, string(data), "Records: 2")

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "1 total, 0 escalated, 0 errors")
	requireContains(t, out, "logfile "+env.logPath)

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var rows []state.VerdictRecord
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode history json: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].Text != "NORMAL" || rows[0].RecordCount != 2 {
		t.Fatalf("unexpected history rows %+v", rows)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, "NORMAL")
}

func TestOnceTextOutputOnEmptyWindow(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")
	env.writeLog(t, recentLine(time.Hour, "ERROR outside the lookback window"))

	out, _, err := runCLI(t, []string{"once"}, env.configPath)
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	requireContains(t, out, "Outcome: empty")
	if env.calls.Load() != 0 {
		t.Fatalf("expected analyzer to be skipped, got %d calls", env.calls.Load())
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status daemon.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.Running || status.HasCursor {
		t.Fatalf("expected fresh state, got %+v", status)
	}
	if status.Source != "logfile" || status.StateBackend != "sqlite" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestCursorResetAndShow(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")

	out, _, err := runCLI(t, []string{"cursor", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("cursor show: %v", err)
	}
	requireContains(t, out, "Cursor not set")

	target := "2026-07-01T08:00:00Z"
	out, _, err = runCLI(t, []string{"cursor", "reset", "--to", target}, env.configPath)
	if err != nil {
		t.Fatalf("cursor reset: %v", err)
	}
	requireContains(t, out, "Cursor set to")

	out, _, err = runCLI(t, []string{"cursor", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("cursor show: %v", err)
	}
	shown, err := state.ParseTimestamp(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("parse shown cursor %q: %v", out, err)
	}
	if want, _ := time.Parse(time.RFC3339, target); !shown.Equal(want) {
		t.Fatalf("expected cursor %s, got %s", want, shown)
	}

	if _, _, err := runCLI(t, []string{"cursor", "reset", "--to", target, "--ago", "1h"}, env.configPath); err == nil {
		t.Fatal("expected conflicting flags to fail")
	}
}

func TestResolveCursorTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Poller.LookbackMinutes = 15
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	got, err := resolveCursorTarget(&cfg, "", 0, now)
	if err != nil || !got.Equal(now.Add(-15*time.Minute)) {
		t.Fatalf("expected lookback default, got %s (%v)", got, err)
	}
	got, err = resolveCursorTarget(&cfg, "", 2*time.Hour, now)
	if err != nil || !got.Equal(now.Add(-2*time.Hour)) {
		t.Fatalf("expected --ago target, got %s (%v)", got, err)
	}
	if _, err := resolveCursorTarget(&cfg, "2026-07-02T00:00:00Z", 0, now); err == nil {
		t.Fatal("expected future cursor to be rejected")
	}
	if _, err := resolveCursorTarget(&cfg, "yesterday", 0, now); err == nil {
		t.Fatal("expected malformed cursor to be rejected")
	}
}

func TestTestNotifyWithoutProvider(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "notifications not configured")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")
	target := filepath.Join(env.baseDir, "generated", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected existing config to be refused without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Config path: "+env.configPath)

	if _, _, err := runCLI(t, []string{"config", "validate"}, target); err == nil {
		t.Fatal("expected sample config without graylog credentials to fail validation")
	}
}

func TestOnceRefusedWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	holder := newLockHolder(t, cfg.LockPath())
	defer holder()

	_, _, err = runCLI(t, []string{"once"}, env.configPath)
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestSummarizeVerdict(t *testing.T) {
	if got := summarizeVerdict("ALERT:\n  disk   failing", 80); got != "ALERT: disk failing" {
		t.Fatalf("unexpected summary %q", got)
	}
	got := summarizeVerdict(strings.Repeat("x", 100), 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncated summary, got %q", got)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")
	env.writeLog(t, recentLine(time.Minute, "INFO boot"))

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK] "+env.logPath+" (readable)")
	requireContains(t, out, "[OK] model test-model available")

	if err := os.Remove(env.logPath); err != nil {
		t.Fatalf("remove log: %v", err)
	}
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected missing log file to fail the check\n%s", out)
	}
	requireContains(t, out, "[ERROR]")
}

func TestLogsCommandPrintsNewestRunLog(t *testing.T) {
	env := setupCLITestEnv(t, "NORMAL")
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	runLog := filepath.Join(logDir, "sentinel-20260701T080000Z-abcd.log")
	if err := os.WriteFile(runLog, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write run log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
