package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"sentinel/internal/analyzer"
	"sentinel/internal/daemon"
	"sentinel/internal/poller"
	"sentinel/internal/preflight"
	"sentinel/internal/state"
	"sentinel/internal/testsupport"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", 12, false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, 12, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestStatusPanelAlignsToWidestLabel(t *testing.T) {
	panel := newStatusPanel("Checks")
	panel.add("a", statusOK, "")
	panel.add("Analyzer endpoint", statusWarn, "slow")
	lines := panel.render(false)
	if len(lines) != 3 || lines[0] != "Checks" {
		t.Fatalf("unexpected panel %q", lines)
	}
	if want := statusIndent + "a:                 [OK]"; lines[1] != want {
		t.Fatalf("got %q want %q", lines[1], want)
	}
	if want := statusIndent + "Analyzer endpoint: [WARN] slow"; lines[2] != want {
		t.Fatalf("got %q want %q", lines[2], want)
	}
}

func TestOutcomeAndVerdictKinds(t *testing.T) {
	outcomes := map[poller.Outcome]statusKind{
		poller.OutcomeProcessed:      statusOK,
		poller.OutcomeEmpty:          statusOK,
		poller.OutcomeAnalysisFailed: statusWarn,
		poller.OutcomeCancelled:      statusWarn,
		poller.OutcomeFetchFailed:    statusError,
		poller.OutcomeSinkFailed:     statusError,
		poller.Outcome("unknown"):    statusInfo,
	}
	for outcome, want := range outcomes {
		if got := outcomeKind(outcome); got != want {
			t.Errorf("outcomeKind(%s) = %v, want %v", outcome, got, want)
		}
	}
	if verdictKind(analyzer.StatusError, true) != statusError {
		t.Error("analyzer failure should outrank escalation")
	}
	if verdictKind(analyzer.StatusOK, true) != statusWarn {
		t.Error("escalated verdict should warn")
	}
	if verdictKind(analyzer.StatusOK, false) != statusOK {
		t.Error("routine verdict should be ok")
	}
	if checkKind(preflight.Result{Passed: false, Optional: true}) != statusWarn {
		t.Error("optional failure should warn")
	}
	if checkKind(preflight.Result{Passed: false}) != statusError {
		t.Error("required failure should error")
	}
	if cursorKind(2*time.Hour, time.Minute) != statusWarn || cursorKind(30*time.Minute, time.Minute) != statusOK {
		t.Error("unexpected cursor lag grading")
	}
}

func TestCycleResultJSONFields(t *testing.T) {
	cursor := time.Date(2026, 7, 1, 12, 0, 0, 500, time.UTC)
	result := newCycleResult(poller.OutcomeSinkFailed, cursor)
	if result.Status != "error" || !result.incomplete() {
		t.Fatalf("expected sink failure to be incomplete, got %+v", result)
	}
	if result.Cursor != "2026-07-01T12:00:00.0000005Z" {
		t.Fatalf("unexpected cursor %q", result.Cursor)
	}
	if newCycleResult(poller.OutcomeAnalysisFailed, cursor).incomplete() {
		t.Fatal("analysis failure still advances and should not be incomplete")
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", 12, true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusLinesReportLagAndVerdicts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	status := daemon.Status{
		Running:       true,
		LastOutcome:   poller.OutcomeFetchFailed,
		Source:        "logfile",
		Cursor:        now.Add(-90 * time.Second),
		HasCursor:     true,
		LastHeartbeat: now.Add(-time.Hour),
		NextHeartbeat: now.Add(3 * time.Hour),
		StateBackend:  "file",
		HistoryPath:   cfg.StateDBPath(),
		Verdicts:      state.VerdictCounts{Total: 4, Escalated: 1, Errors: 1, Last: now.Add(-time.Minute)},
		Errors:        []string{"heartbeat: unreadable"},
	}

	lines := statusLines(cfg, status, false, now)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"[OK] Running",
		"[ERROR] fetch_failed",
		"(1m30s behind)",
		"logfile " + cfg.Source.LogPath,
		"next after 2026-07-01T15:00:00Z",
		"[WARN] 4 total, 1 escalated, 1 errors",
		"[ERROR] heartbeat: unreadable",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in status output:\n%s", want, joined)
		}
	}
}

func TestStatusLinesWithoutCursorOrHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Poller.HeartbeatIntervalMinutes = 0

	lines := statusLines(cfg, daemon.Status{StateBackend: "file"}, false, time.Now())
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "not set; first run starts at now - lookback") {
		t.Fatalf("expected unset cursor line:\n%s", joined)
	}
	if !strings.Contains(joined, "Heartbeat:") || !strings.Contains(joined, "disabled") {
		t.Fatalf("expected disabled heartbeat line:\n%s", joined)
	}
	if strings.Contains(joined, "Verdicts:") {
		t.Fatalf("expected verdict line hidden without history:\n%s", joined)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
