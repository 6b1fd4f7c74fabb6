package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sentinel/internal/metrics"
)

func TestMetricsRecordCycleData(t *testing.T) {
	m := metrics.New()
	m.ObserveCycle("processed", 2*time.Second)
	m.ObserveCycle("empty", 10*time.Millisecond)
	m.ObserveCycle("empty", 10*time.Millisecond)
	m.AddRecords(3)
	m.AddRecords(0)
	m.ObserveVerdict("ok", true)
	m.HeartbeatSent()
	m.SetCursor(time.Unix(1_700_000_000, 0))

	expected := `
# HELP sentinel_cycles_total Poll cycles by outcome
# TYPE sentinel_cycles_total counter
sentinel_cycles_total{outcome="empty"} 2
sentinel_cycles_total{outcome="processed"} 1
# HELP sentinel_records_fetched_total Records returned by the source
# TYPE sentinel_records_fetched_total counter
sentinel_records_fetched_total 3
# HELP sentinel_verdicts_total Analyzer verdicts by status and escalation
# TYPE sentinel_verdicts_total counter
sentinel_verdicts_total{escalated="true",status="ok"} 1
# HELP sentinel_heartbeats_total Heartbeat notifications sent
# TYPE sentinel_heartbeats_total counter
sentinel_heartbeats_total 1
# HELP sentinel_cursor_timestamp_seconds Unix timestamp of the current cursor
# TYPE sentinel_cursor_timestamp_seconds gauge
sentinel_cursor_timestamp_seconds 1.7e+09
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"sentinel_cycles_total", "sentinel_records_fetched_total", "sentinel_verdicts_total",
		"sentinel_heartbeats_total", "sentinel_cursor_timestamp_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.CollectAndCount(m.Registry(), "sentinel_cycle_duration_seconds"); got != 1 {
		t.Fatalf("expected histogram series, got %d", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveCycle("empty", time.Second)
	m.AddRecords(1)
	m.ObserveVerdict("ok", false)
	m.HeartbeatSent()
	m.SetCursor(time.Now())
}

func TestMuxServesMetricsAndHealth(t *testing.T) {
	m := metrics.New()
	m.HeartbeatSent()
	server := httptest.NewServer(m.NewMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "sentinel_heartbeats_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status %d", resp.StatusCode)
	}
}
