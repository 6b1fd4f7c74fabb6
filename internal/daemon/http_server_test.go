package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"sentinel/internal/logging"
	"sentinel/internal/testsupport"
)

func TestHTTPServerServesStatusAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.Bind = "127.0.0.1:0"
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	srv, err := newHTTPServer(cfg, d, logging.NewNop())
	if err != nil || srv == nil {
		t.Fatalf("newHTTPServer: %v", err)
	}
	if err := srv.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.stop()

	resp, err := http.Get("http://" + srv.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	resp.Body.Close()
	if status.Source != "logfile" || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}

	resp, err = http.Post("http://"+srv.Addr()+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatalf("POST status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "sentinel_cycles_total") && !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("unexpected metrics body:\n%s", body)
	}
}

func TestHTTPServerDisabledWithoutBind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv, err := newHTTPServer(cfg, &Daemon{}, nil)
	if err != nil || srv != nil {
		t.Fatalf("expected no server, got %v %v", srv, err)
	}
	if err := srv.start(context.Background()); err != nil {
		t.Fatalf("nil server start: %v", err)
	}
	srv.stop()
}
