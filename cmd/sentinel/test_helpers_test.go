package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

type cliTestEnv struct {
	baseDir      string
	configPath   string
	logPath      string
	analysisPath string
	analyzer     *httptest.Server
	calls        *atomic.Int32
}

func setupCLITestEnv(t *testing.T, verdict string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"GRAYLOG_API_URL", "GRAYLOG_API_TOKEN", "GRAYLOG_STREAM_ID", "OLLAMA_API_URL", "OLLAMA_HOST", "OLLAMA_MODEL", "CHECK_INTERVAL_SECONDS", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "test-model:latest"}}})
		case "/api/generate":
			calls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{"response": verdict, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	env := &cliTestEnv{
		baseDir:      base,
		configPath:   filepath.Join(base, "config.toml"),
		logPath:      filepath.Join(base, "system.log"),
		analysisPath: filepath.Join(base, "state", "llm_analysis_output.txt"),
		analyzer:     server,
		calls:        calls,
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[source]
provider = "logfile"
log_path = %q

[analyzer]
base_url = %q
model = "test-model"
timeout_seconds = 5

[output]
analysis_file = %q
history = true

[notifications]
provider = "none"

[state]
backend = "sqlite"
`, filepath.Join(env.baseDir, "state"), filepath.Join(env.baseDir, "logs"), env.logPath, env.analyzer.URL, env.analysisPath)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) writeLog(t *testing.T, lines ...string) {
	t.Helper()
	if err := os.WriteFile(env.logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func recentLine(ago time.Duration, rest string) string {
	return time.Now().Add(-ago).UTC().Format(time.RFC3339) + " " + rest
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\n%s", substr, output)
	}
}

func newLockHolder(t *testing.T, path string) func() {
	t.Helper()
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("hold lock: locked=%v err=%v", locked, err)
	}
	return func() { _ = lock.Unlock() }
}
