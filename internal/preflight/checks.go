package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sentinel/internal/config"
	"sentinel/internal/source/httpclient"
)

const checkTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSource verifies the configured source answers with valid credentials.
// It does not run a search; a reachable API with a bad stream id still passes.
func CheckSource(ctx context.Context, cfg config.Source) Result {
	name := "Source (" + cfg.Provider + ")"

	switch cfg.Provider {
	case "logfile":
		file, err := os.Open(cfg.LogPath)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.LogPath, err)}
		}
		_ = file.Close()
		return Result{Name: name, Passed: true, Detail: cfg.LogPath + " (readable)"}

	case "graylog":
		client := httpclient.New(config.GraylogAPIURL(cfg.URL),
			httpclient.WithBasicAuth(cfg.Token, "token"),
			httpclient.WithTimeout(checkTimeout),
		)
		var system struct {
			Version  string `json:"version"`
			Hostname string `json:"hostname"`
		}
		if err := getJSON(ctx, client, "/system", &system); err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		detail := "Reachable"
		if system.Version != "" {
			detail = fmt.Sprintf("Reachable (Graylog %s)", system.Version)
		}
		return Result{Name: name, Passed: true, Detail: detail}

	case "homeassistant":
		client := httpclient.New(cfg.URL,
			httpclient.WithBearer(cfg.Token),
			httpclient.WithTimeout(checkTimeout),
		)
		var ping struct {
			Message string `json:"message"`
		}
		if err := getJSON(ctx, client, "/api/", &ping); err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		return Result{Name: name, Passed: true, Detail: "Reachable"}

	default:
		return Result{Name: name, Detail: "unknown provider"}
	}
}

// CheckAnalyzer verifies the inference endpoint is reachable and, for Ollama,
// that the configured model has been pulled.
func CheckAnalyzer(ctx context.Context, cfg config.Analyzer) Result {
	name := "Analyzer (" + cfg.Provider + ")"

	switch cfg.Provider {
	case "ollama":
		client := httpclient.New(cfg.BaseURL, httpclient.WithTimeout(checkTimeout))
		var tags struct {
			Models []struct {
				Name string `json:"name"`
			} `json:"models"`
		}
		if err := getJSON(ctx, client, "/api/tags", &tags); err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		for _, m := range tags.Models {
			if m.Name == cfg.Model || strings.TrimSuffix(m.Name, ":latest") == cfg.Model {
				return Result{Name: name, Passed: true, Detail: fmt.Sprintf("model %s available", cfg.Model)}
			}
		}
		return Result{Name: name, Detail: fmt.Sprintf("model %s not found (run 'ollama pull %s')", cfg.Model, cfg.Model)}

	case "openai":
		opts := []httpclient.Option{httpclient.WithTimeout(checkTimeout)}
		if cfg.APIKey != "" {
			opts = append(opts, httpclient.WithBearer(cfg.APIKey))
		}
		client := httpclient.New(modelsBaseURL(cfg.BaseURL), opts...)
		var models struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := getJSON(ctx, client, "/models", &models); err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%d models)", len(models.Data))}

	default:
		return Result{Name: name, Detail: "unknown provider"}
	}
}

func modelsBaseURL(chatURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(chatURL), "/")
	return strings.TrimSuffix(trimmed, "/chat/completions")
}

func getJSON(ctx context.Context, client *httpclient.Client, path string, dest any) error {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return client.GetJSON(checkCtx, path, nil, dest)
}

// summarizeError produces a human-readable summary for health check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (endpoint unreachable)"
	}
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return fmt.Sprintf("auth failed (%d)", apiErr.StatusCode)
		default:
			return fmt.Sprintf("check failed (%d)", apiErr.StatusCode)
		}
	}
	return err.Error()
}
