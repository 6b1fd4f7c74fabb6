package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel/internal/services"
)

const defaultTimeout = 120 * time.Second

// HTTPStatusError is returned when the inference endpoint answers with a non-2xx
// status.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func newHTTPClient(opts clientOptions, timeout time.Duration) *http.Client {
	if opts.httpClient != nil {
		return opts.httpClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends payload and returns the response once a 2xx status is seen.
// The caller owns the body.
func postJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, payload any) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "build request", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, client, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, services.Wrap(services.ErrTransient, "analyzer", "request", endpoint, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}
	return resp, nil
}

func classifyTransportError(ctx context.Context, client *http.Client, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return services.Wrap(services.ErrTimeout, "analyzer", "request", fmt.Sprintf("inference timed out (timeout=%s)", client.Timeout), err)
	}
	return services.Wrap(services.ErrTransient, "analyzer", "request", "connection failed", err)
}

// streamError upgrades deadline failures seen mid-stream to timeouts and
// leaves everything else untouched.
func streamError(ctx context.Context, client *http.Client, err error) error {
	if errors.Is(err, services.ErrTimeout) {
		return err
	}
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return services.Wrap(services.ErrTimeout, "analyzer", "stream", fmt.Sprintf("inference timed out (timeout=%s)", client.Timeout), err)
	}
	return err
}

func readAllBody(ctx context.Context, client *http.Client, body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, classifyTransportError(ctx, client, err)
	}
	return data, nil
}
