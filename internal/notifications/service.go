package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel/internal/config"
)

const userAgent = "Sentinel-Go/0.1.0"

// Service delivers push notifications.
type Service interface {
	Notify(ctx context.Context, msg Message) error
	Test(ctx context.Context) error
}

// NewService builds the transport selected by notifications.provider. A
// provider of "none", or one missing its required settings, yields a no-op.
func NewService(cfg *config.Config) Service {
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch n.Provider {
	case "ntfy":
		if topic := strings.TrimSpace(n.NtfyTopic); topic != "" {
			return &ntfyService{endpoint: topic, client: client}
		}
	case "homeassistant":
		if n.HAURL != "" && n.HAToken != "" {
			service := strings.TrimSpace(n.HAService)
			if service == "" {
				service = "notify"
			}
			return &homeAssistantService{
				endpoint: strings.TrimRight(n.HAURL, "/") + "/api/services/notify/" + service,
				token:    n.HAToken,
				client:   client,
			}
		}
	}
	return noopService{}
}

// IsNoop reports whether svc discards every message.
func IsNoop(svc Service) bool {
	_, ok := svc.(noopService)
	return ok || svc == nil
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Notify(ctx context.Context, msg Message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	tags := make([]string, 0, len(msg.Tags)+1)
	if msg.Tag != "" {
		tags = append(tags, msg.Tag)
		req.Header.Set("X-Sequence-ID", msg.Tag)
	}
	tags = append(tags, msg.Tags...)
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.Priority != "" && msg.Priority != PriorityDefault {
		req.Header.Set("Priority", msg.Priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.Notify(ctx, TestMessage())
}

type homeAssistantService struct {
	endpoint string
	token    string
	client   *http.Client
}

type haPayload struct {
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (h *homeAssistantService) Notify(ctx context.Context, msg Message) error {
	if h == nil || h.client == nil {
		return nil
	}
	payload := haPayload{Title: msg.Title, Message: msg.Body}
	if msg.Tag != "" {
		payload.Data = map[string]any{"tag": msg.Tag}
	}
	if msg.Priority == PriorityHigh || msg.Priority == PriorityUrgent {
		if payload.Data == nil {
			payload.Data = map[string]any{}
		}
		payload.Data["priority"] = "high"
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode home assistant payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build home assistant request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send home assistant notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("home assistant returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *homeAssistantService) Test(ctx context.Context) error {
	return h.Notify(ctx, TestMessage())
}

type noopService struct{}

func (noopService) Notify(context.Context, Message) error { return nil }
func (noopService) Test(context.Context) error            { return nil }
