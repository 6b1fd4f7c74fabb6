package analyzer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"sentinel/internal/services"
)

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Mode    Mode
	NumCtx  int
	Timeout time.Duration
}

// OllamaClient calls Ollama's /api/generate endpoint.
type OllamaClient struct {
	cfg     OllamaConfig
	opts    clientOptions
	timeout time.Duration
}

// NewOllamaClient constructs the Ollama backend.
func NewOllamaClient(cfg OllamaConfig, opts ...Option) *OllamaClient {
	cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"), "/api/generate")
	if cfg.Mode == "" {
		cfg.Mode = ModeBlocking
	}
	client := &OllamaClient{cfg: cfg}
	for _, opt := range opts {
		opt(&client.opts)
	}
	client.timeout = cfg.Timeout
	return client
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options *generateOption `json:"options,omitempty"`
}

type generateOption struct {
	NumCtx int `json:"num_ctx,omitempty"`
}

type generateResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

// Endpoint returns the generate URL requests are sent to.
func (c *OllamaClient) Endpoint() string {
	return c.cfg.BaseURL + "/api/generate"
}

// Analyze sends the batch to Ollama and returns its verdict.
func (c *OllamaClient) Analyze(ctx context.Context, req Request) (Verdict, error) {
	started := time.Now()
	prompt := BuildPrompt(req.SystemPrompt, req.Records)
	if prompt == "" {
		return Verdict{}, services.Wrap(services.ErrConfiguration, "analyzer", "ollama", "empty batch", nil)
	}

	payload := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: c.cfg.Mode == ModeStream,
	}
	if c.cfg.NumCtx > 0 {
		payload.Options = &generateOption{NumCtx: c.cfg.NumCtx}
	}

	httpClient := newHTTPClient(c.opts, c.timeout)
	resp, err := postJSON(ctx, httpClient, c.Endpoint(), nil, payload)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	var text string
	if payload.Stream {
		text, err = Reassemble(ctx, resp.Body, DecodeOllamaFragment, c.opts.onToken)
		if err != nil {
			return Verdict{}, streamError(ctx, httpClient, err)
		}
	} else {
		body, err := readAllBody(ctx, httpClient, resp.Body)
		if err != nil {
			return Verdict{}, err
		}
		text, err = decodeGenerateBody(body)
		if err != nil {
			return Verdict{}, err
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Verdict{}, services.Wrap(services.ErrMalformed, "analyzer", "ollama", "model returned no text", nil)
	}
	return Verdict{
		Text:     text,
		Status:   StatusOK,
		Model:    c.cfg.Model,
		Duration: time.Since(started),
	}, nil
}

func decodeGenerateBody(body []byte) (string, error) {
	if strings.TrimSpace(string(body)) == "" {
		return "", services.Wrap(services.ErrMalformed, "analyzer", "ollama", "received empty response body", nil)
	}
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.Wrap(services.ErrMalformed, "analyzer", "ollama", "non-JSON response received: "+snippet(body), err)
	}
	if parsed.Error != "" {
		return "", services.Wrap(services.ErrTransient, "analyzer", "ollama", parsed.Error, nil)
	}
	if parsed.Response == nil {
		return "", services.Wrap(services.ErrMalformed, "analyzer", "ollama", "no response field in JSON", nil)
	}
	return *parsed.Response, nil
}
