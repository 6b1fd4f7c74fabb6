package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sentinel/internal/services"
)

// ChatConfig configures the OpenAI-compatible backend.
type ChatConfig struct {
	// BaseURL is the full chat completions endpoint.
	BaseURL string
	APIKey  string
	Model   string
	Mode    Mode
	Referer string
	Title   string
	Timeout time.Duration
}

// ChatClient calls an OpenAI-compatible chat completions endpoint
// (llama.cpp server, vLLM, LocalAI, OpenRouter).
type ChatClient struct {
	cfg  ChatConfig
	opts clientOptions
}

// NewChatClient constructs the chat completions backend.
func NewChatClient(cfg ChatConfig, opts ...Option) *ChatClient {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.Mode == "" {
		cfg.Mode = ModeBlocking
	}
	client := &ChatClient{cfg: cfg}
	for _, opt := range opts {
		opt(&client.opts)
	}
	return client
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// Analyze sends the batch as a system+user conversation.
func (c *ChatClient) Analyze(ctx context.Context, req Request) (Verdict, error) {
	started := time.Now()
	records := RenderRecords(req.Records)
	if records == "" {
		return Verdict{}, services.Wrap(services.ErrConfiguration, "analyzer", "chat", "empty batch", nil)
	}
	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: "LOG DATA:\n" + records})

	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: 0,
		Stream:      c.cfg.Mode == ModeStream,
	}

	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.Referer != "" {
		header.Set("HTTP-Referer", c.cfg.Referer)
		header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		header.Set("X-Title", c.cfg.Title)
	}
	if payload.Stream {
		header.Set("Accept", "text/event-stream")
	}

	httpClient := newHTTPClient(c.opts, c.cfg.Timeout)
	resp, err := postJSON(ctx, httpClient, c.cfg.BaseURL, header, payload)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	var text string
	if payload.Stream {
		text, err = Reassemble(ctx, resp.Body, DecodeChatFragment, c.opts.onToken)
		if err != nil {
			return Verdict{}, streamError(ctx, httpClient, err)
		}
	} else {
		body, err := readAllBody(ctx, httpClient, resp.Body)
		if err != nil {
			return Verdict{}, err
		}
		text, err = decodeChatBody(body)
		if err != nil {
			return Verdict{}, err
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Verdict{}, services.Wrap(services.ErrMalformed, "analyzer", "chat", "model returned no text", nil)
	}
	return Verdict{
		Text:     text,
		Status:   StatusOK,
		Model:    c.cfg.Model,
		Duration: time.Since(started),
	}, nil
}

func decodeChatBody(body []byte) (string, error) {
	if strings.TrimSpace(string(body)) == "" {
		return "", services.Wrap(services.ErrMalformed, "analyzer", "chat", "received empty response body", nil)
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", services.Wrap(services.ErrMalformed, "analyzer", "chat", "non-JSON response received: "+snippet(body), err)
	}
	if completion.Error != nil {
		return "", services.Wrap(services.ErrTransient, "analyzer", "chat", "api error: "+strings.TrimSpace(completion.Error.Message), nil)
	}
	content, finishReason := extractCompletionContent(completion)
	if content == "" {
		detail := "empty content"
		if finishReason != "" {
			detail += " (finish_reason=" + finishReason + ")"
		}
		if refusal := extractCompletionRefusal(completion); refusal != "" {
			detail += " (refusal=" + refusal + ")"
		}
		return "", services.Wrap(services.ErrMalformed, "analyzer", "chat", detail, nil)
	}
	return content, nil
}

func extractCompletionContent(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
