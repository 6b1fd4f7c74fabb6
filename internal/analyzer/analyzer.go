package analyzer

import (
	"context"
	"fmt"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/services"
	"sentinel/internal/source"
)

// ErrorMarker replaces the verdict text when analysis fails.
const ErrorMarker = "ANALYZER_ERROR"

// Verdict statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Mode selects how the response body is read.
type Mode string

const (
	ModeBlocking Mode = "blocking"
	ModeStream   Mode = "stream"
)

// Request is one batch to analyze.
type Request struct {
	Records      []source.Record
	SystemPrompt string
}

// Verdict is the analyzer output for one batch.
type Verdict struct {
	Text     string
	Status   string
	Detail   string
	Model    string
	Duration time.Duration
}

// Failed reports whether the verdict stands in for a failed analysis.
func (v Verdict) Failed() bool {
	return v.Status == StatusError
}

// ErrorVerdict builds the placeholder verdict recorded when analysis fails.
func ErrorVerdict(model string, err error, elapsed time.Duration) Verdict {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Verdict{
		Text:     ErrorMarker,
		Status:   StatusError,
		Detail:   detail,
		Model:    model,
		Duration: elapsed,
	}
}

// Analyzer produces a verdict for a batch of records.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Verdict, error)
}

// TokenFunc receives streamed tokens as they arrive.
type TokenFunc func(token string)

// New builds the backend selected by cfg.Provider.
func New(cfg config.Analyzer, onToken TokenFunc) (Analyzer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Mode:    Mode(cfg.Mode),
			NumCtx:  cfg.NumCtx,
			Timeout: timeout,
		}, WithTokenHandler(onToken)), nil
	case "openai":
		return NewChatClient(ChatConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Mode:    Mode(cfg.Mode),
			Referer: cfg.Referer,
			Title:   cfg.Title,
			Timeout: timeout,
		}, WithTokenHandler(onToken)), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "init", fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
}
