package analyzer_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"sentinel/internal/analyzer"
)

func TestReassembleSkipsMalformedFragments(t *testing.T) {
	body := strings.Join([]string{
		`{bad json`,
		`{"response":"A"}`,
		`{"response":"B","done":true}`,
	}, "\n")
	var tokens []string
	text, err := analyzer.Reassemble(context.Background(), strings.NewReader(body), analyzer.DecodeOllamaFragment, func(tok string) {
		tokens = append(tokens, tok)
	})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if text != "AB" {
		t.Fatalf("expected AB, got %q", text)
	}
	if strings.Join(tokens, ",") != "A,B" {
		t.Fatalf("unexpected token callbacks %v", tokens)
	}
}

func TestReassembleStopsAtDone(t *testing.T) {
	body := "{\"response\":\"one \"}\n\n{\"response\":\"two\",\"done\":true}\n{\"response\":\" three\"}\n"
	text, err := analyzer.Reassemble(context.Background(), strings.NewReader(body), analyzer.DecodeOllamaFragment, nil)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if text != "one two" {
		t.Fatalf("expected reading to stop at done, got %q", text)
	}
}

func TestReassembleReturnsTextAtEOFWithoutDone(t *testing.T) {
	body := "{\"response\":\"partial\"}\n{\"unrelated\":1}\n"
	text, err := analyzer.Reassemble(context.Background(), strings.NewReader(body), analyzer.DecodeOllamaFragment, nil)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if text != "partial" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReassembleSurfacesInBandErrors(t *testing.T) {
	body := "{\"response\":\"x\"}\n{\"error\":\"model not found\"}\n"
	_, err := analyzer.Reassemble(context.Background(), strings.NewReader(body), analyzer.DecodeOllamaFragment, nil)
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected in-band error, got %v", err)
	}
}

func TestReassembleSkipsOversizedFragment(t *testing.T) {
	huge := `{"response":"` + strings.Repeat("x", 2*1024*1024) + `"}`
	body := strings.Join([]string{
		`{"response":"before "}`,
		huge,
		`{"response":"after","done":true}`,
	}, "\n")
	var tokens int
	text, err := analyzer.Reassemble(context.Background(), strings.NewReader(body), analyzer.DecodeOllamaFragment, func(string) {
		tokens++
	})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if text != "before after" {
		t.Fatalf("expected stream to continue past oversized line, got %d bytes", len(text))
	}
	if tokens != 2 {
		t.Fatalf("expected 2 token callbacks, got %d", tokens)
	}
}

func TestReassembleHonoursCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_, _ = pw.Write([]byte("{\"response\":\"first\"}\n"))
		cancel()
		_, _ = pw.Write([]byte("{\"response\":\"second\"}\n"))
		_ = pw.Close()
	}()
	text, err := analyzer.Reassemble(ctx, pr, analyzer.DecodeOllamaFragment, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v (text %q)", err, text)
	}
	if strings.Contains(text, "second") {
		t.Fatalf("expected no tokens after cancellation, got %q", text)
	}
}

func TestDecodeChatFragment(t *testing.T) {
	body := strings.Join([]string{
		": keep-alive",
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"ALERT: "}}]}`,
		`data: {not json`,
		`data: {"choices":[{"delta":{"content":"disk failing"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
	}, "\n")
	text, err := analyzer.Reassemble(context.Background(), strings.NewReader(body), analyzer.DecodeChatFragment, nil)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if text != "ALERT: disk failing" {
		t.Fatalf("unexpected text %q", text)
	}
}
