package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"sentinel/internal/services"
)

const maxFragmentBytes = 1024 * 1024

// Fragment is one decoded line of a streamed response.
type Fragment struct {
	Token string
	Done  bool
	// Err carries an error reported in-band by the server.
	Err string
}

// FragmentDecoder decodes one non-blank line. A returned error marks the line
// as malformed; Reassemble skips it.
type FragmentDecoder func(line []byte) (Fragment, error)

// Reassemble reads line-delimited fragments from r and concatenates their
// tokens in arrival order. It stops at the first fragment marked done, at EOF,
// or when ctx is cancelled. Blank, undecodable and oversized lines are
// skipped. onToken, when set, sees every token as it arrives.
//
// On cancellation or a read error the text assembled so far is returned with
// the error.
func Reassemble(ctx context.Context, r io.Reader, decode FragmentDecoder, onToken TokenFunc) (string, error) {
	if decode == nil {
		decode = DecodeOllamaFragment
	}
	var out strings.Builder
	reader := bufio.NewReaderSize(r, 64*1024)

	for {
		raw, oversize, readErr := readFragment(reader)
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		line := bytes.TrimSpace(raw)
		if !oversize && len(line) > 0 {
			if frag, err := decode(line); err == nil {
				if frag.Err != "" {
					return out.String(), services.Wrap(services.ErrTransient, "analyzer", "stream", frag.Err, nil)
				}
				if frag.Token != "" {
					out.WriteString(frag.Token)
					if onToken != nil {
						onToken(frag.Token)
					}
				}
				if frag.Done {
					return out.String(), nil
				}
			}
		}
		if readErr == io.EOF {
			return out.String(), nil
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out.String(), ctxErr
			}
			return out.String(), services.Wrap(services.ErrTransient, "analyzer", "stream", "read body", readErr)
		}
	}
}

// readFragment returns the next line. Lines longer than maxFragmentBytes are
// drained and reported as oversize with no content.
func readFragment(r *bufio.Reader) ([]byte, bool, error) {
	var line []byte
	oversize := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversize {
			if len(line)+len(chunk) > maxFragmentBytes {
				oversize = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, oversize, err
	}
}

type ollamaFragment struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
	Error    string  `json:"error"`
}

// DecodeOllamaFragment decodes a line of an Ollama /api/generate stream:
// {"response": "...", "done": false}.
func DecodeOllamaFragment(line []byte) (Fragment, error) {
	var frag ollamaFragment
	if err := json.Unmarshal(line, &frag); err != nil {
		return Fragment{}, err
	}
	if frag.Response == nil && !frag.Done && frag.Error == "" {
		return Fragment{}, errors.New("fragment has no response field")
	}
	out := Fragment{Done: frag.Done, Err: frag.Error}
	if frag.Response != nil {
		out.Token = *frag.Response
	}
	return out, nil
}

var errNotData = errors.New("not an SSE data line")

// DecodeChatFragment decodes a server-sent-events line of an OpenAI-compatible
// streaming chat completion. "data: [DONE]" ends the stream; comment and
// event lines are treated as malformed and skipped.
func DecodeChatFragment(line []byte) (Fragment, error) {
	text := string(line)
	if !strings.HasPrefix(text, "data:") {
		return Fragment{}, errNotData
	}
	payload := strings.TrimSpace(strings.TrimPrefix(text, "data:"))
	if payload == "[DONE]" {
		return Fragment{Done: true}, nil
	}
	var chunk chatCompletionResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return Fragment{}, err
	}
	if chunk.Error != nil {
		msg := strings.TrimSpace(chunk.Error.Message)
		if msg == "" {
			msg = "unknown stream error"
		}
		return Fragment{Err: msg}, nil
	}
	for _, choice := range chunk.Choices {
		// Tokens keep their whitespace; only blank-vs-present is checked here.
		for _, candidate := range []string{choice.Delta.Content, choice.Message.Content, choice.Text} {
			if candidate != "" {
				return Fragment{Token: candidate}, nil
			}
		}
	}
	return Fragment{}, nil
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > 100 {
		return fmt.Sprintf("%s...", text[:100])
	}
	return text
}
