package analyzer

import (
	"strings"
	"time"

	"sentinel/internal/source"
)

// BuildPrompt renders the system prompt followed by one "[timestamp] text"
// line per record under a LOG DATA heading. It returns "" for an empty batch.
func BuildPrompt(systemPrompt string, records []source.Record) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		b.WriteString(prompt)
		b.WriteString("\n\n")
	}
	b.WriteString("LOG DATA:\n")
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(rec.Timestamp.UTC().Format(time.RFC3339Nano))
		b.WriteString("] ")
		b.WriteString(strings.TrimSpace(rec.Text()))
	}
	return b.String()
}

// RenderRecords renders only the record lines, used as the user message for
// chat backends where the system prompt travels separately.
func RenderRecords(records []source.Record) string {
	prompt := BuildPrompt("", records)
	return strings.TrimPrefix(prompt, "LOG DATA:\n")
}
