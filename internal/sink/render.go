package sink

import (
	"fmt"
	"strings"
	"time"
)

const rule = "--------------------------------------------------"

// Render formats a report as the text block shared by the analysis file and
// the archive.
func Render(report Report) string {
	created := report.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s | STATUS: %s ---\n", created.UTC().Format(time.RFC3339), strings.ToUpper(report.Status()))
	if report.CycleID != "" {
		fmt.Fprintf(&b, "Cycle: %s\n", report.CycleID)
	}
	if report.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", report.Source)
	}
	if report.Verdict.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", report.Verdict.Model)
	}
	fmt.Fprintf(&b, "Window: %s -> %s\n",
		report.Window.From.UTC().Format(time.RFC3339Nano),
		report.Window.To.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "Records: %d", report.RecordCount)
	if !report.FirstRecord.IsZero() && !report.LastRecord.IsZero() {
		fmt.Fprintf(&b, " (%s .. %s)",
			report.FirstRecord.UTC().Format(time.RFC3339Nano),
			report.LastRecord.UTC().Format(time.RFC3339Nano))
	}
	b.WriteByte('\n')
	if report.Escalated {
		b.WriteString("Escalated: yes\n")
	}
	b.WriteString("Response:\n")
	b.WriteString(strings.TrimRight(report.Verdict.Text, "\n"))
	b.WriteByte('\n')
	if report.Verdict.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", report.Verdict.Detail)
	}
	b.WriteString(rule)
	b.WriteString("\n\n")
	return b.String()
}
