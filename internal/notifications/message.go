package notifications

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Dedupe tags. A notification with the same tag replaces the previous one.
const (
	TagEscalation    = "sentinel-escalation"
	TagAnalyzerError = "sentinel-analyzer-error"
	TagHeartbeat     = "sentinel-heartbeat"
	TagTest          = "sentinel-test"
)

// Priorities understood by ntfy; Home Assistant ignores them.
const (
	PriorityLow     = "low"
	PriorityDefault = "default"
	PriorityHigh    = "high"
	PriorityUrgent  = "urgent"
)

const maxBodyLen = 3800

// Message is one push notification.
type Message struct {
	Title    string
	Body     string
	Tag      string
	Priority string
	// Tags are extra ntfy tags (emoji shortcodes or labels) sent after Tag.
	Tags []string
}

func titleFor(sourceName, suffix string) string {
	name := strings.TrimSpace(sourceName)
	if name == "" {
		return "Sentinel - " + suffix
	}
	return fmt.Sprintf("Sentinel - %s %s", cases.Title(language.Und).String(name), suffix)
}

// EscalationMessage announces a verdict that matched the escalation rule.
func EscalationMessage(sourceName, verdict string, records int) Message {
	return Message{
		Title:    titleFor(sourceName, "Alert"),
		Body:     truncate(fmt.Sprintf("%s\n\n(%d records analyzed)", strings.TrimSpace(verdict), records)),
		Tag:      TagEscalation,
		Priority: PriorityHigh,
		Tags:     []string{"rotating_light"},
	}
}

// AnalyzerErrorMessage reports that a batch could not be analyzed.
func AnalyzerErrorMessage(sourceName, detail string, records int) Message {
	body := fmt.Sprintf("Analysis failed for %d records: %s", records, strings.TrimSpace(detail))
	return Message{
		Title:    titleFor(sourceName, "Analyzer Error"),
		Body:     truncate(body),
		Tag:      TagAnalyzerError,
		Priority: PriorityDefault,
		Tags:     []string{"warning"},
	}
}

// HeartbeatMessage tells the operator the poller is alive but quiet.
func HeartbeatMessage(sourceName string, cursor time.Time) Message {
	body := "No new records; sentinel is still watching."
	if !cursor.IsZero() {
		body = fmt.Sprintf("No new records since %s; sentinel is still watching.", cursor.UTC().Format(time.RFC3339))
	}
	return Message{
		Title:    titleFor(sourceName, "Heartbeat"),
		Body:     body,
		Tag:      TagHeartbeat,
		Priority: PriorityLow,
		Tags:     []string{"green_heart"},
	}
}

// TestMessage is sent by `sentinel test-notify`.
func TestMessage() Message {
	return Message{
		Title:    "Sentinel - Test",
		Body:     "Notification system test",
		Tag:      TagTest,
		Priority: PriorityLow,
		Tags:     []string{"test_tube"},
	}
}

func truncate(body string) string {
	if len(body) <= maxBodyLen {
		return body
	}
	cut := body[:maxBodyLen]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}
