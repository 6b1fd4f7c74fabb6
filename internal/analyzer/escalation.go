package analyzer

import "strings"

// DefaultMarker is the escalation token the default system prompt asks for.
const DefaultMarker = "ALERT"

// Escalation decides whether a verdict warrants a notification. The rule is a
// plain substring match on any configured marker.
type Escalation struct {
	markers []string
}

// NewEscalation builds the predicate; an empty marker list falls back to
// DefaultMarker.
func NewEscalation(markers []string) Escalation {
	cleaned := make([]string, 0, len(markers))
	for _, marker := range markers {
		if trimmed := strings.TrimSpace(marker); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{DefaultMarker}
	}
	return Escalation{markers: cleaned}
}

// Markers returns the configured markers.
func (e Escalation) Markers() []string {
	return append([]string(nil), e.markers...)
}

// Matches reports whether v contains any marker. Failed analyses never match;
// they are reported through a separate notification.
func (e Escalation) Matches(v Verdict) bool {
	if v.Failed() {
		return false
	}
	markers := e.markers
	if len(markers) == 0 {
		markers = []string{DefaultMarker}
	}
	for _, marker := range markers {
		if strings.Contains(v.Text, marker) {
			return true
		}
	}
	return false
}
