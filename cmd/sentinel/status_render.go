package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"sentinel/internal/analyzer"
	"sentinel/internal/poller"
	"sentinel/internal/preflight"
	"sentinel/internal/state"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusStyles = map[statusKind]struct{ tag, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

const (
	statusIndent        = "  "
	minStatusLabelWidth = 10
)

// statusPanel collects labelled lines under a title and aligns them to the
// widest label when rendered.
type statusPanel struct {
	title string
	lines []statusLine
}

type statusLine struct {
	label   string
	kind    statusKind
	message string
}

func newStatusPanel(title string) *statusPanel {
	return &statusPanel{title: strings.TrimSpace(title)}
}

func (p *statusPanel) add(label string, kind statusKind, message string) {
	p.lines = append(p.lines, statusLine{label: label, kind: kind, message: message})
}

func (p *statusPanel) render(colorize bool) []string {
	width := minStatusLabelWidth
	for _, line := range p.lines {
		width = max(width, len(line.label)+1)
	}
	title := p.title
	if colorize {
		title = ansiBold + title + ansiReset
	}
	out := make([]string, 0, len(p.lines)+1)
	out = append(out, title)
	for _, line := range p.lines {
		out = append(out, renderStatusLine(line.label, line.kind, line.message, width, colorize))
	}
	return out
}

func renderStatusLine(label string, kind statusKind, message string, width int, colorize bool) string {
	text := "[" + statusTag(kind) + "]"
	if message != "" {
		text += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, width, label+":", text)
	if colorize {
		return statusStyles[kind].color + base + ansiReset
	}
	return base
}

func statusTag(kind statusKind) string {
	if style, ok := statusStyles[kind]; ok {
		return style.tag
	}
	return statusStyles[statusInfo].tag
}

// outcomeKind grades a poll cycle result.
func outcomeKind(outcome poller.Outcome) statusKind {
	switch outcome {
	case poller.OutcomeProcessed, poller.OutcomeEmpty:
		return statusOK
	case poller.OutcomeAnalysisFailed, poller.OutcomeCancelled:
		return statusWarn
	case poller.OutcomeFetchFailed, poller.OutcomeSinkFailed:
		return statusError
	default:
		return statusInfo
	}
}

// verdictKind grades one stored verdict: escalations and analyzer failures
// need attention, everything else is routine.
func verdictKind(status string, escalated bool) statusKind {
	switch {
	case status == analyzer.StatusError:
		return statusError
	case escalated:
		return statusWarn
	default:
		return statusOK
	}
}

func verdictCountsKind(counts state.VerdictCounts) statusKind {
	switch {
	case counts.Errors > 0:
		return statusWarn
	case counts.Total == 0:
		return statusInfo
	default:
		return statusOK
	}
}

func checkKind(result preflight.Result) statusKind {
	switch {
	case !result.Passed && result.Optional:
		return statusWarn
	case !result.Passed:
		return statusError
	case result.Optional:
		return statusInfo
	default:
		return statusOK
	}
}

// cursorKind flags a cursor that trails the clock by more than ten poll
// intervals and at least an hour.
func cursorKind(lag, interval time.Duration) statusKind {
	if lag > 10*interval && lag > time.Hour {
		return statusWarn
	}
	return statusOK
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
