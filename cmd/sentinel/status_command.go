package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cursor, heartbeat, and verdict summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(func(cfg *config.Config, d *daemon.Daemon) error {
				status := d.Status(cmd.Context(), 0)
				if jsonOutput {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				printStatus(out, cfg, status, shouldColorize(out), time.Now())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printStatus(out io.Writer, cfg *config.Config, status daemon.Status, colorize bool, now time.Time) {
	for _, line := range statusLines(cfg, status, colorize, now) {
		fmt.Fprintln(out, line)
	}
}

func statusLines(cfg *config.Config, status daemon.Status, colorize bool, now time.Time) []string {
	panel := newStatusPanel("Sentinel")

	if status.Running {
		panel.add("Daemon", statusOK, "Running")
	} else {
		panel.add("Daemon", statusWarn, "Not running")
	}
	if status.PollerState != "" {
		panel.add("Poller", statusInfo, string(status.PollerState))
	}
	if status.LastOutcome != "" {
		panel.add("Last cycle", outcomeKind(status.LastOutcome), string(status.LastOutcome))
	}
	panel.add("Source", statusInfo, sourceLabel(cfg))
	panel.add("Analyzer", statusInfo, fmt.Sprintf("%s %s (%s)", cfg.Analyzer.Provider, cfg.Analyzer.Model, cfg.Analyzer.Mode))

	if status.HasCursor {
		lag := now.Sub(status.Cursor).Round(time.Second)
		panel.add("Cursor", cursorKind(lag, cfg.PollInterval()),
			fmt.Sprintf("%s (%s behind)", status.Cursor.UTC().Format(time.RFC3339), lag))
	} else {
		panel.add("Cursor", statusInfo, "not set; first run starts at now - lookback")
	}

	switch {
	case cfg.HeartbeatInterval() <= 0:
		panel.add("Heartbeat", statusInfo, "disabled")
	case status.LastHeartbeat.IsZero():
		panel.add("Heartbeat", statusInfo, "never sent")
	default:
		panel.add("Heartbeat", statusInfo, fmt.Sprintf("last %s, next after %s",
			status.LastHeartbeat.UTC().Format(time.RFC3339),
			status.NextHeartbeat.UTC().Format(time.RFC3339)))
	}

	if status.HistoryPath != "" {
		counts := status.Verdicts
		summary := fmt.Sprintf("%d total, %d escalated, %d errors", counts.Total, counts.Escalated, counts.Errors)
		if !counts.Last.IsZero() {
			summary += ", last " + counts.Last.UTC().Format(time.RFC3339)
		}
		panel.add("Verdicts", verdictCountsKind(counts), summary)
	}
	panel.add("State", statusInfo, status.StateBackend)
	panel.add("Notifications", statusInfo, cfg.Notifications.Provider)
	for _, msg := range status.Errors {
		panel.add("Error", statusError, msg)
	}
	return panel.render(colorize)
}

func sourceLabel(cfg *config.Config) string {
	switch cfg.Source.Provider {
	case "graylog":
		target := cfg.Source.StreamID
		if target == "" {
			target = cfg.Source.Query
		}
		return fmt.Sprintf("graylog %s (%s)", cfg.Source.URL, target)
	case "homeassistant":
		return fmt.Sprintf("homeassistant %s (%s)", cfg.Source.URL, strings.Join(cfg.Source.Entities, ", "))
	case "logfile":
		return "logfile " + cfg.Source.LogPath
	default:
		return cfg.Source.Provider
	}
}
