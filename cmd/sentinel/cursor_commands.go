package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
	"sentinel/internal/state"
)

func newCursorCommand(ctx *commandContext) *cobra.Command {
	cursorCmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or reset the poll cursor",
	}
	cursorCmd.AddCommand(newCursorShowCommand(ctx))
	cursorCmd.AddCommand(newCursorResetCommand(ctx))
	return cursorCmd
}

func newCursorShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(func(cfg *config.Config, d *daemon.Daemon) error {
				status := d.Status(cmd.Context(), 0)
				out := cmd.OutOrStdout()
				if len(status.Errors) > 0 {
					return errors.New(strings.Join(status.Errors, "; "))
				}
				if !status.HasCursor {
					fmt.Fprintln(out, "Cursor not set")
					return nil
				}
				fmt.Fprintln(out, state.FormatTimestamp(status.Cursor))
				return nil
			})
		},
	}
}

func newCursorResetCommand(ctx *commandContext) *cobra.Command {
	var to string
	var ago time.Duration

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Move the cursor to a timestamp (default: now minus the configured lookback)",
		Long: "Move the cursor to a timestamp. Records at or after the new cursor are fetched on the next cycle.\n" +
			"Refuses to run while the daemon holds the lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) != "" && ago > 0 {
				return errors.New("use either --to or --ago, not both")
			}
			return ctx.withDaemon(func(cfg *config.Config, d *daemon.Daemon) error {
				target, err := resolveCursorTarget(cfg, to, ago, time.Now())
				if err != nil {
					return err
				}
				if err := d.SetCursor(cmd.Context(), target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cursor set to %s\n", state.FormatTimestamp(target))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "RFC 3339 timestamp for the new cursor")
	cmd.Flags().DurationVar(&ago, "ago", 0, "Set the cursor this long before now (e.g. 2h)")
	return cmd
}

func resolveCursorTarget(cfg *config.Config, to string, ago time.Duration, now time.Time) (time.Time, error) {
	switch {
	case strings.TrimSpace(to) != "":
		parsed, err := state.ParseTimestamp(to)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse --to: %w", err)
		}
		if parsed.After(now) {
			return time.Time{}, fmt.Errorf("--to %s is in the future", to)
		}
		return parsed, nil
	case ago > 0:
		return now.Add(-ago).UTC(), nil
	default:
		return now.Add(-cfg.Lookback()).UTC(), nil
	}
}
