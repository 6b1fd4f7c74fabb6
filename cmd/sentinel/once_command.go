package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
)

func newOnceCommand(ctx *commandContext) *cobra.Command {
	var printTokens bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single poll cycle from the stored cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var opts []daemon.Option
			if printTokens {
				opts = append(opts, daemon.WithTokenHandler(func(token string) {
					fmt.Fprint(out, token)
				}))
			}
			return ctx.withDaemon(func(cfg *config.Config, d *daemon.Daemon) error {
				outcome, cursor, err := d.Once(cmd.Context())
				if err != nil {
					return err
				}
				if printTokens {
					fmt.Fprintln(out)
				}
				result := newCycleResult(outcome, cursor)
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(out, "Outcome: %s\n", result.Outcome)
				fmt.Fprintf(out, "Cursor:  %s\n", result.Cursor)
				if result.incomplete() {
					return fmt.Errorf("cycle did not complete: %s (see logs)", outcome)
				}
				return nil
			}, opts...)
		},
	}
	cmd.Flags().BoolVar(&printTokens, "print-tokens", false, "Print streamed analyzer tokens as they arrive (stream mode)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
