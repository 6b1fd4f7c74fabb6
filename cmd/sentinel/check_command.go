package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sentinel/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, the source, and the analyzer endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if jsonOutput {
				if err := writeJSON(cmd, nonNil(results)); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, line := range checkLines(results, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func checkLines(results []preflight.Result, colorize bool) []string {
	panel := newStatusPanel("Checks")
	for _, r := range results {
		panel.add(r.Name, checkKind(r), r.Detail)
	}
	return panel.render(colorize)
}
