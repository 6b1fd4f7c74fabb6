package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var path string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest daemon run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			target := path
			if target == "" {
				target, err = logs.LatestRunLog(cfg.Paths.LogDir)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.LastLines(target, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), target, offset, 500*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&path, "file", "", "Read this log file instead of the newest run log")
	return cmd
}
