package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
	"sentinel/internal/state"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(func(cfg *config.Config, d *daemon.Daemon) error {
				if !cfg.Output.History {
					return fmt.Errorf("verdict history is disabled (output.history = false)")
				}
				rows, err := d.RecentVerdicts(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, nonNil(rows))
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No verdicts recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(historyColumns, historyRows(rows, shouldColorize(out))))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of verdicts to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

var historyColumns = []tableColumn{
	{header: "When"},
	{header: "Status"},
	{header: "Alert"},
	{header: "Records", align: text.AlignRight},
	{header: "Window"},
	{header: "Verdict", maxWidth: 80},
}

func historyRows(rows []state.VerdictRecord, colorize bool) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		kind := verdictKind(row.Status, row.Escalated)
		out = append(out, []string{
			row.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			statusCell(row.Status, kind, colorize),
			yesNo(row.Escalated),
			strconv.Itoa(row.RecordCount),
			fmt.Sprintf("%s - %s", row.WindowFrom.Local().Format(time.TimeOnly), row.WindowTo.Local().Format(time.TimeOnly)),
			summarizeVerdict(row.Text, 80),
		})
	}
	return out
}

func summarizeVerdict(text string, limit int) string {
	line := strings.Join(strings.Fields(text), " ")
	runes := []rune(line)
	if len(runes) <= limit {
		return line
	}
	return string(runes[:limit-1]) + "…"
}
