package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sentinel/internal/config"
	"sentinel/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(func(cfg *config.Config, d *daemon.Daemon) error {
				sent, message, err := d.TestNotification(cmd.Context())
				if message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), message)
				} else if !sent {
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
				}
				return err
			})
		},
	}
}
