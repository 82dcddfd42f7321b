package main

import (
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/internal/app"
	"github.com/spf13/cobra"
)

func newRemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send due upcoming-trip reminders once",
		Long: "Runs the same sweep the server runs on its reminder interval. " +
			"Reminders already sent are skipped, so running it twice is harmless.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				sent, err := a.Notifications.SweepUpcoming(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminder(s)\n", sent)
				return nil
			})
		},
	}
}
