package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/internal/app"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		userID string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report <tripID>",
		Short: "Print a trip's budget report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			tripID := args[0]
			return withApp(cmd.Context(), func(a *app.App) error {
				out := cmd.OutOrStdout()
				if !asJSON {
					text, err := a.Reports.ShareText(cmd.Context(), userID, tripID)
					if err != nil {
						return err
					}
					fmt.Fprint(out, text)
					return nil
				}
				report, err := a.Reports.Report(cmd.Context(), userID, tripID)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the trip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
