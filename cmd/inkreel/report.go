package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate usage across jobs in the working root",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := ctx.reportIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer index.Close()

			var since time.Time
			if days > 0 {
				since = time.Now().Add(-time.Duration(days) * 24 * time.Hour)
			}
			totals, err := index.Totals(cmd.Context(), since)
			if err != nil {
				return err
			}

			rows := [][2]string{
				{"jobs", fmt.Sprintf("%d", totals.JobCount)},
				{"total_tokens", formatTokens(totals.TotalTokens)},
				{"total_cost_usd", formatCost(totals.TotalCostUSD)},
				{"total_time", formatDuration(totals.TotalTimeSeconds)},
				{"request_count", fmt.Sprintf("%d", totals.RequestCount)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Only aggregate jobs updated within the last N days")
	return cmd
}
