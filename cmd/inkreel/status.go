package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkreel/internal/errs"
	"inkreel/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Run readiness checks against external tools, directories, and provider credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			headers := []string{"Check", "Status", "Detail"}
			rows := make([][]string, 0, len(results))
			failed := false
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "fail"
					failed = true
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			if failed {
				return errs.Wrap(errs.ErrConfiguration, "", "status", "one or more preflight checks failed", "see the table above for which check and why", nil)
			}
			return nil
		},
	}
}
