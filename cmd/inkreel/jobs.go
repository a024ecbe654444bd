package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"inkreel/internal/jobstore"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage jobs in the working root",
	}
	cmd.AddCommand(
		newJobsListCommand(ctx),
		newJobsShowCommand(ctx),
		newJobsRetryCommand(ctx),
		newJobsCleanupCommand(ctx),
		newJobsDeleteCommand(ctx),
		newJobsFinalizeCommand(ctx),
	)
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var since string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Enumerate jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			filter := jobstore.ListFilter{Status: jobstore.JobStatus(status)}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("parse --since %q: %w", since, err)
				}
				filter.Since = t
			}
			jobs, err := store.List(filter)
			if err != nil {
				return err
			}

			headers := []string{"Job ID", "Status", "Source", "Updated", "Cost"}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					string(job.State.Status),
					job.Meta.Source,
					formatRelativeTime(job.State.UpdatedAt),
					formatCost(job.Meta.Processing.TotalCostUSD),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by job status")
	cmd.Flags().StringVar(&since, "since", "", "Only jobs updated at or after this RFC3339 timestamp")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a job's state and usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			job, err := store.Load(args[0])
			if err != nil {
				return err
			}

			rows := jobSummaryRows(job)
			rows = append(rows,
				[2]string{"total_tokens", formatTokens(job.Meta.Processing.TotalTokens)},
				[2]string{"request_count", fmt.Sprintf("%d", job.Meta.Processing.RequestCount)},
				[2]string{"total_time", formatDuration(job.Meta.Processing.TotalTimeSeconds)},
			)
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(rows))

			headers := []string{"Stage", "Status", "Error"}
			stageRows := make([][]string, 0, len(jobstore.Stages))
			for _, stage := range jobstore.Stages {
				rec := job.StageRecordFor(stage)
				stageRows = append(stageRows, []string{string(stage), string(rec.Status), rec.Error})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, stageRows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	var fromStage string

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Reset a job from its first incomplete stage (or --from-stage) and re-run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStopAfter(fromStage)
			if err != nil {
				return err
			}
			driver, err := ctx.pipelineDriver()
			if err != nil {
				return err
			}
			job, runErr := driver.Retry(cmd.Context(), args[0], stage)
			if job != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(jobSummaryRows(job)))
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&fromStage, "from-stage", "", "Reset from this stage instead of the first incomplete one")
	return cmd
}

func newJobsCleanupCommand(ctx *commandContext) *cobra.Command {
	var olderThanDays int
	var status string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete jobs matching an age/status filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			cutoff := time.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
			result, err := store.DeleteOlderThan(cutoff, jobstore.JobStatus(status))
			if err != nil {
				return err
			}
			for _, id := range result.Deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			}
			for _, failure := range result.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "failed to delete", failure.JobID, failure.Err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete jobs last updated more than this many days ago")
	cmd.Flags().StringVar(&status, "status", "", "Restrict cleanup to this job status")
	return cmd
}

func newJobsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a job's working directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			job, err := store.Load(args[0])
			if err != nil {
				return err
			}
			return store.Delete(job)
		},
	}
}

func newJobsFinalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <id>",
		Short: "Copy a job's artifacts to the results library and apply the pruning policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := ctx.pipelineDriver()
			if err != nil {
				return err
			}
			job, runErr := driver.Continue(cmd.Context(), args[0], jobstore.StageShelve, jobstore.StageShelve)
			if job != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(jobSummaryRows(job)))
			}
			return runErr
		},
	}
}
