package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkreel/internal/jobstore"
	"inkreel/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var stopAfter string
	var skipTranscript bool
	var compressionMode string
	var scribeModel string
	var refineModel string
	var shelveMode string
	var debug bool

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Create a new job from a source file and run it through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStopAfter(stopAfter)
			if err != nil {
				return err
			}
			driver, err := ctx.pipelineDriver()
			if err != nil {
				return err
			}
			job, runErr := driver.Run(cmd.Context(), args[0], pipeline.RunOptions{
				StopAfter:       stage,
				Debug:           debug,
				SkipTranscript:  skipTranscript,
				CompressionMode: compressionMode,
				ScribeModel:     scribeModel,
				RefineModel:     refineModel,
				ShelveStrategy:  shelveMode,
			})
			if job != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(jobSummaryRows(job)))
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&stopAfter, "stop-after", "", "Stop after this stage (ingest|scribe|refine|generate|shelve)")
	cmd.Flags().BoolVar(&skipTranscript, "skip-transcript", false, "Skip SCRIBE and run REFINE directly against the ingest handle")
	cmd.Flags().StringVar(&compressionMode, "compression-mode", "", "Override the configured INGEST compression mode")
	cmd.Flags().StringVar(&scribeModel, "model", "", "Override the configured SCRIBE model")
	cmd.Flags().StringVar(&refineModel, "refine-model", "", "Override the configured REFINE model")
	cmd.Flags().StringVar(&shelveMode, "shelve-mode", "", "Override the configured SHELVE placement strategy")
	cmd.Flags().BoolVar(&debug, "debug", false, "Keep working directories after SHELVE")

	return cmd
}

func parseStopAfter(value string) (jobstore.Stage, error) {
	if value == "" {
		return "", nil
	}
	stage := jobstore.Stage(value)
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q for --stop-after", value)
	}
	return stage, nil
}

func jobSummaryRows(job *jobstore.Job) [][2]string {
	return [][2]string{
		{"job_id", job.ID},
		{"status", string(job.State.Status)},
		{"stages", stageSummary(job)},
		{"total_cost_usd", formatCost(job.Meta.Processing.TotalCostUSD)},
	}
}
