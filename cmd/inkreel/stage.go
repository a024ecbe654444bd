package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkreel/internal/jobstore"
	"inkreel/internal/pipeline"
)

// continueStageSpec pairs a CLI verb with the stage it resumes from, per
// spec §6's `scribe [id]` / `refine [id]` / `generate [id]` / `shelve [id]`
// rows: continue from that stage on the given job, or the latest one.
type continueStageSpec struct {
	use   string
	stage jobstore.Stage
	short string
}

var continueStageSpecs = []continueStageSpec{
	{"scribe [id]", jobstore.StageScribe, "Continue a job from SCRIBE"},
	{"refine [id]", jobstore.StageRefine, "Continue a job from REFINE"},
	{"generate [id]", jobstore.StageGenerate, "Continue a job from GENERATE"},
	{"shelve [id]", jobstore.StageShelve, "Continue a job from SHELVE"},
}

// newStageCommands builds `ingest <source>` (which, unlike the other four,
// creates a fresh job since INGEST has no upstream job to continue) plus
// the four single-stage continuation commands.
func newStageCommands(ctx *commandContext) []*cobra.Command {
	cmds := []*cobra.Command{newIngestCommand(ctx)}
	for _, spec := range continueStageSpecs {
		cmds = append(cmds, newContinueStageCommand(ctx, spec))
	}
	return cmds
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var stopAfter string

	cmd := &cobra.Command{
		Use:   "ingest <source>",
		Short: "Create a job from a source file and run INGEST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stop := jobstore.StageIngest
			if stopAfter != "" {
				parsed, err := parseStopAfter(stopAfter)
				if err != nil {
					return err
				}
				stop = parsed
			}
			driver, err := ctx.pipelineDriver()
			if err != nil {
				return err
			}
			job, runErr := driver.Run(cmd.Context(), args[0], pipeline.RunOptions{StopAfter: stop})
			if job != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(jobSummaryRows(job)))
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&stopAfter, "stop-after", "", "Stop after this stage instead of ingest")
	return cmd
}

func newContinueStageCommand(ctx *commandContext, spec continueStageSpec) *cobra.Command {
	var stopAfter string

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = args[0]
			}
			stop := spec.stage
			if stopAfter != "" {
				parsed, err := parseStopAfter(stopAfter)
				if err != nil {
					return err
				}
				stop = parsed
			}
			driver, err := ctx.pipelineDriver()
			if err != nil {
				return err
			}
			job, runErr := driver.Continue(cmd.Context(), jobID, spec.stage, stop)
			if job != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValue(jobSummaryRows(job)))
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&stopAfter, "stop-after", "", "Stop after this stage instead of the invoked one")
	return cmd
}
