package main

import (
	"github.com/spf13/cobra"

	"inkreel/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the watcher loop against the configured input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.environment()
			if err != nil {
				return err
			}
			driver, err := ctx.pipelineDriver()
			if err != nil {
				return err
			}
			w := watch.New(env.Config, driver, env.Logger)
			return w.Run(cmd.Context())
		},
	}
}
