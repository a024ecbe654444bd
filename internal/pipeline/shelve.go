package pipeline

import (
	"context"
	"os"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/logging"
	"inkreel/internal/shelvestrategy"
)

// ShelveExecutor copies the job's rendered artifacts into the results
// library per the configured placement strategy, then prunes the heavy
// working directories unless debug mode is set.
func ShelveExecutor(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
	enriched, err := job.ReadEnrichedContext()
	if err != nil {
		enriched = jobstore.EnrichedContext{}
	}

	result, err := shelvestrategy.Place(
		job,
		job.Meta.Configuration.ShelveStrategy,
		env.Config.Paths.ResultsDir,
		env.Config.Shelve.TagRouting,
		enriched,
	)
	if err != nil {
		return jobstore.UsageRecord{}, err
	}

	logger := logging.WithContext(ctx, env.logger())
	logger.Info("shelved job artifacts",
		logging.String("destination", result.DestinationDir),
		logging.String("tag", result.Tag),
		logging.Int("file_count", len(result.Files)),
	)

	if job.Meta.Configuration.Debug {
		return jobstore.UsageRecord{}, nil
	}
	for _, dir := range []string{job.MediaDir(), job.TranscriptsDir(), job.ArtifactsDir()} {
		if err := os.RemoveAll(dir); err != nil {
			return jobstore.UsageRecord{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageShelve), "prune working directory",
				"failed to prune heavy artifacts after shelving", "", err)
		}
	}
	return jobstore.UsageRecord{}, nil
}
