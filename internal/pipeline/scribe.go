package pipeline

import (
	"context"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/providers"
)

// ScribeExecutor resolves the configured transcription provider and streams
// its segments into raw_transcript.json. The executor, not the provider,
// owns the stage-level retry loop; a fresh SegmentWriter is opened on each
// attempt so a retried transcription starts from an empty transcript.
func ScribeExecutor(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
	ingest, err := job.ReadIngestResult()
	if err != nil {
		return jobstore.UsageRecord{}, err
	}
	transcriber, err := env.Providers.GetTranscription(job.Meta.Configuration.ScribeProvider, job.Meta.Configuration.ScribeModel)
	if err != nil {
		return jobstore.UsageRecord{}, err
	}

	retry := providers.RetryPolicy{
		MaxAttempts:  env.Config.Pipeline.RetryMax,
		DelaySeconds: env.Config.Pipeline.RetryDelaySeconds,
	}

	var usage jobstore.UsageRecord
	err = withLinearRetry(ctx, retry.MaxAttempts, retry.DelaySeconds, func() error {
		writer, werr := jobstore.NewSegmentWriter(job)
		if werr != nil {
			return errs.Wrap(errs.ErrTransient, string(jobstore.StageScribe), "open segment writer",
				"failed to open transcript staging file", "", werr)
		}
		result, terr := transcriber.Transcribe(ctx, ingest, job.Meta.Configuration.LanguageHint, retry, writer)
		if terr != nil {
			_ = writer.Abort()
			return terr
		}
		if ferr := writer.Finalize(); ferr != nil {
			return errs.Wrap(errs.ErrTransient, string(jobstore.StageScribe), "finalize transcript",
				"failed to finalize raw_transcript.json", "", ferr)
		}
		usage = result
		return nil
	})
	if err != nil {
		return jobstore.UsageRecord{}, err
	}

	usage.Stage = jobstore.StageScribe
	return usage, nil
}
