package pipeline

import (
	"context"
	"fmt"
	"strings"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/providers"
)

// RefineExecutor assembles the required-fields schema across the job's
// artifact list, resolves the configured refinement provider, and calls it
// once with either the flattened transcript (standard mode) or the ingest
// handle (direct mode).
func RefineExecutor(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
	schema, err := env.Templates.AssembleSchema(job.Meta.Configuration.Artifacts)
	if err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrConfiguration, string(jobstore.StageRefine), "assemble schema",
			err.Error(), "reconcile the conflicting template custom_fields", err)
	}

	refiner, err := env.Providers.GetRefinement(job.Meta.Configuration.RefineProvider, job.Meta.Configuration.RefineModel)
	if err != nil {
		return jobstore.UsageRecord{}, err
	}

	input, err := buildRefineInput(job)
	if err != nil {
		return jobstore.UsageRecord{}, err
	}

	var enriched jobstore.EnrichedContext
	var usage jobstore.UsageRecord
	err = withLinearRetry(ctx, env.Config.Pipeline.RetryMax, env.Config.Pipeline.RetryDelaySeconds, func() error {
		e, u, rerr := refiner.Refine(ctx, input, schema, job.Meta.Configuration.LanguageHint)
		if rerr != nil {
			return rerr
		}
		enriched, usage = e, u
		return nil
	})
	if err != nil {
		return jobstore.UsageRecord{}, err
	}

	if err := job.WriteEnrichedContext(enriched); err != nil {
		return jobstore.UsageRecord{}, err
	}
	usage.Stage = jobstore.StageRefine
	return usage, nil
}

func buildRefineInput(job *jobstore.Job) (providers.RefineInput, error) {
	if job.Meta.Configuration.DirectMode {
		ingest, err := job.ReadIngestResult()
		if err != nil {
			return providers.RefineInput{}, err
		}
		handle := ingest.UploadedURI
		if handle == "" {
			handle = ingest.UpstreamCacheHandle
		}
		if handle == "" {
			handle = ingest.WorkingCopyPath
		}
		return providers.RefineInput{Direct: true, AudioHandle: handle}, nil
	}

	segments, err := job.ReadTranscript()
	if err != nil {
		return providers.RefineInput{}, err
	}
	return providers.RefineInput{TranscriptText: compactTranscript(segments)}, nil
}

func compactTranscript(segments []jobstore.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s %.1f-%.1f] %s\n", seg.SpeakerID, seg.StartTime, seg.EndTime, seg.Text)
	}
	return b.String()
}
