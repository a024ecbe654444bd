package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"inkreel/internal/errs"
	"inkreel/internal/fileutil"
	"inkreel/internal/jobstore"
	"inkreel/internal/media"
	"inkreel/internal/media/ffprobe"
)

// IngestExecutor probes the source media, stages a working copy under the
// job's media/ directory, applies the configured compression mode, and
// records upload eligibility for providers with an upstream cache.
func IngestExecutor(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
	probe, err := ffprobe.Inspect(ctx, "ffprobe", job.Meta.Source)
	if err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, string(jobstore.StageIngest), "probe media",
			"ffprobe failed to inspect source media", "verify ffprobe is installed and on PATH", err)
	}

	workingCopyPath := filepath.Join(job.MediaDir(), filepath.Base(job.Meta.Source))
	if err := stageWorkingCopy(job.Meta.Source, workingCopyPath); err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageIngest), "stage source",
			"failed to copy source into the job's media directory", "check disk space and permissions on work_dir", err)
	}

	result := jobstore.IngestResult{
		SourcePath:      job.Meta.Source,
		WorkingCopyPath: workingCopyPath,
		DurationSeconds: probe.DurationSeconds(),
		Format:          strings.TrimPrefix(filepath.Ext(job.Meta.Source), "."),
		BitrateKbps:     int(probe.BitRate() / 1000),
	}

	mode := media.CompressionMode(job.Meta.Configuration.CompressionMode)
	if mode == "" {
		mode = media.ModeOriginal
	}
	if mode != media.ModeOriginal {
		compressedPath, err := media.Compress(ctx, workingCopyPath, job.MediaDir(), media.CompressOptions{
			Mode:            mode,
			BitrateKbps:     env.Config.Ingest.CompressedBitrateKbps,
			TotalSeconds:    probe.DurationSeconds(),
			ShowProgressBar: env.ShowProgressBar,
		})
		if err != nil {
			return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, string(jobstore.StageIngest), "compress media",
				"ffmpeg compression failed", "check that ffmpeg is installed and supports the configured compression mode", err)
		}
		result.CompressedPath = compressedPath
	}

	activePath := result.WorkingCopyPath
	if result.CompressedPath != "" {
		activePath = result.CompressedPath
	}

	if scribe, err := env.Providers.GetTranscription(job.Meta.Configuration.ScribeProvider, job.Meta.Configuration.ScribeModel); err == nil {
		specs := scribe.IngestSpecs()
		minSeconds := float64(env.Config.Ingest.UpstreamCacheMinDurationSeconds)
		if specs.NeedsUpstreamCache && minSeconds > 0 && result.DurationSeconds >= minSeconds {
			result.UpstreamCacheHandle = activePath
		}
		if specs.AcceptsURI {
			result.UploadedURI = "file://" + activePath
		}
	}

	return jobstore.UsageRecord{}, job.WriteIngestResult(result)
}

func stageWorkingCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return fileutil.CopyFileVerified(src, dst)
}
