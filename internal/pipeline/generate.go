package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/logging"
)

// ErrMissingRenderInput signals a plugin declining to render an artifact
// because a declared input is absent (e.g. a subtitle plugin asked to run
// against a direct-mode job with no raw transcript). GENERATE treats this
// as a per-artifact skip, not a stage failure.
var ErrMissingRenderInput = errors.New("missing render input")

// ReasonNoTranscriptForSubtitles is the skip reason a renderer attaches to
// ErrMissingRenderInput when it declines because no transcript is available
// (spec §8 scenario 4: direct mode with a subtitles artifact configured).
const ReasonNoTranscriptForSubtitles = "NoTranscriptForSubtitles"

// GenerateExecutor renders every configured artifact through its plugin and
// writes the result under artifacts/, skipping (with a logged reason)
// artifacts whose declared inputs are unavailable.
func GenerateExecutor(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
	enriched, err := job.ReadEnrichedContext()
	if err != nil {
		return jobstore.UsageRecord{}, err
	}
	transcript, _ := job.ReadTranscript() // absent in direct mode; plugins needing it skip themselves

	logger := logging.WithContext(ctx, env.logger())
	rendered := 0
	for _, spec := range job.Meta.Configuration.Artifacts {
		declaration, lookupErr := env.Templates.Lookup(spec.Plugin, spec.Template)
		if lookupErr != nil {
			logger.Warn("skipping artifact: template not found",
				logging.String("plugin", spec.Plugin), logging.String("template", spec.Template), logging.Error(lookupErr))
			continue
		}
		renderer, ok := env.Renderers[spec.Plugin]
		if !ok {
			logger.Warn("skipping artifact: no renderer registered for plugin", logging.String("plugin", spec.Plugin))
			continue
		}

		data, suggested, renderErr := renderer.Render(declaration, enriched, transcript)
		if renderErr != nil {
			if errors.Is(renderErr, ErrMissingRenderInput) {
				logger.Info("skipping artifact: declared input unavailable",
					logging.String("plugin", spec.Plugin), logging.String("template", spec.Template), logging.Error(renderErr))
				continue
			}
			return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, string(jobstore.StageGenerate), "render artifact",
				fmt.Sprintf("plugin %q failed to render template %q", spec.Plugin, spec.Template), "", renderErr)
		}

		filename := spec.Filename
		if filename == "" {
			filename = suggested
		}
		if err := os.WriteFile(filepath.Join(job.ArtifactsDir(), filename), data, 0o644); err != nil {
			return jobstore.UsageRecord{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageGenerate), "write artifact",
				"failed to write rendered artifact", "", err)
		}
		rendered++
	}

	if len(job.Meta.Configuration.Artifacts) > 0 && rendered == 0 {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrValidation, string(jobstore.StageGenerate), "render artifacts",
			"no artifacts were rendered", "check the configured artifact list and template declarations", nil)
	}
	return jobstore.UsageRecord{}, nil
}
