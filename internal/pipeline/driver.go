package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"inkreel/internal/config"
	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/logging"
)

// RunOptions carries the per-invocation overrides `run` accepts on the CLI
// (spec §6); zero values fall back to the process config's defaults.
type RunOptions struct {
	StopAfter       jobstore.Stage
	Debug           bool
	SkipTranscript  bool
	CompressionMode string
	ScribeModel     string
	RefineModel     string
	ShelveStrategy  string
	LanguageHint    string
}

// StageExecutor performs one stage's work against a job and reports the
// UsageRecord it incurred (its zero value for stages that make no metered
// provider call). Side effects are confined to the job's own directory and
// the provider calls it makes.
type StageExecutor func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error)

// Driver orchestrates stage execution across a job's lifetime: the
// run/continue/retry operations from spec §4.2, each backed by the same
// ordered execution loop.
type Driver struct {
	env       *Environment
	executors map[jobstore.Stage]StageExecutor
}

// NewDriver wires the five built-in stage executors against env.
func NewDriver(env *Environment) *Driver {
	return &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageIngest:   IngestExecutor,
			jobstore.StageScribe:   ScribeExecutor,
			jobstore.StageRefine:   RefineExecutor,
			jobstore.StageGenerate: GenerateExecutor,
			jobstore.StageShelve:   ShelveExecutor,
		},
	}
}

// Run creates a new job from source and executes INGEST through
// opts.StopAfter (SHELVE if unset).
func (d *Driver) Run(ctx context.Context, source string, opts RunOptions) (*jobstore.Job, error) {
	cfg := configurationSnapshot(d.env.Config, opts)
	if _, err := d.env.Templates.AssembleSchema(cfg.Artifacts); err != nil {
		return nil, err
	}
	job, err := d.env.Store.Create(source, cfg, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := d.execute(ctx, job, jobstore.StageIngest, opts.StopAfter); err != nil {
		return job, err
	}
	return job, nil
}

// Continue resets fromStage and every later stage to PENDING, then executes
// fromStage through stopAfter (SHELVE if unset). jobID may be empty to
// select the most recently updated job.
func (d *Driver) Continue(ctx context.Context, jobID string, fromStage, stopAfter jobstore.Stage) (*jobstore.Job, error) {
	job, err := d.resolveJob(jobID)
	if err != nil {
		return nil, err
	}
	if err := job.ClearArtifactsFrom(fromStage, job.Meta.Configuration.Debug, time.Now()); err != nil {
		return job, errs.Wrap(errs.ErrTransient, string(fromStage), "clear artifacts", "failed to clear downstream artifacts before re-execution", "", err)
	}
	job.ResetFrom(fromStage)
	if err := d.env.Store.Save(job); err != nil {
		return job, err
	}
	if err := d.execute(ctx, job, fromStage, stopAfter); err != nil {
		return job, err
	}
	return job, nil
}

// Retry behaves like Continue but defaults fromStage to the job's first
// non-COMPLETED stage when fromStage is empty.
func (d *Driver) Retry(ctx context.Context, jobID string, fromStage jobstore.Stage) (*jobstore.Job, error) {
	job, err := d.resolveJob(jobID)
	if err != nil {
		return nil, err
	}
	if fromStage == "" {
		stage, incomplete := job.FirstIncompleteStage()
		if !incomplete {
			return job, nil
		}
		fromStage = stage
	}
	return d.Continue(ctx, job.ID, fromStage, jobstore.StageShelve)
}

func (d *Driver) resolveJob(jobID string) (*jobstore.Job, error) {
	if jobID != "" {
		return d.env.Store.Load(jobID)
	}
	job, err := d.env.Store.Latest(nil)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errs.Wrap(errs.ErrNotFound, "", "resolve job", "no jobs exist yet", "run `inkreel run <source>` first", nil)
	}
	return job, nil
}

// execute runs every stage from `from` through `stopAfter` inclusive
// (SHELVE if stopAfter is empty), validating prerequisites before each
// stage and halting without cascading on the first failure.
func (d *Driver) execute(ctx context.Context, job *jobstore.Job, from, stopAfter jobstore.Stage) error {
	if stopAfter == "" {
		stopAfter = jobstore.StageShelve
	}
	startIdx := from.Index()
	stopIdx := stopAfter.Index()
	if startIdx < 0 || stopIdx < 0 || stopIdx < startIdx {
		return fmt.Errorf("pipeline: invalid stage range %q..%q", from, stopAfter)
	}

	logger := d.env.logger()
	for _, stage := range jobstore.Stages[startIdx : stopIdx+1] {
		requestID := uuid.NewString()
		stageCtx := errs.WithRequestID(errs.WithStage(errs.WithJobID(ctx, job.ID), string(stage)), requestID)
		stageLogger := logging.WithContext(stageCtx, logger)

		if stage == jobstore.StageScribe && job.Meta.Configuration.DirectMode {
			d.skipStage(job, stage)
			if err := d.env.Store.Save(job); err != nil {
				return err
			}
			stageLogger.Info("stage skipped", logging.String(logging.FieldEventType, "stage_skip"), logging.String("reason", "direct_mode"))
			continue
		}

		if err := validatePrerequisites(stage, job); err != nil {
			d.failStage(job, stage, err)
			now := time.Now().UTC()
			_ = job.WriteStageDetail(stage, jobstore.StageDetail{
				Status: jobstore.StageFailed, StartedAt: now, EndedAt: now, Error: err.Error(),
			})
			_ = job.RecomputeProcessing()
			stageLogger.Error("stage prerequisites not met", logging.Error(err), logging.String(logging.FieldEventType, "prerequisite_failed"))
			_ = d.env.Store.Save(job)
			return err
		}

		startedAt := time.Now().UTC()
		d.startStage(job, stage, startedAt)
		if err := d.env.Store.Save(job); err != nil {
			return err
		}
		stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

		usage, execErr := d.executors[stage](stageCtx, d.env, job)
		endedAt := time.Now().UTC()

		if execErr != nil {
			if errs.Retryable(execErr) {
				stageLogger.Warn("stage failed with a retryable error but retries were exhausted",
					logging.Error(execErr), logging.String(logging.FieldEventType, "stage_retry_exhausted"))
			}
			d.failStage(job, stage, execErr)
			_ = job.WriteStageDetail(stage, jobstore.StageDetail{
				Status: jobstore.StageFailed, StartedAt: startedAt, EndedAt: endedAt, Error: execErr.Error(),
			})
			_ = job.RecomputeProcessing()
			_ = d.env.Store.Save(job)
			stageLogger.Error("stage failed", logging.Error(execErr), logging.String(logging.FieldEventType, "stage_failure"))
			return execErr
		}

		d.completeStage(job, stage, endedAt)
		detail := jobstore.StageDetail{Status: jobstore.StageCompleted, StartedAt: startedAt, EndedAt: endedAt}
		if usage != (jobstore.UsageRecord{}) {
			detail.Usage = &usage
		}
		_ = job.WriteStageDetail(stage, detail)
		if err := job.RecomputeProcessing(); err != nil {
			return err
		}
		if err := d.env.Store.Save(job); err != nil {
			return err
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", endedAt.Sub(startedAt)))
	}

	if stopIdx == jobstore.StageShelve.Index() {
		job.State.Status = jobstore.JobCompleted
		return d.env.Store.Save(job)
	}
	return nil
}

func (d *Driver) startStage(job *jobstore.Job, stage jobstore.Stage, at time.Time) {
	rec := job.StageRecordFor(stage)
	rec.Status = jobstore.StageRunning
	rec.StartedAt = &at
	rec.FinishedAt = nil
	rec.Error = ""
	job.State.Status = jobstore.JobRunning
	job.State.UpdatedAt = at
}

func (d *Driver) completeStage(job *jobstore.Job, stage jobstore.Stage, at time.Time) {
	rec := job.StageRecordFor(stage)
	rec.Status = jobstore.StageCompleted
	rec.FinishedAt = &at
	rec.Error = ""
	job.State.UpdatedAt = at
}

func (d *Driver) skipStage(job *jobstore.Job, stage jobstore.Stage) {
	at := time.Now().UTC()
	rec := job.StageRecordFor(stage)
	rec.Status = jobstore.StageSkipped
	rec.StartedAt = &at
	rec.FinishedAt = &at
	rec.Error = ""
	job.State.UpdatedAt = at
}

func (d *Driver) failStage(job *jobstore.Job, stage jobstore.Stage, err error) {
	at := time.Now().UTC()
	rec := job.StageRecordFor(stage)
	rec.Status = jobstore.StageFailed
	rec.FinishedAt = &at
	rec.Error = err.Error()
	job.State.Status = jobstore.JobFailed
	job.State.UpdatedAt = at
}

// Prerequisite failure cause codes (spec §4.2). These are mechanical,
// per-stage checks; the code is the stable identifier a caller or log line
// can match on, the message after it is for humans.
const (
	ReasonFileMissing        = "FileMissing"
	ReasonFileEmpty          = "FileEmpty"
	ReasonMissingIngest      = "MissingIngest"
	ReasonMissingRefineInput = "MissingRefineInput"
	ReasonMissingContext     = "MissingContext"
	ReasonNoArtifacts        = "NoArtifacts"
)

// validatePrerequisites implements the mechanical per-stage prerequisite
// policy from spec §4.2.
func validatePrerequisites(stage jobstore.Stage, job *jobstore.Job) error {
	switch stage {
	case jobstore.StageIngest:
		info, err := os.Stat(job.Meta.Source)
		if err != nil {
			return errs.Wrap(errs.ErrValidation, string(stage), "validate_prerequisites", ReasonFileMissing+": source media file does not exist", "check the source path", err)
		}
		if info.Size() == 0 {
			return errs.Wrap(errs.ErrValidation, string(stage), "validate_prerequisites", ReasonFileEmpty+": source media file is empty", "check the source path", nil)
		}
		return nil
	case jobstore.StageScribe:
		if _, err := job.ReadIngestResult(); err != nil {
			return errs.Wrap(errs.ErrValidation, string(stage), "validate_prerequisites", ReasonMissingIngest+": ingest.json missing", "run `inkreel ingest` first", err)
		}
		return nil
	case jobstore.StageRefine:
		_, transcriptErr := job.ReadTranscript()
		_, ingestErr := job.ReadIngestResult()
		direct := job.Meta.Configuration.DirectMode
		switch {
		case transcriptErr == nil && !direct:
			return nil
		case ingestErr == nil && direct:
			return nil
		default:
			return errs.Wrap(errs.ErrValidation, string(stage), "validate_prerequisites",
				ReasonMissingRefineInput+": need either a completed transcript or an ingest handle in direct mode",
				"run `inkreel scribe` first, or enable direct_mode", nil)
		}
	case jobstore.StageGenerate:
		if _, err := job.ReadEnrichedContext(); err != nil {
			return errs.Wrap(errs.ErrValidation, string(stage), "validate_prerequisites", ReasonMissingContext+": enriched_context.json missing", "run `inkreel refine` first", err)
		}
		return nil
	case jobstore.StageShelve:
		entries, err := os.ReadDir(job.ArtifactsDir())
		if err != nil || len(entries) == 0 {
			return errs.Wrap(errs.ErrValidation, string(stage), "validate_prerequisites", ReasonNoArtifacts+": no artifacts to shelve", "run `inkreel generate` first", err)
		}
		return nil
	default:
		return fmt.Errorf("pipeline: unknown stage %q", stage)
	}
}

// configurationSnapshot freezes the process config plus any `run` overrides
// into the Configuration stored on the job at creation time; later edits to
// cfg never retroactively affect this job (spec §3).
func configurationSnapshot(cfg *config.Config, opts RunOptions) jobstore.Configuration {
	compression := firstNonEmpty(opts.CompressionMode, cfg.Ingest.CompressionMode)
	scribeModel := firstNonEmpty(opts.ScribeModel, cfg.Scribe.Model)
	refineModel := firstNonEmpty(opts.RefineModel, cfg.Refine.Model)
	shelveStrategy := firstNonEmpty(opts.ShelveStrategy, cfg.Shelve.Strategy)
	languageHint := firstNonEmpty(opts.LanguageHint, cfg.Scribe.LanguageHint)

	artifacts := make([]jobstore.ArtifactSpec, 0, len(cfg.Artifacts))
	for _, a := range cfg.Artifacts {
		artifacts = append(artifacts, jobstore.ArtifactSpec{Plugin: a.Plugin, Template: a.Template, Filename: a.Filename})
	}

	return jobstore.Configuration{
		ScribeProvider:  cfg.Scribe.Provider,
		ScribeModel:     scribeModel,
		RefineProvider:  cfg.Refine.Provider,
		RefineModel:     refineModel,
		CompressionMode: compression,
		LanguageHint:    languageHint,
		DirectMode:      cfg.Refine.DirectMode || opts.SkipTranscript,
		Artifacts:       artifacts,
		ShelveStrategy:  shelveStrategy,
		Debug:           opts.Debug,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
