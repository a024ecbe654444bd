package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkreel/internal/config"
	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/templates"
)

func newTestEnvironment(t *testing.T) (*Environment, *jobstore.Store) {
	t.Helper()
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	cfg := &config.Config{}
	cfg.Pipeline.RetryMax = 2
	cfg.Pipeline.RetryDelaySeconds = 0
	cfg.Shelve.Strategy = "flat"
	cfg.Paths.ResultsDir = t.TempDir()
	return &Environment{Store: store, Config: cfg}, store
}

func newTestJob(t *testing.T, store *jobstore.Store) *jobstore.Job {
	t.Helper()
	source := filepath.Join(t.TempDir(), "source.wav")
	if err := writeFile(source, []byte("not really audio")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	job, err := store.Create(source, jobstore.Configuration{}, time.Now().UTC())
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

func TestDriverExecuteRunsStagesInOrderAndPersists(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)

	var ran []jobstore.Stage
	noop := func(stage jobstore.Stage) StageExecutor {
		return func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
			ran = append(ran, stage)
			return jobstore.UsageRecord{}, writeStageOutput(job, stage)
		}
	}
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageIngest:   noop(jobstore.StageIngest),
			jobstore.StageScribe:   noop(jobstore.StageScribe),
			jobstore.StageRefine:   noop(jobstore.StageRefine),
			jobstore.StageGenerate: noop(jobstore.StageGenerate),
			jobstore.StageShelve:   noop(jobstore.StageShelve),
		},
	}

	if err := d.execute(context.Background(), job, jobstore.StageIngest, jobstore.StageShelve); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(ran) != 5 {
		t.Fatalf("expected all five stages to run, got %v", ran)
	}
	for _, stage := range jobstore.Stages {
		rec := job.StageRecordFor(stage)
		if rec.Status != jobstore.StageCompleted {
			t.Errorf("stage %s: expected COMPLETED, got %s", stage, rec.Status)
		}
	}
	if job.State.Status != jobstore.JobCompleted {
		t.Errorf("expected job status COMPLETED, got %s", job.State.Status)
	}

	reloaded, err := store.Load(job.ID)
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	if reloaded.State.Status != jobstore.JobCompleted {
		t.Errorf("persisted job status = %s, want COMPLETED", reloaded.State.Status)
	}
}

func TestDriverExecuteStopsAfterRequestedStage(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)

	var ran []jobstore.Stage
	noop := func(stage jobstore.Stage) StageExecutor {
		return func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
			ran = append(ran, stage)
			return jobstore.UsageRecord{}, writeStageOutput(job, stage)
		}
	}
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageIngest: noop(jobstore.StageIngest),
			jobstore.StageScribe: noop(jobstore.StageScribe),
		},
	}

	if err := d.execute(context.Background(), job, jobstore.StageIngest, jobstore.StageScribe); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("expected exactly two stages to run, got %v", ran)
	}
	if job.State.Status == jobstore.JobCompleted {
		t.Error("job should not be marked COMPLETED when stopping before SHELVE")
	}
}

func TestDriverExecuteHaltsOnFirstFailureWithoutCascading(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)

	var ran []jobstore.Stage
	boom := errs.Wrap(errs.ErrValidation, string(jobstore.StageScribe), "transcribe", "provider rejected input", "", nil)
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageIngest: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				ran = append(ran, jobstore.StageIngest)
				return jobstore.UsageRecord{}, writeStageOutput(job, jobstore.StageIngest)
			},
			jobstore.StageScribe: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				ran = append(ran, jobstore.StageScribe)
				return jobstore.UsageRecord{}, boom
			},
			jobstore.StageRefine: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				ran = append(ran, jobstore.StageRefine)
				return jobstore.UsageRecord{}, nil
			},
		},
	}

	err := d.execute(context.Background(), job, jobstore.StageIngest, jobstore.StageRefine)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected the SCRIBE error to propagate, got %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("REFINE should never have run after SCRIBE failed, ran = %v", ran)
	}
	if job.StageRecordFor(jobstore.StageIngest).Status != jobstore.StageCompleted {
		t.Error("INGEST should remain COMPLETED")
	}
	if job.StageRecordFor(jobstore.StageScribe).Status != jobstore.StageFailed {
		t.Error("SCRIBE should be marked FAILED")
	}
	if job.State.Status != jobstore.JobFailed {
		t.Errorf("job status = %s, want FAILED", job.State.Status)
	}

	detail, derr := job.ReadStageDetail(jobstore.StageScribe)
	if derr != nil {
		t.Fatalf("ReadStageDetail: %v", derr)
	}
	if detail.Status != jobstore.StageFailed || detail.Error == "" {
		t.Errorf("expected a FAILED stage detail with a non-empty error, got %+v", detail)
	}
}

func TestDriverExecuteWritesUsageToStageDetailAndRecomputesProcessing(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)
	if err := writeStageOutput(job, jobstore.StageIngest); err != nil {
		t.Fatalf("seed ingest.json: %v", err)
	}

	scribeUsage := jobstore.UsageRecord{Stage: jobstore.StageScribe, InputTokens: 10, CostUSD: 0.25}
	refineUsage := jobstore.UsageRecord{Stage: jobstore.StageRefine, InputTokens: 20, CostUSD: 0.5}
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageScribe: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return scribeUsage, writeStageOutput(job, jobstore.StageScribe)
			},
			jobstore.StageRefine: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return refineUsage, nil
			},
		},
	}

	if err := d.execute(context.Background(), job, jobstore.StageScribe, jobstore.StageRefine); err != nil {
		t.Fatalf("execute: %v", err)
	}

	scribeDetail, err := job.ReadStageDetail(jobstore.StageScribe)
	if err != nil {
		t.Fatalf("ReadStageDetail(scribe): %v", err)
	}
	if scribeDetail.Usage == nil || scribeDetail.Usage.CostUSD != 0.25 {
		t.Fatalf("expected scribe stage detail to carry its usage record, got %+v", scribeDetail.Usage)
	}
	refineDetail, err := job.ReadStageDetail(jobstore.StageRefine)
	if err != nil {
		t.Fatalf("ReadStageDetail(refine): %v", err)
	}
	if refineDetail.Usage == nil || refineDetail.Usage.CostUSD != 0.5 {
		t.Fatalf("expected refine stage detail to carry its usage record, got %+v", refineDetail.Usage)
	}
	if job.Meta.Processing.TotalCostUSD != 0.75 {
		t.Errorf("Meta.Processing.TotalCostUSD = %v, want 0.75", job.Meta.Processing.TotalCostUSD)
	}
}

func TestDriverExecuteWritesStageDetailOnPrerequisiteFailure(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)

	d := &Driver{env: env, executors: map[jobstore.Stage]StageExecutor{}}
	err := d.execute(context.Background(), job, jobstore.StageScribe, jobstore.StageScribe)
	if err == nil {
		t.Fatal("expected SCRIBE prerequisites to fail without ingest.json")
	}

	detail, derr := job.ReadStageDetail(jobstore.StageScribe)
	if derr != nil {
		t.Fatalf("ReadStageDetail: %v", derr)
	}
	if detail.Status != jobstore.StageFailed || detail.Error == "" {
		t.Errorf("expected a FAILED stage detail recorded for the prerequisite failure, got %+v", detail)
	}
}

func TestDriverContinueResetsFromStageOnward(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)
	for _, stage := range jobstore.Stages {
		job.StageRecordFor(stage).Status = jobstore.StageCompleted
	}
	if err := store.Save(job); err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	if err := writeStageOutput(job, jobstore.StageScribe); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	var ranRefine bool
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageRefine: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				ranRefine = true
				return jobstore.UsageRecord{}, writeStageOutput(job, jobstore.StageRefine)
			},
			jobstore.StageGenerate: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return jobstore.UsageRecord{}, writeStageOutput(job, jobstore.StageGenerate)
			},
			jobstore.StageShelve: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return jobstore.UsageRecord{}, nil
			},
		},
	}

	result, err := d.Continue(context.Background(), job.ID, jobstore.StageRefine, jobstore.StageShelve)
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if !ranRefine {
		t.Error("expected REFINE to re-run")
	}
	if result.StageRecordFor(jobstore.StageIngest).Status != jobstore.StageCompleted {
		t.Error("INGEST should be untouched by ResetFrom(REFINE)")
	}
	if result.StageRecordFor(jobstore.StageShelve).Status != jobstore.StageCompleted {
		t.Error("SHELVE should complete again after being reset and re-run")
	}
}

func TestDriverRetryDefaultsToFirstIncompleteStage(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)
	job.StageRecordFor(jobstore.StageIngest).Status = jobstore.StageCompleted
	job.StageRecordFor(jobstore.StageScribe).Status = jobstore.StageFailed
	if err := store.Save(job); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	if err := writeStageOutput(job, jobstore.StageIngest); err != nil {
		t.Fatalf("seed ingest.json: %v", err)
	}

	var ranFrom jobstore.Stage
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageScribe: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				ranFrom = jobstore.StageScribe
				return jobstore.UsageRecord{}, writeStageOutput(job, jobstore.StageScribe)
			},
			jobstore.StageRefine: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return jobstore.UsageRecord{}, writeStageOutput(job, jobstore.StageRefine)
			},
			jobstore.StageGenerate: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return jobstore.UsageRecord{}, writeStageOutput(job, jobstore.StageGenerate)
			},
			jobstore.StageShelve: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				return jobstore.UsageRecord{}, nil
			},
		},
	}

	if _, err := d.Retry(context.Background(), job.ID, ""); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if ranFrom != jobstore.StageScribe {
		t.Errorf("expected retry to resume from SCRIBE, resumed from %q", ranFrom)
	}
}

func TestDriverRetryIsNoopWhenJobAlreadyComplete(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := newTestJob(t, store)
	for _, stage := range jobstore.Stages {
		job.StageRecordFor(stage).Status = jobstore.StageCompleted
	}
	job.State.Status = jobstore.JobCompleted
	if err := store.Save(job); err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	d := &Driver{env: env, executors: map[jobstore.Stage]StageExecutor{}}
	result, err := d.Retry(context.Background(), job.ID, "")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result.State.Status != jobstore.JobCompleted {
		t.Errorf("expected job to remain COMPLETED, got %s", result.State.Status)
	}
}

func TestDriverResolveJobFallsBackToLatestWhenIDEmpty(t *testing.T) {
	env, store := newTestEnvironment(t)
	older := newTestJob(t, store)
	time.Sleep(time.Millisecond)
	newer := newTestJob(t, store)
	if err := store.Save(newer); err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	d := &Driver{env: env}
	resolved, err := d.resolveJob("")
	if err != nil {
		t.Fatalf("resolveJob: %v", err)
	}
	if resolved.ID != newer.ID {
		t.Errorf("resolveJob(\"\") = %s, want the most recently updated job %s (older was %s)", resolved.ID, newer.ID, older.ID)
	}
}

func TestDriverResolveJobErrorsWhenStoreEmpty(t *testing.T) {
	env, _ := newTestEnvironment(t)
	d := &Driver{env: env}
	if _, err := d.resolveJob(""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDriverExecuteSkipsScribeInDirectMode(t *testing.T) {
	env, store := newTestEnvironment(t)
	job, err := store.Create("lecture.mp3", jobstore.Configuration{DirectMode: true}, time.Now().UTC())
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	if err := job.WriteIngestResult(jobstore.IngestResult{WorkingCopyPath: "lecture.mp3"}); err != nil {
		t.Fatalf("WriteIngestResult: %v", err)
	}

	var scribeRan, refineRan bool
	d := &Driver{
		env: env,
		executors: map[jobstore.Stage]StageExecutor{
			jobstore.StageScribe: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				scribeRan = true
				return jobstore.UsageRecord{}, nil
			},
			jobstore.StageRefine: func(ctx context.Context, env *Environment, job *jobstore.Job) (jobstore.UsageRecord, error) {
				refineRan = true
				return jobstore.UsageRecord{}, nil
			},
		},
	}

	if err := d.execute(context.Background(), job, jobstore.StageScribe, jobstore.StageRefine); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if scribeRan {
		t.Error("SCRIBE should not run in direct mode, only be marked SKIPPED")
	}
	if !refineRan {
		t.Error("REFINE should still run after SCRIBE is skipped")
	}
	if job.StageRecordFor(jobstore.StageScribe).Status != jobstore.StageSkipped {
		t.Errorf("SCRIBE status = %s, want SKIPPED", job.StageRecordFor(jobstore.StageScribe).Status)
	}
}

func TestConfigurationSnapshotSkipTranscriptImpliesDirectMode(t *testing.T) {
	cfg := &config.Config{}
	snapshot := configurationSnapshot(cfg, RunOptions{SkipTranscript: true})
	if !snapshot.DirectMode {
		t.Error("expected SkipTranscript to imply DirectMode on the frozen configuration")
	}
}

func TestValidatePrerequisites(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}

	sourceDir := t.TempDir()
	sourcePath := sourceDir + "/source.wav"
	if err := writeFile(sourcePath, []byte("not really audio")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	t.Run("ingest requires a non-empty source file", func(t *testing.T) {
		job, err := store.Create(sourcePath, jobstore.Configuration{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageIngest, job); err != nil {
			t.Errorf("expected ingest prerequisites to pass, got %v", err)
		}

		missing, err := store.Create(sourceDir+"/missing.wav", jobstore.Configuration{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageIngest, missing); err == nil {
			t.Error("expected ingest prerequisites to fail for a missing source file")
		}
	})

	t.Run("scribe requires ingest.json", func(t *testing.T) {
		job, err := store.Create(sourcePath, jobstore.Configuration{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageScribe, job); err == nil {
			t.Error("expected scribe prerequisites to fail without ingest.json")
		}
		if err := job.WriteIngestResult(jobstore.IngestResult{}); err != nil {
			t.Fatalf("WriteIngestResult: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageScribe, job); err != nil {
			t.Errorf("expected scribe prerequisites to pass, got %v", err)
		}
	})

	t.Run("refine accepts a transcript in standard mode", func(t *testing.T) {
		job, err := store.Create(sourcePath, jobstore.Configuration{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageRefine, job); err == nil {
			t.Error("expected refine prerequisites to fail with nothing recorded")
		}
		writer, err := jobstore.NewSegmentWriter(job)
		if err != nil {
			t.Fatalf("NewSegmentWriter: %v", err)
		}
		if err := writer.Append(jobstore.TranscriptSegment{StartTime: 0, EndTime: 1, Text: "hello"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := writer.Finalize(); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageRefine, job); err != nil {
			t.Errorf("expected refine prerequisites to pass with a transcript, got %v", err)
		}
	})

	t.Run("refine accepts an ingest handle in direct mode", func(t *testing.T) {
		job, err := store.Create(sourcePath, jobstore.Configuration{DirectMode: true}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageRefine, job); err == nil {
			t.Error("expected refine prerequisites to fail without an ingest handle")
		}
		if err := job.WriteIngestResult(jobstore.IngestResult{WorkingCopyPath: sourcePath}); err != nil {
			t.Fatalf("WriteIngestResult: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageRefine, job); err != nil {
			t.Errorf("expected refine prerequisites to pass in direct mode, got %v", err)
		}
	})

	t.Run("generate requires enriched_context.json", func(t *testing.T) {
		job, err := store.Create(sourcePath, jobstore.Configuration{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageGenerate, job); err == nil {
			t.Error("expected generate prerequisites to fail without enriched_context.json")
		}
		if err := job.WriteEnrichedContext(jobstore.EnrichedContext{"summary": "ok"}); err != nil {
			t.Fatalf("WriteEnrichedContext: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageGenerate, job); err != nil {
			t.Errorf("expected generate prerequisites to pass, got %v", err)
		}
	})

	t.Run("shelve requires at least one artifact on disk", func(t *testing.T) {
		job, err := store.Create(sourcePath, jobstore.Configuration{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("store.Create: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageShelve, job); err == nil {
			t.Error("expected shelve prerequisites to fail with no artifacts")
		}
		if err := writeFile(job.ArtifactsDir()+"/summary.md", []byte("# summary")); err != nil {
			t.Fatalf("writeFile: %v", err)
		}
		if err := validatePrerequisites(jobstore.StageShelve, job); err != nil {
			t.Errorf("expected shelve prerequisites to pass, got %v", err)
		}
	})
}

func TestConfigurationSnapshotPrefersRunOptionsOverConfigDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scribe.Provider = "localwhisper"
	cfg.Scribe.Model = "base"
	cfg.Refine.Provider = "openrelay"
	cfg.Refine.DirectMode = false
	cfg.Ingest.CompressionMode = "original"
	cfg.Shelve.Strategy = "timeline"

	snapshot := configurationSnapshot(cfg, RunOptions{
		ScribeModel:    "large",
		CompressionMode: "optimized",
		ShelveStrategy: "zettelkasten",
		Debug:          true,
	})

	if snapshot.ScribeProvider != "localwhisper" {
		t.Errorf("ScribeProvider = %q, want localwhisper (from config)", snapshot.ScribeProvider)
	}
	if snapshot.ScribeModel != "large" {
		t.Errorf("ScribeModel = %q, want large (from RunOptions override)", snapshot.ScribeModel)
	}
	if snapshot.CompressionMode != "optimized" {
		t.Errorf("CompressionMode = %q, want optimized (from RunOptions override)", snapshot.CompressionMode)
	}
	if snapshot.ShelveStrategy != "zettelkasten" {
		t.Errorf("ShelveStrategy = %q, want zettelkasten (from RunOptions override)", snapshot.ShelveStrategy)
	}
	if !snapshot.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestDriverRunRejectsConflictingTemplatesBeforeCreatingJob(t *testing.T) {
	env, store := newTestEnvironment(t)
	env.Templates = newTemplatesRegistryWithSummary(t)
	env.Config.Artifacts = []config.ArtifactSpec{
		{Plugin: "markdown", Template: "summary"},
		{Plugin: "markdown", Template: "conflicting"},
	}

	d := NewDriver(env)
	_, err := d.Run(context.Background(), "source.wav", RunOptions{})
	if err == nil {
		t.Fatal("expected Run to fail on a template schema conflict")
	}
	var conflict *templates.TemplateSchemaConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected a *templates.TemplateSchemaConflict, got %v (%T)", err, err)
	}

	jobs, err := store.List(jobstore.ListFilter{})
	if err != nil {
		t.Fatalf("store.List: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected no job to be created, found %d", len(jobs))
	}
}

// writeStageOutput writes what a real executor for stage leaves on disk and
// the next stage's validatePrerequisites checks for, so tests that stub out
// executors still satisfy the prerequisite policy. SHELVE writes nothing.
func writeStageOutput(job *jobstore.Job, stage jobstore.Stage) error {
	switch stage {
	case jobstore.StageIngest:
		return job.WriteIngestResult(jobstore.IngestResult{WorkingCopyPath: job.Meta.Source})
	case jobstore.StageScribe:
		writer, err := jobstore.NewSegmentWriter(job)
		if err != nil {
			return err
		}
		if err := writer.Append(jobstore.TranscriptSegment{StartTime: 0, EndTime: 1, Text: "hello"}); err != nil {
			return err
		}
		return writer.Finalize()
	case jobstore.StageRefine:
		return job.WriteEnrichedContext(jobstore.EnrichedContext{"summary": "ok"})
	case jobstore.StageGenerate:
		return writeFile(filepath.Join(job.ArtifactsDir(), "summary.md"), []byte("# summary"))
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
