package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/providers"
)

type fakeTranscriber struct {
	specs       providers.IngestSpecs
	segments    []jobstore.TranscriptSegment
	usage       jobstore.UsageRecord
	failures    int // number of leading calls that fail before succeeding
	calls       int
	failWithErr error
}

func (f *fakeTranscriber) IngestSpecs() providers.IngestSpecs { return f.specs }

func (f *fakeTranscriber) Transcribe(ctx context.Context, ingest jobstore.IngestResult, languageHint string, retry providers.RetryPolicy, sink providers.SegmentSink) (jobstore.UsageRecord, error) {
	f.calls++
	if f.calls <= f.failures {
		return jobstore.UsageRecord{}, f.failWithErr
	}
	for _, seg := range f.segments {
		if err := sink.Append(seg); err != nil {
			return jobstore.UsageRecord{}, err
		}
	}
	return f.usage, nil
}

func setupScribeEnv(t *testing.T, transcriber *fakeTranscriber) (*Environment, *jobstore.Job) {
	t.Helper()
	env, store := newTestEnvironment(t)
	registry := providers.NewRegistry("")
	registry.RegisterDescriptor(jobstore.ProviderDescriptor{Name: "teststt", Capabilities: []string{providers.CapabilityTranscription}})
	registry.RegisterTranscriber("teststt", func(d jobstore.ProviderDescriptor, model string) (providers.Transcriber, error) {
		return transcriber, nil
	})
	env.Providers = registry

	job, err := store.Create("source.wav", jobstore.Configuration{ScribeProvider: "teststt"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	if err := job.WriteIngestResult(jobstore.IngestResult{WorkingCopyPath: "source.wav"}); err != nil {
		t.Fatalf("WriteIngestResult: %v", err)
	}
	return env, job
}

func TestScribeExecutorWritesTranscriptAndRecordsUsage(t *testing.T) {
	transcriber := &fakeTranscriber{
		segments: []jobstore.TranscriptSegment{
			{SpeakerID: "A", StartTime: 0, EndTime: 1.5, Text: "hello there"},
			{SpeakerID: "B", StartTime: 1.5, EndTime: 3, Text: "hi"},
		},
		usage: jobstore.UsageRecord{InputTokens: 10, OutputTokens: 5, CostUSD: 0.01},
	}
	env, job := setupScribeEnv(t, transcriber)

	usage, err := ScribeExecutor(context.Background(), env, job)
	if err != nil {
		t.Fatalf("ScribeExecutor: %v", err)
	}

	segments, err := job.ReadTranscript()
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if usage.InputTokens+usage.OutputTokens != 15 {
		t.Errorf("usage tokens = %d, want 15", usage.InputTokens+usage.OutputTokens)
	}
	if usage.Stage != jobstore.StageScribe {
		t.Errorf("usage.Stage = %q, want %q", usage.Stage, jobstore.StageScribe)
	}
}

func TestScribeExecutorRetriesTransientFailuresWithFreshWriter(t *testing.T) {
	transcriber := &fakeTranscriber{
		failures:    1,
		failWithErr: errs.Wrap(errs.ErrTransient, string(jobstore.StageScribe), "transcribe", "provider timed out", "", nil),
		segments:    []jobstore.TranscriptSegment{{StartTime: 0, EndTime: 1, Text: "retried ok"}},
	}
	env, job := setupScribeEnv(t, transcriber)
	env.Config.Pipeline.RetryMax = 3
	env.Config.Pipeline.RetryDelaySeconds = 0

	if _, err := ScribeExecutor(context.Background(), env, job); err != nil {
		t.Fatalf("ScribeExecutor: %v", err)
	}
	if transcriber.calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", transcriber.calls)
	}
	segments, err := job.ReadTranscript()
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected the retried attempt's single segment, got %d", len(segments))
	}
}

func TestScribeExecutorFailsImmediatelyOnNonRetryableError(t *testing.T) {
	transcriber := &fakeTranscriber{
		failures:    1,
		failWithErr: errs.Wrap(errs.ErrConfiguration, string(jobstore.StageScribe), "transcribe", "bad api key", "", nil),
	}
	env, job := setupScribeEnv(t, transcriber)
	env.Config.Pipeline.RetryMax = 3

	_, err := ScribeExecutor(context.Background(), env, job)
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration to propagate, got %v", err)
	}
	if transcriber.calls != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable error, got %d", transcriber.calls)
	}
}

func TestScribeExecutorFailsAfterExhaustingRetries(t *testing.T) {
	transcriber := &fakeTranscriber{
		failures:    99,
		failWithErr: errs.Wrap(errs.ErrTransient, string(jobstore.StageScribe), "transcribe", "provider unavailable", "", nil),
	}
	env, job := setupScribeEnv(t, transcriber)
	env.Config.Pipeline.RetryMax = 2
	env.Config.Pipeline.RetryDelaySeconds = 0

	_, err := ScribeExecutor(context.Background(), env, job)
	if !errors.Is(err, errs.ErrTransient) {
		t.Fatalf("expected ErrTransient to propagate after exhausting retries, got %v", err)
	}
	if transcriber.calls != 2 {
		t.Fatalf("expected exactly RetryMax attempts, got %d", transcriber.calls)
	}
}
