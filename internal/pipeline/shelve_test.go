package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkreel/internal/jobstore"
)

func setupShelveJob(t *testing.T, env *Environment, store *jobstore.Store, debug bool) *jobstore.Job {
	t.Helper()
	job, err := store.Create("source.wav", jobstore.Configuration{ShelveStrategy: "flat", Debug: debug}, time.Now().UTC())
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(job.ArtifactsDir(), "summary.md"), []byte("# Summary"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := job.WriteEnrichedContext(jobstore.EnrichedContext{"summary": "ok"}); err != nil {
		t.Fatalf("WriteEnrichedContext: %v", err)
	}
	return job
}

func TestShelveExecutorCopiesArtifactsIntoResultsDir(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := setupShelveJob(t, env, store, false)

	if _, err := ShelveExecutor(context.Background(), env, job); err != nil {
		t.Fatalf("ShelveExecutor: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(env.Config.Paths.ResultsDir, "Inbox"))
	if err != nil {
		t.Fatalf("ReadDir results/Inbox: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 shelved file, got %d", len(entries))
	}
}

func TestShelveExecutorPrunesWorkingDirectoriesUnlessDebug(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := setupShelveJob(t, env, store, false)

	if _, err := ShelveExecutor(context.Background(), env, job); err != nil {
		t.Fatalf("ShelveExecutor: %v", err)
	}
	for _, dir := range []string{job.MediaDir(), job.TranscriptsDir(), job.ArtifactsDir()} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("expected %s to be pruned, stat err = %v", dir, err)
		}
	}
}

func TestShelveExecutorRetainsWorkingDirectoriesInDebugMode(t *testing.T) {
	env, store := newTestEnvironment(t)
	job := setupShelveJob(t, env, store, true)

	if _, err := ShelveExecutor(context.Background(), env, job); err != nil {
		t.Fatalf("ShelveExecutor: %v", err)
	}
	if _, err := os.Stat(job.ArtifactsDir()); err != nil {
		t.Errorf("expected artifacts dir to survive in debug mode: %v", err)
	}
}
