package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkreel/internal/config"
	"inkreel/internal/jobstore"
	"inkreel/internal/logging"
)

func newTestWatcher(t *testing.T, cfg *config.Config) *Watcher {
	t.Helper()
	logger := logging.NewNop()
	return New(cfg, nil, logger)
}

func TestScanOnceDefersUntilSizeIsStable(t *testing.T) {
	inputDir := t.TempDir()
	cfg := &config.Config{Paths: config.Paths{InputDir: inputDir}, Watch: config.Watch{DebounceSeconds: 1}}
	w := newTestWatcher(t, cfg)

	path := filepath.Join(inputDir, "lecture.mp3")
	if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	w.scanOnce(nil)
	if _, tracking := w.tracked[path]; !tracking {
		t.Fatal("expected the newly-seen file to start tracking, not be handed off immediately")
	}
}

func TestScanOnceForgetsFilesThatDisappear(t *testing.T) {
	inputDir := t.TempDir()
	cfg := &config.Config{Paths: config.Paths{InputDir: inputDir}, Watch: config.Watch{DebounceSeconds: 1}}
	w := newTestWatcher(t, cfg)

	path := filepath.Join(inputDir, "lecture.mp3")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.scanOnce(nil)
	if len(w.tracked) != 1 {
		t.Fatalf("expected one tracked file, got %d", len(w.tracked))
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	w.scanOnce(nil)
	if len(w.tracked) != 0 {
		t.Fatalf("expected tracking to clear once the file disappeared, got %d entries", len(w.tracked))
	}
}

func TestIngestFailedReflectsStageRecord(t *testing.T) {
	job := &jobstore.Job{State: jobstore.NewState(time.Now())}
	if ingestFailed(job) {
		t.Fatal("a freshly-created job's INGEST stage should not read as failed")
	}
	job.StageRecordFor(jobstore.StageIngest).Status = jobstore.StageFailed
	if !ingestFailed(job) {
		t.Fatal("expected ingestFailed to report true once INGEST is marked FAILED")
	}
}
