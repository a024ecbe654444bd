// Package watch implements the filesystem watcher from spec §4.6: it
// monitors a single input directory and hands each appeared, size-stable
// file to the pipeline driver as a new job, serializing handoffs so at most
// one pipeline runs at a time per watcher instance.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"inkreel/internal/config"
	"inkreel/internal/jobstore"
	"inkreel/internal/logging"
	"inkreel/internal/pipeline"
)

const lockFileName = ".inkreel-watch.lock"

// Watcher polls cfg.Paths.InputDir and drives jobs through driver.
type Watcher struct {
	cfg    *config.Config
	driver *pipeline.Driver
	logger *slog.Logger
	lock   *flock.Flock

	// debounce is the minimum time a file's size must stay unchanged
	// before it is considered stable and handed off.
	debounce time.Duration

	// tracked holds, per candidate path, the last observed size and when
	// that size was first observed.
	tracked map[string]observation
}

type observation struct {
	size       int64
	observedAt time.Time
}

// New constructs a Watcher against cfg.Paths.InputDir.
func New(cfg *config.Config, driver *pipeline.Driver, logger *slog.Logger) *Watcher {
	debounce := time.Duration(cfg.Watch.DebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		cfg:      cfg,
		driver:   driver,
		logger:   logging.NewComponentLogger(logger, "watch"),
		lock:     flock.New(filepath.Join(cfg.Paths.InputDir, lockFileName)),
		debounce: debounce,
		tracked:  map[string]observation{},
	}
}

// Run acquires the single-instance lock and polls the input directory until
// ctx is cancelled. It never returns nil error from a failed TryLock; a
// second watcher against the same input directory is a user error, not a
// retryable one.
func (w *Watcher) Run(ctx context.Context) error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire watch lock: %w", err)
	}
	if !ok {
		return errors.New("another `inkreel watch` is already running against this input directory")
	}
	defer w.lock.Unlock()

	w.logger.Info("watch started", logging.String("input_dir", w.cfg.Paths.InputDir))

	pollInterval := w.debounce
	if pollInterval > time.Second {
		pollInterval = time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
			w.scanOnce(ctx)
		}
	}
}

// scanOnce lists the input directory once, updates stability tracking, and
// hands off every file that has been size-stable for at least w.debounce.
// Handoffs happen one at a time in this same goroutine, which is what
// guarantees at most one pipeline runs concurrently.
func (w *Watcher) scanOnce(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Paths.InputDir)
	if err != nil {
		w.logger.Error("failed to read input directory", logging.Error(err))
		return
	}

	now := time.Now()
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(w.cfg.Paths.InputDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		seen[path] = true

		prev, tracking := w.tracked[path]
		if !tracking || prev.size != info.Size() {
			w.tracked[path] = observation{size: info.Size(), observedAt: now}
			continue
		}
		if now.Sub(prev.observedAt) < w.debounce {
			continue
		}

		delete(w.tracked, path)
		w.handoff(ctx, path)
	}

	for path := range w.tracked {
		if !seen[path] {
			delete(w.tracked, path)
		}
	}
}

// handoff runs the pipeline against a stable appeared file and deletes it
// from the input directory only once INGEST has successfully copied it into
// the job's own media/ directory — "deletion is unconditional and immediate
// after successful copy; failure to copy aborts before deletion."
func (w *Watcher) handoff(ctx context.Context, sourcePath string) {
	logger := w.logger.With(logging.String("source", sourcePath))
	job, err := w.driver.Run(ctx, sourcePath, pipeline.RunOptions{})
	if job == nil {
		logger.Error("failed to create job for appeared file", logging.Error(err))
		return
	}
	if ingestFailed(job) {
		logger.Error("ingest failed for appeared file; leaving source in place", logging.Error(err))
		return
	}
	if removeErr := os.Remove(sourcePath); removeErr != nil {
		logger.Error("failed to remove handed-off source", logging.Error(removeErr))
		return
	}
	logger.Info("handed off appeared file", logging.String("job_id", job.ID))
}

func ingestFailed(job *jobstore.Job) bool {
	rec := job.StageRecordFor(jobstore.StageIngest)
	return rec.Status == jobstore.StageFailed
}
