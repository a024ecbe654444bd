package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"inkreel/internal/config"
	"inkreel/internal/logging"
)

// logger builds the process logger from cfg. main() separately appends a
// failure line to <work-root>/inkreel.crash.log via recordCrash if it
// observes an uncaught error, matching spec §7's "global uncaught failures
// are written to a process-level log file" requirement.
func logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg)
}

// recordCrash appends a one-line, timestamped failure record to the
// process-level crash log. main calls it for every error that is not a user
// error, so such a failure is recorded even when no logger is available.
func recordCrash(workDir string, err error) {
	if err == nil {
		return
	}
	path := filepath.Join(workDir, "inkreel.crash.log")
	f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %v\n", time.Now().UTC().Format(time.RFC3339), err)
}
