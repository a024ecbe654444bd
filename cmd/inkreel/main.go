package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			if !isUserError(err) && lastResolvedWorkDir != "" {
				recordCrash(lastResolvedWorkDir, err)
			}
		}
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to spec §6's exit code contract: 1 for user and
// prerequisite errors, 2 for everything else (internal/transient failures).
func exitCodeFor(err error) int {
	if isUserError(err) {
		return 1
	}
	return 2
}
