package preflight

import (
	"context"

	"inkreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check inkreel depends on: working
// directories, the FFmpeg/FFprobe/Whisper binaries INGEST and localwhisper
// shell out to, and the API key for whichever scribe/refine providers are
// configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Working directory", cfg.Paths.WorkDir))
	if cfg.Paths.ResultsDir != "" {
		results = append(results, CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir))
	}

	for _, dep := range CheckSystemDeps() {
		results = append(results, Result{Name: dep.Name, Passed: dep.Available, Detail: dep.Detail})
	}

	seen := map[string]bool{}
	for _, provider := range []string{cfg.Scribe.Provider, cfg.Refine.Provider} {
		if provider == "" || seen[provider] {
			continue
		}
		seen[provider] = true
		results = append(results, CheckProviderAPIKey(provider))
	}

	return results
}
