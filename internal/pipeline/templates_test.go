package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"inkreel/internal/templates"
)

// newTemplatesRegistryWithSummary writes a minimal markdown/summary.toml
// declaration, the same declaration as subtitles/summary.toml, plus a
// markdown/conflicting.toml that redeclares "summary" with an incompatible
// structure, for tests exercising AssembleSchema's merge and conflict paths
// and GENERATE's per-artifact lookups.
func newTemplatesRegistryWithSummary(t *testing.T) *templates.Registry {
	t.Helper()
	dir := t.TempDir()
	mustWriteTemplate(t, dir, "markdown", "summary", `
title = "Summary"

[custom_fields.summary]
description = "a short summary of the recording"
structure = "string"
`)
	mustWriteTemplate(t, dir, "subtitles", "summary", `
title = "Summary"

[custom_fields.summary]
description = "a short summary of the recording"
structure = "string"
`)
	mustWriteTemplate(t, dir, "markdown", "conflicting", `
title = "Conflicting"

[custom_fields.summary]
description = "a short summary of the recording"
structure = "array<string>"
`)
	return templates.NewRegistry(dir)
}

func mustWriteTemplate(t *testing.T, dir, plugin, name, body string) {
	t.Helper()
	pluginDir := filepath.Join(dir, plugin)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, name+".toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
