package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"inkreel/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckProviderAPIKey_Missing(t *testing.T) {
	t.Setenv("OPENRELAY_API_KEY", "")
	result := CheckProviderAPIKey("openrelay")
	if result.Passed {
		t.Fatal("expected failure when the API key env var is unset")
	}
}

func TestCheckProviderAPIKey_Present(t *testing.T) {
	t.Setenv("OPENRELAY_API_KEY", "sk-test")
	result := CheckProviderAPIKey("openrelay")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckOpenRelayReachable_MissingKey(t *testing.T) {
	t.Setenv("OPENRELAY_API_KEY", "")
	result := CheckOpenRelayReachable(context.Background(), "gpt-test")
	if result.Passed {
		t.Fatal("expected failure when the API key is missing")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ChecksWorkingDirectoryAndProviderKeys(t *testing.T) {
	t.Setenv("LOCALWHISPER_API_KEY", "unused")
	t.Setenv("OPENRELAY_API_KEY", "sk-test")

	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.ResultsDir = ""
	cfg.Scribe.Provider = "localwhisper"
	cfg.Refine.Provider = "openrelay"

	results := RunAll(context.Background(), &cfg)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if r, ok := byName["Working directory"]; !ok || !r.Passed {
		t.Errorf("expected a passing working directory check, got %+v", r)
	}
	if r, ok := byName["openrelay API key"]; !ok || !r.Passed {
		t.Errorf("expected a passing openrelay API key check, got %+v", r)
	}
}

func TestRunAll_DeduplicatesSharedProvider(t *testing.T) {
	t.Setenv("OPENRELAY_API_KEY", "sk-test")

	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.ResultsDir = ""
	cfg.Scribe.Provider = "openrelay"
	cfg.Refine.Provider = "openrelay"

	results := RunAll(context.Background(), &cfg)
	count := 0
	for _, r := range results {
		if r.Name == "openrelay API key" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected the shared provider's API key check to appear once, got %d", count)
	}
}
