package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directories the engine reads from and writes to.
type Paths struct {
	WorkDir       string `toml:"work_dir"`
	InputDir      string `toml:"input_dir"`
	ResultsDir    string `toml:"results_dir"`
	TemplatesDir  string `toml:"templates_dir"`
	ProvidersDir  string `toml:"providers_dir"`
	LogDir        string `toml:"log_dir"`
}

// Watch contains filesystem-watcher tuning.
type Watch struct {
	DebounceSeconds int `toml:"debounce_seconds"`
}

// Retention contains job cleanup-thread tuning.
type Retention struct {
	FailedJobsRetentionDays    int `toml:"failed_jobs_retention_days"`
	CompletedJobsRetentionDays int `toml:"completed_jobs_retention_days"`
	CleanupIntervalMinutes     int `toml:"cleanup_interval_minutes"`
}

// Pipeline contains stage-retry and timeout tuning shared by SCRIBE and REFINE.
type Pipeline struct {
	RetryMax           int `toml:"retry_max"`
	RetryDelaySeconds  int `toml:"retry_delay_seconds"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"` // 0 == absent (no timeout)
}

// Ingest contains INGEST stage defaults.
type Ingest struct {
	CompressionMode                  string `toml:"compression_mode"` // original|compressed|optimized
	CompressedBitrateKbps            int    `toml:"compressed_bitrate_kbps"`
	UpstreamCacheMinDurationSeconds  int    `toml:"upstream_cache_min_duration_seconds"`
}

// Scribe contains SCRIBE stage defaults.
type Scribe struct {
	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
	LanguageHint string `toml:"language_hint"` // "auto" or a BCP-47 tag
}

// Refine contains REFINE stage defaults.
type Refine struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	DirectMode bool   `toml:"direct_mode"`
}

// ArtifactSpec pairs a rendering plugin with a template and optional filename
// override; the job's artifact list is a snapshot of these taken at creation.
type ArtifactSpec struct {
	Plugin   string `toml:"plugin"`
	Template string `toml:"template"`
	Filename string `toml:"filename"`
}

// Shelve contains SHELVE stage defaults.
type Shelve struct {
	Strategy   string            `toml:"strategy"` // timeline|flat|zettelkasten
	TagRouting map[string]string `toml:"tag_routing"`
}

// Logging contains log output configuration.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates every process-level knob inkreel needs. A job's own
// Configuration snapshot (internal/jobstore) is derived from this at job
// creation time and is frozen thereafter — later edits to this file never
// retroactively affect a job already running, by design.
type Config struct {
	Paths     Paths          `toml:"paths"`
	Watch     Watch          `toml:"watch"`
	Retention Retention      `toml:"retention"`
	Pipeline  Pipeline       `toml:"pipeline"`
	Ingest    Ingest         `toml:"ingest"`
	Scribe    Scribe         `toml:"scribe"`
	Refine    Refine         `toml:"refine"`
	Shelve    Shelve         `toml:"shelve"`
	Artifacts []ArtifactSpec `toml:"artifacts"`
	Logging   Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/inkreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/inkreel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("inkreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the engine writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.ProvidersDir, c.Paths.TemplatesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ResultsDir) != "" {
		// Best-effort: results may live on storage that is temporarily offline.
		_ = os.MkdirAll(c.Paths.ResultsDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
