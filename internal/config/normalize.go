package config

import (
	"fmt"
	"strings"
)

// normalize expands paths and fills in blank fields left after decoding a
// possibly-partial TOML file. Provider API keys are deliberately absent from
// this pass: they are read from the environment by the provider registry at
// instantiation time, never threaded through Config.
func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeRetention()
	c.normalizePipeline()
	c.normalizeIngest()
	c.normalizeScribe()
	c.normalizeRefine()
	c.normalizeShelve()
	c.normalizeArtifacts()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InputDir) != "" {
		if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
			return fmt.Errorf("paths.input_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.ResultsDir) != "" {
		if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
			return fmt.Errorf("paths.results_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) == "" {
		c.Paths.TemplatesDir = Default().Paths.TemplatesDir
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProvidersDir) == "" {
		c.Paths.ProvidersDir = Default().Paths.ProvidersDir
	}
	if c.Paths.ProvidersDir, err = expandPath(c.Paths.ProvidersDir); err != nil {
		return fmt.Errorf("paths.providers_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = defaultDebounceSeconds
	}
}

func (c *Config) normalizeRetention() {
	if c.Retention.FailedJobsRetentionDays <= 0 {
		c.Retention.FailedJobsRetentionDays = defaultFailedJobsRetentionDays
	}
	if c.Retention.CompletedJobsRetentionDays <= 0 {
		c.Retention.CompletedJobsRetentionDays = defaultCompletedJobsRetentionDays
	}
	if c.Retention.CleanupIntervalMinutes <= 0 {
		c.Retention.CleanupIntervalMinutes = defaultCleanupIntervalMinutes
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.RetryMax <= 0 {
		c.Pipeline.RetryMax = defaultRetryMax
	}
	if c.Pipeline.RetryDelaySeconds <= 0 {
		c.Pipeline.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.Pipeline.StageTimeoutSeconds < 0 {
		c.Pipeline.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
}

func (c *Config) normalizeIngest() {
	c.Ingest.CompressionMode = strings.ToLower(strings.TrimSpace(c.Ingest.CompressionMode))
	switch c.Ingest.CompressionMode {
	case "original", "compressed", "optimized":
	default:
		c.Ingest.CompressionMode = defaultCompressionMode
	}
	if c.Ingest.CompressedBitrateKbps <= 0 {
		c.Ingest.CompressedBitrateKbps = defaultCompressedBitrateKbps
	}
	if c.Ingest.UpstreamCacheMinDurationSeconds <= 0 {
		c.Ingest.UpstreamCacheMinDurationSeconds = defaultUpstreamCacheMinDurationSeconds
	}
}

func (c *Config) normalizeScribe() {
	c.Scribe.Provider = strings.ToLower(strings.TrimSpace(c.Scribe.Provider))
	if c.Scribe.Provider == "" {
		c.Scribe.Provider = defaultScribeProvider
	}
	c.Scribe.Model = strings.TrimSpace(c.Scribe.Model)
	c.Scribe.LanguageHint = strings.TrimSpace(c.Scribe.LanguageHint)
	if c.Scribe.LanguageHint == "" {
		c.Scribe.LanguageHint = defaultScribeLanguageHint
	}
}

func (c *Config) normalizeRefine() {
	c.Refine.Provider = strings.ToLower(strings.TrimSpace(c.Refine.Provider))
	if c.Refine.Provider == "" {
		c.Refine.Provider = defaultRefineProvider
	}
	c.Refine.Model = strings.TrimSpace(c.Refine.Model)
}

func (c *Config) normalizeShelve() {
	c.Shelve.Strategy = strings.ToLower(strings.TrimSpace(c.Shelve.Strategy))
	switch c.Shelve.Strategy {
	case "timeline", "flat", "zettelkasten":
	default:
		c.Shelve.Strategy = defaultShelveStrategy
	}
	if c.Shelve.TagRouting == nil {
		c.Shelve.TagRouting = map[string]string{}
	}
}

func (c *Config) normalizeArtifacts() {
	if len(c.Artifacts) == 0 {
		c.Artifacts = Default().Artifacts
		return
	}
	normalized := make([]ArtifactSpec, 0, len(c.Artifacts))
	for _, spec := range c.Artifacts {
		spec.Plugin = strings.ToLower(strings.TrimSpace(spec.Plugin))
		spec.Template = strings.TrimSpace(spec.Template)
		spec.Filename = strings.TrimSpace(spec.Filename)
		if spec.Plugin == "" || spec.Template == "" {
			continue
		}
		normalized = append(normalized, spec)
	}
	if len(normalized) == 0 {
		normalized = Default().Artifacts
	}
	c.Artifacts = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
