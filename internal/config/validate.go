package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is internally consistent. Validate is
// called after normalize, so paths are already expanded and enums already
// defaulted; it only rejects combinations normalize cannot repair on its own.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateScribe(); err != nil {
		return err
	}
	if err := c.validateRefine(); err != nil {
		return err
	}
	if err := c.validateShelve(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.retry_max":            c.Pipeline.RetryMax,
		"pipeline.retry_delay_seconds":  c.Pipeline.RetryDelaySeconds,
		"watch.debounce_seconds":        c.Watch.DebounceSeconds,
	})
	// pipeline.stage_timeout_seconds == 0 is valid and means "absent".
}

func (c *Config) validateIngest() error {
	switch c.Ingest.CompressionMode {
	case "original", "compressed", "optimized":
	default:
		return fmt.Errorf("ingest.compression_mode must be one of original, compressed, optimized (got %q)", c.Ingest.CompressionMode)
	}
	if c.Ingest.CompressedBitrateKbps <= 0 {
		return errors.New("ingest.compressed_bitrate_kbps must be positive")
	}
	if c.Ingest.UpstreamCacheMinDurationSeconds <= 0 {
		return errors.New("ingest.upstream_cache_min_duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateScribe() error {
	if strings.TrimSpace(c.Scribe.Provider) == "" {
		return errors.New("scribe.provider must be set")
	}
	return nil
}

func (c *Config) validateRefine() error {
	if strings.TrimSpace(c.Refine.Provider) == "" {
		return errors.New("refine.provider must be set")
	}
	return nil
}

func (c *Config) validateShelve() error {
	switch c.Shelve.Strategy {
	case "timeline", "flat", "zettelkasten":
	default:
		return fmt.Errorf("shelve.strategy must be one of timeline, flat, zettelkasten (got %q)", c.Shelve.Strategy)
	}
	for field, subdir := range c.Shelve.TagRouting {
		if strings.TrimSpace(field) == "" || strings.TrimSpace(subdir) == "" {
			return errors.New("shelve.tag_routing entries must have a non-empty field and subdirectory")
		}
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if len(c.Artifacts) == 0 {
		return errors.New("artifacts must include at least one plugin/template pair")
	}
	for i, spec := range c.Artifacts {
		if strings.TrimSpace(spec.Plugin) == "" {
			return fmt.Errorf("artifacts[%d].plugin must be set", i)
		}
		if strings.TrimSpace(spec.Template) == "" {
			return fmt.Errorf("artifacts[%d].template must be set", i)
		}
	}
	return nil
}

func (c *Config) validateRetention() error {
	return ensurePositiveMap(map[string]int{
		"retention.failed_jobs_retention_days":    c.Retention.FailedJobsRetentionDays,
		"retention.completed_jobs_retention_days": c.Retention.CompletedJobsRetentionDays,
		"retention.cleanup_interval_minutes":      c.Retention.CleanupIntervalMinutes,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
