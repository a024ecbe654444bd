package config

const (
	defaultDebounceSeconds = 5

	defaultFailedJobsRetentionDays    = 14
	defaultCompletedJobsRetentionDays = 90
	defaultCleanupIntervalMinutes     = 60

	defaultRetryMax            = 3
	defaultRetryDelaySeconds   = 10
	defaultStageTimeoutSeconds = 0 // 0 == absent: no timeout

	defaultCompressionMode                 = "compressed"
	defaultCompressedBitrateKbps           = 24
	defaultUpstreamCacheMinDurationSeconds = 300

	defaultScribeProvider     = "localwhisper"
	defaultScribeLanguageHint = "auto"

	defaultRefineProvider = "openrelay"

	defaultShelveStrategy = "timeline"

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with inkreel's built-in defaults. Load
// starts from this value before overlaying anything found on disk, so a
// missing or partial config file is never a hard failure.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      "~/.local/share/inkreel/work",
			InputDir:     "~/inkreel/inbox",
			ResultsDir:   "~/inkreel/results",
			TemplatesDir: "~/.config/inkreel/templates",
			ProvidersDir: "~/.config/inkreel/providers",
			LogDir:       "~/.local/share/inkreel/logs",
		},
		Watch: Watch{
			DebounceSeconds: defaultDebounceSeconds,
		},
		Retention: Retention{
			FailedJobsRetentionDays:    defaultFailedJobsRetentionDays,
			CompletedJobsRetentionDays: defaultCompletedJobsRetentionDays,
			CleanupIntervalMinutes:     defaultCleanupIntervalMinutes,
		},
		Pipeline: Pipeline{
			RetryMax:            defaultRetryMax,
			RetryDelaySeconds:   defaultRetryDelaySeconds,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
		},
		Ingest: Ingest{
			CompressionMode:                 defaultCompressionMode,
			CompressedBitrateKbps:           defaultCompressedBitrateKbps,
			UpstreamCacheMinDurationSeconds: defaultUpstreamCacheMinDurationSeconds,
		},
		Scribe: Scribe{
			Provider:     defaultScribeProvider,
			LanguageHint: defaultScribeLanguageHint,
		},
		Refine: Refine{
			Provider: defaultRefineProvider,
		},
		Shelve: Shelve{
			Strategy:   defaultShelveStrategy,
			TagRouting: map[string]string{},
		},
		Artifacts: []ArtifactSpec{
			{Plugin: "markdown", Template: "meeting-notes"},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
