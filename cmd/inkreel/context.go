package main

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"inkreel/internal/config"
	"inkreel/internal/jobstore"
	"inkreel/internal/pipeline"
	"inkreel/internal/plugins/markdown"
	"inkreel/internal/plugins/subtitles"
	"inkreel/internal/providers"
	"inkreel/internal/providers/localwhisper"
	"inkreel/internal/providers/openrelay"
	"inkreel/internal/templates"
)

// commandContext lazily builds and caches the collaborators every
// subcommand needs: the resolved config, job store, provider/template
// registries, and the pipeline driver wired against them. One instance is
// shared across the command tree for the lifetime of a single CLI
// invocation.
type commandContext struct {
	configFlag *string

	once   sync.Once
	cfg    *config.Config
	env    *pipeline.Environment
	driver *pipeline.Driver
	err    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// lastResolvedWorkDir records the most recently resolved work_dir so main()
// can append to the process-level crash log even when the failure occurred
// deep inside a subcommand, without threading cfg back out of cobra.
var lastResolvedWorkDir string

func (c *commandContext) ensure() error {
	c.once.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.err = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.err = err
			return
		}
		c.cfg = cfg
		lastResolvedWorkDir = cfg.Paths.WorkDir

		logger, err := logger(cfg)
		if err != nil {
			c.err = err
			return
		}

		store, err := jobstore.Open(cfg.Paths.WorkDir)
		if err != nil {
			c.err = err
			return
		}

		registry := providers.NewRegistry(cfg.Paths.ProvidersDir)
		registerBuiltinProviders(registry)
		if _, err := registry.Discover(); err != nil {
			c.err = err
			return
		}

		templatesRegistry := templates.NewRegistry(cfg.Paths.TemplatesDir)

		c.env = &pipeline.Environment{
			Store:     store,
			Providers: registry,
			Templates: templatesRegistry,
			Renderers: map[string]pipeline.Renderer{
				"markdown":  markdown.NewRenderer(),
				"subtitles": subtitles.NewRenderer(),
			},
			Config:          cfg,
			Logger:          logger,
			ShowProgressBar: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		}

		c.driver = pipeline.NewDriver(c.env)
	})
	return c.err
}

// registerBuiltinProviders seeds the registry with the two reference
// providers this repository ships, both as transcription/refinement
// factories and as in-code descriptors so they work without a
// defaults.yaml on disk (spec §4.5 allows either).
func registerBuiltinProviders(registry *providers.Registry) {
	registry.RegisterTranscriber(localwhisper.ProviderName, localwhisper.Factory("whisper"))
	registry.RegisterDescriptor(jobstore.ProviderDescriptor{
		Name:         localwhisper.ProviderName,
		DisplayName:  "Local Whisper",
		Type:         "local",
		Capabilities: []string{providers.CapabilityTranscription},
	})

	registry.RegisterTranscriber(openrelay.ProviderName, openrelay.TranscriberFactory)
	registry.RegisterRefiner(openrelay.ProviderName, openrelay.RefinerFactory)
	registry.RegisterDescriptor(jobstore.ProviderDescriptor{
		Name:              openrelay.ProviderName,
		DisplayName:       "OpenRelay",
		Type:              "cloud",
		Capabilities:      []string{providers.CapabilityTranscription, providers.CapabilityRefinement},
		APIKeyRequirement: "OPENRELAY_API_KEY",
	})
}

func (c *commandContext) config() (*config.Config, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c.cfg, nil
}

func (c *commandContext) environment() (*pipeline.Environment, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c.env, nil
}

func (c *commandContext) pipelineDriver() (*pipeline.Driver, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c.driver, nil
}

func (c *commandContext) store() (*jobstore.Store, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c.env.Store, nil
}

// reportIndex opens (and, if empty, rebuilds from the filesystem) the
// SQLite report-index cache `report` reads from. Callers are responsible
// for closing the result.
func (c *commandContext) reportIndex(ctx context.Context) (*jobstore.ReportIndex, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	index, err := jobstore.OpenReportIndex(c.cfg.Paths.LogDir)
	if err != nil {
		return nil, err
	}
	totals, err := index.Totals(ctx, time.Time{})
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	if totals.JobCount == 0 {
		if err := jobstore.Rebuild(ctx, index, c.env.Store); err != nil {
			_ = index.Close()
			return nil, err
		}
	}
	return index, nil
}

// shouldSkipConfig lets a command opt out of config resolution (e.g. so an
// unrelated flag-parsing error isn't masked by a config-load failure).
func shouldSkipConfig(annotations map[string]string) bool {
	return annotations != nil && annotations["skipConfigLoad"] == "true"
}
