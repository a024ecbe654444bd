package pipeline

import (
	"log/slog"

	"inkreel/internal/config"
	"inkreel/internal/jobstore"
	"inkreel/internal/logging"
	"inkreel/internal/providers"
	"inkreel/internal/templates"
)

// Renderer is the contract a GENERATE-stage rendering plugin implements
// (internal/plugins/markdown, internal/plugins/subtitles). It receives the
// enriched context and, when the template needs it, the raw transcript, and
// returns the rendered artifact bytes plus a suggested filename.
type Renderer interface {
	Render(declaration templates.Declaration, enriched jobstore.EnrichedContext, transcript []jobstore.TranscriptSegment) (data []byte, suggestedFilename string, err error)
}

// Environment bundles every leaf collaborator a stage executor needs. One
// Environment is shared across every job a driver processes.
type Environment struct {
	Store           *jobstore.Store
	Providers       *providers.Registry
	Templates       *templates.Registry
	Renderers       map[string]Renderer
	Config          *config.Config
	Logger          *slog.Logger
	ShowProgressBar bool
}

func (e *Environment) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}
