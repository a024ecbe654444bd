package providers

import (
	"context"

	"inkreel/internal/jobstore"
)

// RetryPolicy bounds the stage-level retry a transcription call is permitted.
// It is informational to the provider (used for its own log lines); the
// executor, not the provider, owns the retry loop.
type RetryPolicy struct {
	MaxAttempts   int
	DelaySeconds  int
}

// SegmentSink receives transcript segments as a transcription provider
// produces them, in order. Implementations (internal/jobstore.SegmentWriter)
// persist each segment durably before the next is requested.
type SegmentSink interface {
	Append(segment jobstore.TranscriptSegment) error
}

// Transcriber implements the SCRIBE-side provider contract (spec §4.5).
type Transcriber interface {
	// IngestSpecs reports what shapes of ingest result this provider accepts.
	IngestSpecs() IngestSpecs
	// Transcribe streams segments into sink as they are produced and returns
	// the accumulated usage once the provider's stream ends (explicit end
	// marker or close, whichever comes first).
	Transcribe(ctx context.Context, ingest jobstore.IngestResult, languageHint string, retry RetryPolicy, sink SegmentSink) (jobstore.UsageRecord, error)
}

// IngestSpecs describes what a transcription provider needs from INGEST.
type IngestSpecs struct {
	NeedsUpstreamCache  bool
	SupportedContainers []string
	AcceptsURI          bool
}

// RefineInput selects which representation of the job's media REFINE hands
// to the provider: either the flattened transcript text, or the opaque
// audio handle (direct mode).
type RefineInput struct {
	TranscriptText string
	AudioHandle    string
	Direct         bool
}

// Refiner implements the REFINE-side provider contract (spec §4.5).
type Refiner interface {
	Refine(ctx context.Context, input RefineInput, schema map[string]FieldSchema, languageHint string) (jobstore.EnrichedContext, jobstore.UsageRecord, error)
}

// FieldSchema is one entry of a job's assembled required-fields schema (see
// internal/templates). Structure is a primitive type tag ("string",
// "number", "boolean") or a shape descriptor over those primitives.
type FieldSchema struct {
	Description string
	Structure   string
}
