package openrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/providers"
)

// ProviderName is the registry key this package is registered under.
const ProviderName = "openrelay"

// Provider implements both providers.Transcriber and providers.Refiner
// against an OpenRouter-shaped chat completions endpoint.
type Provider struct {
	client *Client
	model  string
}

// New constructs a Provider. apiKey is read by the caller via
// providers.APIKeyFor, never from Config.
func New(apiKey, model string) *Provider {
	client := NewClient(Config{APIKey: apiKey, Model: model, Title: "inkreel"})
	return &Provider{client: client, model: model}
}

// TranscriberFactory adapts New to providers.TranscriberFactory.
func TranscriberFactory(descriptor jobstore.ProviderDescriptor, model string) (providers.Transcriber, error) {
	apiKey := providers.APIKeyFor(descriptor.Name)
	if apiKey == "" {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_transcription", fmt.Sprintf("missing %s_API_KEY", strings.ToUpper(descriptor.Name)), "export the provider's API key as an environment variable", nil)
	}
	return New(apiKey, model), nil
}

// RefinerFactory adapts New to providers.RefinerFactory.
func RefinerFactory(descriptor jobstore.ProviderDescriptor, model string) (providers.Refiner, error) {
	apiKey := providers.APIKeyFor(descriptor.Name)
	if apiKey == "" {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_refinement", fmt.Sprintf("missing %s_API_KEY", strings.ToUpper(descriptor.Name)), "export the provider's API key as an environment variable", nil)
	}
	return New(apiKey, model), nil
}

// IngestSpecs reports that openrelay wants an uploaded URI or upstream cache
// handle rather than a local path, since transcription happens server-side.
func (p *Provider) IngestSpecs() providers.IngestSpecs {
	return providers.IngestSpecs{NeedsUpstreamCache: true, AcceptsURI: true}
}

type transcribeResponse struct {
	Segments []struct {
		SpeakerID  string  `json:"speaker_id"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

const transcribeSystemPrompt = `You are a speech-to-text transcription backend. Given a reference to an ` +
	`audio recording, respond with JSON of the shape {"segments": [{"speaker_id": string, "start": number, ` +
	`"end": number, "text": string, "confidence": number}]}. Segments must be ordered by start time.`

// Transcribe posts the ingest result's audio reference to the chat
// completions endpoint and feeds the returned segments to sink in one batch,
// since this backend has no incremental streaming mode.
func (p *Provider) Transcribe(ctx context.Context, ingest jobstore.IngestResult, languageHint string, _ providers.RetryPolicy, sink providers.SegmentSink) (jobstore.UsageRecord, error) {
	started := time.Now()
	reference := ingest.UploadedURI
	if reference == "" {
		reference = ingest.UpstreamCacheHandle
	}
	if reference == "" {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrValidation, "scribe", "transcribe", "openrelay requires an uploaded audio reference", "ensure INGEST uploads media above the upstream cache threshold", nil)
	}

	prompt := fmt.Sprintf("Audio reference: %s\nLanguage hint: %s", reference, orAuto(languageHint))
	usage := &accumulatedUsage{}
	content, err := p.client.completionWithRetry(ctx, chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: transcribeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}, "openrelay transcribe", usage)
	if err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrTransient, "scribe", "transcribe", "openrelay request failed", "", err)
	}

	var parsed transcribeResponse
	if err := DecodeJSON(content, &parsed); err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, "scribe", "transcribe", "parse openrelay transcription payload", "", err)
	}
	for _, seg := range parsed.Segments {
		if err := sink.Append(jobstore.TranscriptSegment{
			SpeakerID:  seg.SpeakerID,
			StartTime:  seg.Start,
			EndTime:    seg.End,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		}); err != nil {
			return jobstore.UsageRecord{}, err
		}
	}

	return jobstore.UsageRecord{
		Stage:        jobstore.StageScribe,
		Provider:     ProviderName,
		Model:        p.model,
		InputTokens:  usage.inputTokens,
		OutputTokens: usage.outputTokens,
		CostUSD:      usage.costUSD,
		DurationSecs: time.Since(started).Seconds(),
		RequestCount: usage.requests,
	}, nil
}

const refineSystemPromptPreamble = `You extract structured information from meeting/lecture material. ` +
	`Respond with a single JSON object whose keys are exactly the field names given in the schema below, ` +
	`each holding a value matching its declared structure. Do not add extra keys.`

// Refine calls the chat completions endpoint once with the job's assembled
// schema and returns the structured object it produces, tagged with the
// provider/model/language reserved fields.
func (p *Provider) Refine(ctx context.Context, input providers.RefineInput, schema map[string]providers.FieldSchema, languageHint string) (jobstore.EnrichedContext, jobstore.UsageRecord, error) {
	started := time.Now()
	schemaDoc, err := json.MarshalIndent(schemaToDoc(schema), "", "  ")
	if err != nil {
		return nil, jobstore.UsageRecord{}, errs.Wrap(errs.ErrValidation, "refine", "build schema", "encode schema", "", err)
	}

	var body string
	if input.Direct {
		if input.AudioHandle == "" {
			return nil, jobstore.UsageRecord{}, errs.Wrap(errs.ErrValidation, "refine", "direct mode", "no audio handle available for direct refinement", "", nil)
		}
		body = fmt.Sprintf("Analyze the audio directly. Audio reference: %s\nLanguage hint: %s", input.AudioHandle, orAuto(languageHint))
	} else {
		if strings.TrimSpace(input.TranscriptText) == "" {
			return nil, jobstore.UsageRecord{}, errs.Wrap(errs.ErrValidation, "refine", "standard mode", "empty transcript text", "", nil)
		}
		body = fmt.Sprintf("Transcript:\n%s\nLanguage hint: %s", input.TranscriptText, orAuto(languageHint))
	}

	systemPrompt := refineSystemPromptPreamble + "\n\nSchema:\n" + string(schemaDoc)
	usage := &accumulatedUsage{}
	content, err := p.client.completionWithRetry(ctx, chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: body},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}, "openrelay refine", usage)
	if err != nil {
		return nil, jobstore.UsageRecord{}, errs.Wrap(errs.ErrTransient, "refine", "refine", "openrelay request failed", "", err)
	}

	var parsed map[string]any
	if err := DecodeJSON(content, &parsed); err != nil {
		return nil, jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, "refine", "refine", "parse openrelay refinement payload", "", err)
	}

	enriched := jobstore.EnrichedContext(parsed)
	enriched[jobstore.ContextFieldProvider] = ProviderName
	enriched[jobstore.ContextFieldModel] = p.model
	enriched[jobstore.ContextFieldLanguage] = orAuto(languageHint)

	return enriched, jobstore.UsageRecord{
		Stage:        jobstore.StageRefine,
		Provider:     ProviderName,
		Model:        p.model,
		InputTokens:  usage.inputTokens,
		OutputTokens: usage.outputTokens,
		CostUSD:      usage.costUSD,
		DurationSecs: time.Since(started).Seconds(),
		RequestCount: usage.requests,
	}, nil
}

func schemaToDoc(schema map[string]providers.FieldSchema) map[string]any {
	doc := make(map[string]any, len(schema))
	for name, field := range schema {
		doc[name] = map[string]string{
			"description": field.Description,
			"structure":   field.Structure,
		}
	}
	return doc
}

func orAuto(languageHint string) string {
	if strings.TrimSpace(languageHint) == "" {
		return "auto"
	}
	return languageHint
}
