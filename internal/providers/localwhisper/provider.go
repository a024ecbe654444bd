package localwhisper

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/providers"
)

// commandContext is a package-level var so tests can substitute a fake
// binary, matching the pattern used by internal/media's ffmpeg wrapper and
// the teacher's drapto client.
var commandContext = exec.CommandContext

const (
	// ProviderName is the registry key this package is registered under.
	ProviderName = "localwhisper"

	defaultBinary = "whisper"
	defaultModel  = "base"
)

// Config configures a Provider instance.
type Config struct {
	Binary string
	Model  string
}

// Provider implements providers.Transcriber by shelling out to a local
// speech-to-text binary and reading its segment stream as newline-delimited
// JSON from stdout.
type Provider struct {
	binary string
	model  string
}

// New constructs a localwhisper Provider. Suitable as a providers.TranscriberFactory.
func New(cfg Config) *Provider {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Provider{binary: binary, model: model}
}

// Factory adapts New to providers.TranscriberFactory. The descriptor is
// ignored; an empty caller-supplied model falls back to defaultModel.
func Factory(binary string) providers.TranscriberFactory {
	return func(_ jobstore.ProviderDescriptor, model string) (providers.Transcriber, error) {
		return New(Config{Binary: binary, Model: model}), nil
	}
}

// IngestSpecs reports that localwhisper never needs an upstream cache handle
// (it runs against the local working copy) and does not accept bare URIs.
func (p *Provider) IngestSpecs() providers.IngestSpecs {
	return providers.IngestSpecs{
		NeedsUpstreamCache:  false,
		SupportedContainers: []string{"wav", "ogg", "mp3", "flac"},
		AcceptsURI:          false,
	}
}

// segmentLine is one line of the binary's ndjson stdout stream.
type segmentLine struct {
	SpeakerID  string  `json:"speaker_id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	EndOfSream bool    `json:"end_of_stream"`
}

// Transcribe runs the configured binary against the ingest result's working
// copy and streams parsed segments into sink until the binary emits an
// end_of_stream marker or its stdout closes — whichever comes first. It never
// loops on a repeated end marker: the scan loop exits on the first sighting.
func (p *Provider) Transcribe(ctx context.Context, ingest jobstore.IngestResult, languageHint string, _ providers.RetryPolicy, sink providers.SegmentSink) (jobstore.UsageRecord, error) {
	started := time.Now()
	source := ingest.WorkingCopyPath
	if source == "" {
		source = ingest.CompressedPath
	}
	if source == "" {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrValidation, "scribe", "transcribe", "ingest result has no usable audio path", "", nil)
	}

	args := []string{"--model", p.model, "--output-format", "jsonl"}
	if lang := strings.TrimSpace(languageHint); lang != "" && !strings.EqualFold(lang, "auto") {
		args = append(args, "--language", lang)
	}
	args = append(args, source)

	cmd := commandContext(ctx, p.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, "scribe", "transcribe", "open stdout pipe", "", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, "scribe", "transcribe", fmt.Sprintf("start %s", p.binary), "install a local whisper-compatible binary or switch scribe.provider", err)
	}

	count := 0
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var scanErr error
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var parsed segmentLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			scanErr = errs.Wrap(errs.ErrExternalTool, "scribe", "transcribe", "parse segment line", "", err)
			break
		}
		if parsed.EndOfSream {
			break
		}
		if err := sink.Append(jobstore.TranscriptSegment{
			SpeakerID:  parsed.SpeakerID,
			StartTime:  parsed.Start,
			EndTime:    parsed.End,
			Text:       parsed.Text,
			Confidence: parsed.Confidence,
		}); err != nil {
			scanErr = err
			break
		}
		count++
	}
	if scanErr == nil {
		if err := scanner.Err(); err != nil {
			scanErr = errs.Wrap(errs.ErrExternalTool, "scribe", "transcribe", "read segment stream", "", err)
		}
	}

	waitErr := cmd.Wait()
	if scanErr != nil {
		return jobstore.UsageRecord{}, scanErr
	}
	if waitErr != nil {
		return jobstore.UsageRecord{}, errs.Wrap(errs.ErrExternalTool, "scribe", "transcribe", fmt.Sprintf("%s exited", p.binary), "", fmt.Errorf("%w: %s", waitErr, strings.TrimSpace(stderr.String())))
	}

	return jobstore.UsageRecord{
		Stage:        jobstore.StageScribe,
		Provider:     ProviderName,
		Model:        p.model,
		DurationSecs: time.Since(started).Seconds(),
		RequestCount: 1,
	}, nil
}
