// Package subtitles renders a job's transcript segments as an SRT file.
package subtitles

import (
	"bytes"
	"fmt"
	"time"

	"inkreel/internal/jobstore"
	"inkreel/internal/pipeline"
	"inkreel/internal/templates"
)

// Renderer implements pipeline.Renderer for the subtitles plugin. It has no
// use for the enriched context; it renders directly from the raw transcript
// segments, so it declines (with a named skip reason) whenever a job has
// none on disk.
type Renderer struct{}

// NewRenderer constructs the subtitles renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// Render writes transcript as an SRT document. Declaration is accepted to
// satisfy pipeline.Renderer but otherwise unused: subtitle cues have no
// custom-field schema to honor.
func (r *Renderer) Render(declaration templates.Declaration, enriched jobstore.EnrichedContext, transcript []jobstore.TranscriptSegment) ([]byte, string, error) {
	if len(transcript) == 0 {
		return nil, "", fmt.Errorf("%s: %w", pipeline.ReasonNoTranscriptForSubtitles, pipeline.ErrMissingRenderInput)
	}

	var buf bytes.Buffer
	for i, seg := range transcript {
		fmt.Fprintf(&buf, "%d\n", i+1)
		fmt.Fprintf(&buf, "%s --> %s\n", formatTimestamp(seg.StartTime), formatTimestamp(seg.EndTime))
		text := seg.Text
		if seg.SpeakerID != "" {
			text = seg.SpeakerID + ": " + text
		}
		fmt.Fprintf(&buf, "%s\n\n", text)
	}

	return buf.Bytes(), declaration.Name + ".srt", nil
}

// formatTimestamp renders seconds as an SRT HH:MM:SS,mmm timestamp.
func formatTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
