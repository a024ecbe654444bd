package jobstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inkreel/internal/errs"
)

// WriteIngestResult atomically writes ingest.json for the job.
func (j *Job) WriteIngestResult(result IngestResult) error {
	return writeJSONAtomic(filepath.Join(j.Dir, "ingest.json"), result)
}

// ReadIngestResult reads and parses ingest.json, returning an error the
// caller can compare against errs.ErrNotFound when the file is absent.
func (j *Job) ReadIngestResult() (IngestResult, error) {
	var result IngestResult
	data, err := os.ReadFile(filepath.Join(j.Dir, "ingest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return result, errs.Wrap(errs.ErrNotFound, string(StageIngest), "ReadIngestResult", "ingest.json missing", "run 'ingest' on this job first", err)
		}
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, errs.Wrap(errs.ErrValidation, string(StageIngest), "ReadIngestResult", "ingest.json is not valid JSON", "", err)
	}
	return result, nil
}

// SegmentWriter accumulates transcript segments to a temp file as
// newline-delimited JSON, one durable write per segment, and finalizes them
// into raw_transcript.json (a JSON array, per the on-disk format contract)
// only once the stream ends. This keeps partial progress on disk during a
// long SCRIBE call while still handing downstream stages the array shape
// they expect.
type SegmentWriter struct {
	tmpPath string
	file    *os.File
	writer  *bufio.Writer
	final   string
	count   int
}

// NewSegmentWriter opens the temp file backing an in-progress transcript.
func NewSegmentWriter(job *Job) (*SegmentWriter, error) {
	dir := job.TranscriptsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmpPath := filepath.Join(dir, ".raw_transcript.ndjson.tmp")
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &SegmentWriter{
		tmpPath: tmpPath,
		file:    file,
		writer:  bufio.NewWriter(file),
		final:   filepath.Join(dir, "raw_transcript.json"),
	}, nil
}

// Append validates ordering and durably appends one segment.
func (w *SegmentWriter) Append(seg TranscriptSegment) error {
	if seg.EndTime < seg.StartTime {
		return errs.Wrap(errs.ErrValidation, string(StageScribe), "SegmentWriter.Append",
			fmt.Sprintf("SegmentOrderingViolation: end_time %.3f precedes start_time %.3f", seg.EndTime, seg.StartTime),
			"", fmt.Errorf("segment ordering violation"))
	}
	data, err := json.Marshal(seg)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of segments appended so far.
func (w *SegmentWriter) Count() int { return w.count }

// Finalize converts the accumulated ndjson temp file into a JSON array and
// atomically renames it to raw_transcript.json, then removes the temp file.
func (w *SegmentWriter) Finalize() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return err
	}

	segments, err := readNDJSONSegments(w.tmpPath)
	if err != nil {
		return err
	}
	if err := writeJSONAtomic(w.final, segments); err != nil {
		return err
	}
	return os.Remove(w.tmpPath)
}

// Abort discards the in-progress temp file without producing a final
// transcript, for use when the stage fails mid-stream.
func (w *SegmentWriter) Abort() error {
	_ = w.writer.Flush()
	_ = w.file.Close()
	return os.Remove(w.tmpPath)
}

func readNDJSONSegments(path string) ([]TranscriptSegment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var segments []TranscriptSegment
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var seg TranscriptSegment
		if err := json.Unmarshal(line, &seg); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

// ReadTranscript reads and parses raw_transcript.json.
func (j *Job) ReadTranscript() ([]TranscriptSegment, error) {
	data, err := os.ReadFile(filepath.Join(j.TranscriptsDir(), "raw_transcript.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrNotFound, string(StageScribe), "ReadTranscript", "raw_transcript.json missing", "run 'scribe' on this job first", err)
		}
		return nil, err
	}
	var segments []TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, errs.Wrap(errs.ErrValidation, string(StageScribe), "ReadTranscript", "raw_transcript.json is not valid JSON", "", err)
	}
	return segments, nil
}

// WriteEnrichedContext atomically writes enriched_context.json.
func (j *Job) WriteEnrichedContext(ctx EnrichedContext) error {
	return writeJSONAtomic(filepath.Join(j.Dir, "enriched_context.json"), ctx)
}

// ReadEnrichedContext reads and parses enriched_context.json.
func (j *Job) ReadEnrichedContext() (EnrichedContext, error) {
	data, err := os.ReadFile(filepath.Join(j.Dir, "enriched_context.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrNotFound, string(StageRefine), "ReadEnrichedContext", "enriched_context.json missing", "run 'refine' on this job first", err)
		}
		return nil, err
	}
	var ctx EnrichedContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, errs.Wrap(errs.ErrValidation, string(StageRefine), "ReadEnrichedContext", "enriched_context.json is not valid JSON", "", err)
	}
	return ctx, nil
}

// artifactPathsFor lists the files/directories a stage's outputs live under,
// in the fixed job directory layout (spec.md §4.1/§4.2). Every stage's
// _stages/<stage>.json detail (and the UsageRecord it carries) is cleared
// alongside its artifacts so a cleared-but-not-yet-re-run stage can never
// contribute a stale record to RecomputeProcessing.
func (j *Job) artifactPathsFor(stage Stage) []string {
	detail := filepath.Join(j.StagesDir(), string(stage)+".json")
	switch stage {
	case StageIngest:
		return []string{filepath.Join(j.Dir, "ingest.json"), j.MediaDir(), detail}
	case StageScribe:
		return []string{j.TranscriptsDir(), detail}
	case StageRefine:
		return []string{filepath.Join(j.Dir, "enriched_context.json"), detail}
	case StageGenerate:
		return []string{j.ArtifactsDir(), detail}
	default:
		return []string{detail}
	}
}

// ClearArtifactsFrom removes the on-disk outputs of stage and every later
// stage ahead of a destructive re-execution (spec.md §4.2: "all downstream
// stage statuses and their artifacts are cleared before re-running"). When
// debug is true, files are moved under _stages/trash/<timestamp>/ instead of
// being deleted, so a debugging session can still inspect what an earlier
// attempt produced.
func (j *Job) ClearArtifactsFrom(stage Stage, debug bool, now time.Time) error {
	idx := stage.Index()
	if idx < 0 {
		return nil
	}

	var trashDir string
	if debug {
		trashDir = filepath.Join(j.StagesDir(), "trash", now.UTC().Format("20060102T150405Z"))
	}

	for _, s := range Stages[idx:] {
		for _, path := range j.artifactPathsFor(s) {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if !debug {
				if err := os.RemoveAll(path); err != nil {
					return err
				}
				continue
			}
			dest := filepath.Join(trashDir, string(s), filepath.Base(path))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := os.Rename(path, dest); err != nil {
				return err
			}
		}
	}

	if stage == StageIngest || stage.Index() <= StageScribe.Index() {
		// media/ and transcripts/ are recreated lazily by their stage
		// executors; recreate them now so a caller can immediately stat
		// into them (e.g. tests, or a stage retried before re-running INGEST).
		_ = os.MkdirAll(j.MediaDir(), 0o755)
		_ = os.MkdirAll(j.TranscriptsDir(), 0o755)
	}
	if stage.Index() <= StageGenerate.Index() {
		_ = os.MkdirAll(j.ArtifactsDir(), 0o755)
	}
	return nil
}

// StageDetail is the shape written to _stages/<stage>.json: a durable record
// of what happened during one stage attempt, independent of state.json.
type StageDetail struct {
	Status    StageStatus  `json:"status"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Error     string       `json:"error,omitempty"`
	Hint      string       `json:"hint,omitempty"`
	Usage     *UsageRecord `json:"usage,omitempty"`
	Request   string       `json:"request_summary,omitempty"`
	Response  string       `json:"response_summary,omitempty"`
}

// WriteStageDetail atomically writes a stage's detail record.
func (j *Job) WriteStageDetail(stage Stage, detail StageDetail) error {
	return writeJSONAtomic(filepath.Join(j.StagesDir(), string(stage)+".json"), detail)
}

// ReadStageDetail reads a stage's detail record, returning the zero value
// and no error if the stage has never been attempted.
func (j *Job) ReadStageDetail(stage Stage) (StageDetail, error) {
	var detail StageDetail
	data, err := os.ReadFile(filepath.Join(j.StagesDir(), string(stage)+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return detail, nil
		}
		return detail, err
	}
	if err := json.Unmarshal(data, &detail); err != nil {
		return detail, err
	}
	return detail, nil
}

// RecomputeProcessing rebuilds Meta.Processing from scratch by summing the
// UsageRecord on every _stages/<stage>.json detail that carries one, whatever
// that stage's status (only StagesCompleted is limited to COMPLETED stages),
// rather than trusting an incrementally-accumulated total. This is what keeps
// meta.json's totals equal to sum(UsageRecord.cost_usd) (invariant 5) across
// Continue/Retry, where a stage's prior attempt is superseded by a fresh
// detail file rather than appended to.
func (j *Job) RecomputeProcessing() error {
	var processing Processing
	for _, stage := range Stages {
		detail, err := j.ReadStageDetail(stage)
		if err != nil {
			return err
		}
		if detail.Usage == nil {
			continue
		}
		processing = processing.Add(*detail.Usage)
		if detail.Status == StageCompleted {
			processing.StagesCompleted = appendStageOnce(processing.StagesCompleted, stage)
		}
	}
	j.Meta.Processing = processing
	return nil
}

func appendStageOnce(stages []Stage, stage Stage) []Stage {
	for _, s := range stages {
		if s == stage {
			return stages
		}
	}
	return append(stages, stage)
}
