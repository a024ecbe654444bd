package jobstore

import "time"

// Stage identifies one of the five ordered pipeline stages.
type Stage string

const (
	StageIngest   Stage = "ingest"
	StageScribe   Stage = "scribe"
	StageRefine   Stage = "refine"
	StageGenerate Stage = "generate"
	StageShelve   Stage = "shelve"
)

// Stages lists the five stages in execution order.
var Stages = []Stage{StageIngest, StageScribe, StageRefine, StageGenerate, StageShelve}

// Index returns a stage's position in the fixed execution order, or -1 if
// the value is not a known stage.
func (s Stage) Index() int {
	for i, candidate := range Stages {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the five known stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// StageStatus is the lifecycle state of a single stage within a job.
type StageStatus string

const (
	StagePending   StageStatus = "PENDING"
	StageRunning   StageStatus = "RUNNING"
	StageCompleted StageStatus = "COMPLETED"
	StageFailed    StageStatus = "FAILED"
	StageSkipped   StageStatus = "SKIPPED"
)

// JobStatus is the coarse-grained lifecycle of the job as a whole.
type JobStatus string

const (
	JobCreated   JobStatus = "CREATED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// StageRecord captures one stage's status history within state.json.
type StageRecord struct {
	Status     StageStatus `json:"status"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// State is the contents of a job's state.json.
type State struct {
	Status    JobStatus              `json:"status"`
	Stages    map[Stage]*StageRecord `json:"stages"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewState returns a State with every stage initialized to PENDING.
func NewState(now time.Time) State {
	stages := make(map[Stage]*StageRecord, len(Stages))
	for _, stage := range Stages {
		stages[stage] = &StageRecord{Status: StagePending}
	}
	return State{
		Status:    JobCreated,
		Stages:    stages,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ArtifactSpec pairs a rendering plugin with a template and optional
// filename override; see internal/config.ArtifactSpec, of which this is the
// frozen-at-creation-time counterpart.
type ArtifactSpec struct {
	Plugin   string `json:"plugin"`
	Template string `json:"template"`
	Filename string `json:"filename,omitempty"`
}

// Configuration is a snapshot of process-level defaults frozen at job
// creation time. Later edits to the process config never retroactively
// affect a job already created from it.
type Configuration struct {
	ScribeProvider  string         `json:"scribe_provider"`
	ScribeModel     string         `json:"scribe_model,omitempty"`
	RefineProvider  string         `json:"refine_provider"`
	RefineModel     string         `json:"refine_model,omitempty"`
	CompressionMode string         `json:"compression_mode"`
	LanguageHint    string         `json:"language_hint"`
	DirectMode      bool           `json:"direct_mode"`
	Artifacts       []ArtifactSpec `json:"artifacts"`
	ShelveStrategy  string         `json:"shelve_strategy"`
	Debug           bool           `json:"debug"`
}

// UsageRecord is per-call billing and effort data for one stage invocation.
type UsageRecord struct {
	Stage          Stage   `json:"stage"`
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	InputTokens    int64   `json:"input_tokens"`
	OutputTokens   int64   `json:"output_tokens"`
	CostUSD        float64 `json:"cost_usd"`
	DurationSecs   float64 `json:"duration_seconds"`
	RequestCount   int     `json:"request_count"`
}

// Processing aggregates usage totals across every UsageRecord recorded so far.
type Processing struct {
	TotalTokens      int64   `json:"total_tokens"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	RequestCount     int     `json:"request_count"`
	StagesCompleted  []Stage `json:"stages_completed"`
}

// Add folds a UsageRecord into the running totals and returns the result.
func (p Processing) Add(rec UsageRecord) Processing {
	p.TotalTokens += rec.InputTokens + rec.OutputTokens
	p.TotalCostUSD += rec.CostUSD
	p.TotalTimeSeconds += rec.DurationSecs
	p.RequestCount += rec.RequestCount
	return p
}

// Meta is the contents of a job's meta.json.
type Meta struct {
	JobID         string        `json:"job_id"`
	Source        string        `json:"source"`
	Configuration Configuration `json:"configuration"`
	Processing    Processing    `json:"processing"`
}

// Job is the in-memory combination of a job's directory, state, and metadata.
type Job struct {
	ID    string
	Dir   string
	State State
	Meta  Meta
}

// MediaDir, TranscriptsDir, ArtifactsDir, and StagesDir return the
// job-relative subdirectories fixed by the job store's directory layout.
func (j *Job) MediaDir() string       { return j.Dir + "/media" }
func (j *Job) TranscriptsDir() string { return j.Dir + "/transcripts" }
func (j *Job) ArtifactsDir() string   { return j.Dir + "/artifacts" }
func (j *Job) StagesDir() string      { return j.Dir + "/_stages" }

// StageRecordFor returns the stage record for the given stage, creating one
// in PENDING state if it is missing (defensive against a partially-written
// state.json).
func (j *Job) StageRecordFor(stage Stage) *StageRecord {
	if j.State.Stages == nil {
		j.State.Stages = map[Stage]*StageRecord{}
	}
	rec, ok := j.State.Stages[stage]
	if !ok {
		rec = &StageRecord{Status: StagePending}
		j.State.Stages[stage] = rec
	}
	return rec
}

// FirstIncompleteStage returns the earliest stage that is not COMPLETED or
// SKIPPED, or ("", false) if every stage has finished.
func (j *Job) FirstIncompleteStage() (Stage, bool) {
	for _, stage := range Stages {
		rec := j.StageRecordFor(stage)
		if rec.Status != StageCompleted && rec.Status != StageSkipped {
			return stage, true
		}
	}
	return "", false
}

// ResetFrom sets stage and every later stage back to PENDING, clearing their
// timestamps and errors. It does not touch earlier stages.
func (j *Job) ResetFrom(stage Stage) {
	idx := stage.Index()
	if idx < 0 {
		return
	}
	for _, s := range Stages[idx:] {
		j.State.Stages[s] = &StageRecord{Status: StagePending}
	}
}

// IngestResult is the record produced by INGEST describing the media and any
// upstream provider cache state.
type IngestResult struct {
	SourcePath         string  `json:"source_path"`
	WorkingCopyPath    string  `json:"working_copy_path"`
	CompressedPath     string  `json:"compressed_path,omitempty"`
	DurationSeconds    float64 `json:"duration_seconds"`
	Format             string  `json:"format"`
	BitrateKbps        int     `json:"bitrate_kbps"`
	UpstreamCacheHandle string `json:"upstream_cache_handle,omitempty"`
	UploadedURI        string  `json:"uploaded_uri,omitempty"`
}

// TranscriptSegment is one speaker turn in a transcript.
type TranscriptSegment struct {
	SpeakerID  string  `json:"speaker_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// EnrichedContext is the structured object produced by REFINE: a mapping
// from schema field name to value, always including provider/model and the
// detected language under reserved keys.
type EnrichedContext map[string]any

const (
	ContextFieldProvider = "_provider"
	ContextFieldModel    = "_model"
	ContextFieldLanguage = "_language"
)

// ProviderDescriptor describes a transcription or refinement backend as
// loaded from its metadata file; see internal/providers.
type ProviderDescriptor struct {
	Name              string         `yaml:"name" json:"name"`
	DisplayName       string         `yaml:"display_name" json:"display_name"`
	Type              string         `yaml:"type" json:"type"` // cloud|local|hybrid
	Capabilities      []string       `yaml:"capabilities" json:"capabilities"`
	APIKeyRequirement string         `yaml:"api_key_requirement" json:"api_key_requirement,omitempty"`
	Models            []string       `yaml:"models" json:"models"`
	CostTable         map[string]any `yaml:"cost_table" json:"cost_table,omitempty"`
}

// HasCapability reports whether the descriptor declares the given capability.
func (d ProviderDescriptor) HasCapability(capability string) bool {
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
