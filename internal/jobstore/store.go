package jobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"inkreel/internal/errs"
	"inkreel/internal/jobid"
)

const (
	stateFileName = "state.json"
	metaFileName  = "meta.json"
)

// Store persists jobs under a single working root, one directory per job_id.
type Store struct {
	root string
}

// Open returns a Store rooted at workDir, creating the directory if needed.
func Open(workDir string) (*Store, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "jobstore.Open", "create work directory", "check permissions on the configured work_dir", err)
	}
	return &Store{root: workDir}, nil
}

// Root returns the working directory this store is rooted at.
func (s *Store) Root() string { return s.root }

func (s *Store) jobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// Create allocates a new job directory for source, writes its initial
// state.json and meta.json, and returns the resulting Job.
func (s *Store) Create(source string, cfg Configuration, now time.Time) (*Job, error) {
	id := jobid.New(now, source)
	dir := s.jobDir(id)
	base := id
	for n := 2; ; n++ {
		if _, err := os.Stat(dir); err != nil {
			break
		}
		// Timestamp collision within the same second; disambiguate by suffix.
		id = fmt.Sprintf("%s-%d", base, n)
		dir = s.jobDir(id)
	}

	for _, sub := range []string{"", "media", "transcripts", "artifacts", "_stages"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, errs.Wrap(errs.ErrExternalTool, "", "jobstore.Create", "create job subdirectory", "", err)
		}
	}

	job := &Job{
		ID:  id,
		Dir: dir,
		State: NewState(now),
		Meta: Meta{
			JobID:         id,
			Source:        source,
			Configuration: cfg,
		},
	}

	if err := s.Save(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Load reads a job's state.json and meta.json from disk. A corrupt
// state.json is reconstructed from _stages/*.json detail files if any are
// present; otherwise the job is returned with a fresh State whose Status is
// JobFailed (no error text is recorded on it) so callers can still report on
// it.
func (s *Store) Load(jobID string) (*Job, error) {
	dir := s.jobDir(jobID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errs.Wrap(errs.ErrNotFound, "", "jobstore.Load", fmt.Sprintf("job %q not found", jobID), "run 'jobs list' to see known job ids", err)
	}

	job := &Job{ID: jobID, Dir: dir}

	state, err := readState(filepath.Join(dir, stateFileName))
	if err != nil {
		recovered, recErr := reconstructStateFromStageDetails(dir)
		if recErr != nil {
			now := time.Now()
			state = NewState(now)
			state.Status = JobFailed
		} else {
			state = recovered
		}
	}
	job.State = state

	meta, err := readMeta(filepath.Join(dir, metaFileName))
	if err != nil {
		meta = Meta{JobID: jobID}
	}
	job.Meta = meta

	return job, nil
}

// Save atomically persists state.json and meta.json for the job.
func (s *Store) Save(job *Job) error {
	job.State.UpdatedAt = time.Now()
	if err := writeJSONAtomic(filepath.Join(job.Dir, stateFileName), job.State); err != nil {
		return errs.Wrap(errs.ErrExternalTool, "", "jobstore.Save", "write state.json", "", err)
	}
	if err := writeJSONAtomic(filepath.Join(job.Dir, metaFileName), job.Meta); err != nil {
		return errs.Wrap(errs.ErrExternalTool, "", "jobstore.Save", "write meta.json", "", err)
	}
	return nil
}

// Delete removes a job's entire working directory.
func (s *Store) Delete(job *Job) error {
	if err := os.RemoveAll(job.Dir); err != nil {
		return errs.Wrap(errs.ErrExternalTool, "", "jobstore.Delete", "remove job directory", "", err)
	}
	return nil
}

// ListFilter narrows the result of List.
type ListFilter struct {
	Status JobStatus // zero value: no filter
	Since  time.Time // zero value: no filter
}

// List enumerates every job directory under the working root, applying the
// given filter. Results are sorted by job_id, which sorts chronologically.
func (s *Store) List(filter ListFilter) ([]*Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errs.Wrap(errs.ErrExternalTool, "", "jobstore.List", "read work directory", "", err)
	}

	var jobs []*Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		job, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		if filter.Status != "" && job.State.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && job.State.UpdatedAt.Before(filter.Since) {
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

// Latest returns the job with the most recent UpdatedAt, optionally narrowed
// by accept (e.g. a capability check against the job's configured provider).
// It returns (nil, nil) when no job matches.
func (s *Store) Latest(accept func(*Job) bool) (*Job, error) {
	jobs, err := s.List(ListFilter{})
	if err != nil {
		return nil, err
	}

	var best *Job
	for _, job := range jobs {
		if accept != nil && !accept(job) {
			continue
		}
		if best == nil || job.State.UpdatedAt.After(best.State.UpdatedAt) {
			best = job
		}
	}
	return best, nil
}

func readState(path string) (State, error) {
	var state State
	data, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, err
	}
	return state, nil
}

func readMeta(path string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// reconstructStateFromStageDetails rebuilds a best-effort State from
// per-stage detail files under _stages/ when state.json itself is corrupt.
func reconstructStateFromStageDetails(dir string) (State, error) {
	stagesDir := filepath.Join(dir, "_stages")
	entries, err := os.ReadDir(stagesDir)
	if err != nil {
		return State{}, err
	}

	now := time.Now()
	state := NewState(now)
	found := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stage := Stage(trimJSONExt(entry.Name()))
		if !stage.Valid() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(stagesDir, entry.Name()))
		if err != nil {
			continue
		}
		var detail struct {
			Status StageStatus `json:"status"`
			Error  string      `json:"error"`
		}
		if err := json.Unmarshal(data, &detail); err != nil {
			continue
		}
		if detail.Status == "" {
			continue
		}
		state.Stages[stage] = &StageRecord{Status: detail.Status, Error: detail.Error}
		found = true
	}
	if !found {
		return State{}, fmt.Errorf("no recoverable stage details in %s", stagesDir)
	}
	return state, nil
}

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}

// writeJSONAtomic marshals v and writes it to path via write-temp-then-rename
// so a crash mid-write never leaves a truncated file behind.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
