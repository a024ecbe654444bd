package jobstore

import (
	"time"
)

// CleanupResult summarizes one retention sweep.
type CleanupResult struct {
	Deleted []string
	Errors  []CleanupError
}

// CleanupError pairs a job id with the error encountered while removing it.
type CleanupError struct {
	JobID string
	Err   error
}

// Sweep deletes terminal jobs older than their class's retention window. It
// is idempotent and safe to run concurrently with active drivers: a job is
// only a candidate once its State.Status is FAILED or COMPLETED, a
// condition that, once true, an active driver never reverts.
func (s *Store) Sweep(now time.Time, failedRetention, completedRetention time.Duration) (CleanupResult, error) {
	jobs, err := s.List(ListFilter{})
	if err != nil {
		return CleanupResult{}, err
	}

	var result CleanupResult
	for _, job := range jobs {
		cutoff, eligible := retentionCutoff(job.State.Status, failedRetention, completedRetention)
		if !eligible {
			continue
		}
		if now.Sub(job.State.UpdatedAt) < cutoff {
			continue
		}
		if err := s.Delete(job); err != nil {
			result.Errors = append(result.Errors, CleanupError{JobID: job.ID, Err: err})
			continue
		}
		result.Deleted = append(result.Deleted, job.ID)
	}
	return result, nil
}

func retentionCutoff(status JobStatus, failedRetention, completedRetention time.Duration) (time.Duration, bool) {
	switch status {
	case JobFailed:
		return failedRetention, true
	case JobCompleted:
		return completedRetention, true
	default:
		return 0, false
	}
}

// DeleteOlderThan deletes jobs matching an optional status filter whose
// UpdatedAt is older than the given cutoff, regardless of class-specific
// retention windows. Used by the `jobs cleanup --older-than` CLI command.
func (s *Store) DeleteOlderThan(cutoff time.Time, status JobStatus) (CleanupResult, error) {
	jobs, err := s.List(ListFilter{Status: status})
	if err != nil {
		return CleanupResult{}, err
	}

	var result CleanupResult
	for _, job := range jobs {
		if job.State.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(job); err != nil {
			result.Errors = append(result.Errors, CleanupError{JobID: job.ID, Err: err})
			continue
		}
		result.Deleted = append(result.Deleted, job.ID)
	}
	return result, nil
}
