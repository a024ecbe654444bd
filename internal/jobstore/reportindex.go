package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ReportIndex is a non-authoritative SQLite cache over job usage totals. The
// filesystem (state.json/meta.json under the working root) remains the
// source of truth; this index exists only to make `report` fast without
// re-reading every job directory. It can be deleted and rebuilt
// from the filesystem at any time with no loss of information.
type ReportIndex struct {
	db *sql.DB
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// OpenReportIndex opens (creating if necessary) the cache database under
// logDir.
func OpenReportIndex(logDir string) (*ReportIndex, error) {
	dbPath := filepath.Join(logDir, "reportindex.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open report index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	index := &ReportIndex{db: db}
	if err := index.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

func (r *ReportIndex) initSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS job_usage (
	job_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	total_tokens INTEGER NOT NULL,
	total_cost_usd REAL NOT NULL,
	total_time_seconds REAL NOT NULL,
	request_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_usage_updated_at ON job_usage(updated_at);
`
	return r.execWithoutResultRetry(ctx, ddl)
}

// Close closes the underlying database connection.
func (r *ReportIndex) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Upsert records or refreshes a job's usage totals in the index. Call this
// after every jobstore.Save so the index never drifts far from disk.
func (r *ReportIndex) Upsert(ctx context.Context, job *Job) error {
	const stmt = `
INSERT INTO job_usage (job_id, status, updated_at, total_tokens, total_cost_usd, total_time_seconds, request_count)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
	status = excluded.status,
	updated_at = excluded.updated_at,
	total_tokens = excluded.total_tokens,
	total_cost_usd = excluded.total_cost_usd,
	total_time_seconds = excluded.total_time_seconds,
	request_count = excluded.request_count;
`
	return r.execWithoutResultRetry(ctx, stmt,
		job.ID, string(job.State.Status), job.State.UpdatedAt.UTC().Format(time.RFC3339Nano),
		job.Meta.Processing.TotalTokens, job.Meta.Processing.TotalCostUSD,
		job.Meta.Processing.TotalTimeSeconds, job.Meta.Processing.RequestCount,
	)
}

// Remove drops a job's row, e.g. after jobstore.Delete.
func (r *ReportIndex) Remove(ctx context.Context, jobID string) error {
	return r.execWithoutResultRetry(ctx, "DELETE FROM job_usage WHERE job_id = ?", jobID)
}

// FleetTotals sums usage across every indexed job updated at or after since.
type FleetTotals struct {
	JobCount         int
	TotalTokens      int64
	TotalCostUSD     float64
	TotalTimeSeconds float64
	RequestCount     int
}

// Totals aggregates usage for jobs updated on or after since (zero value:
// no lower bound).
func (r *ReportIndex) Totals(ctx context.Context, since time.Time) (FleetTotals, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(total_tokens),0), COALESCE(SUM(total_cost_usd),0), COALESCE(SUM(total_time_seconds),0), COALESCE(SUM(request_count),0) FROM job_usage`
	args := []any{}
	if !since.IsZero() {
		query += " WHERE updated_at >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}

	var totals FleetTotals
	row := r.db.QueryRowContext(ensureContext(ctx), query, args...)
	if err := row.Scan(&totals.JobCount, &totals.TotalTokens, &totals.TotalCostUSD, &totals.TotalTimeSeconds, &totals.RequestCount); err != nil {
		return FleetTotals{}, fmt.Errorf("scan fleet totals: %w", err)
	}
	return totals, nil
}

// Rebuild clears the index and repopulates it from the authoritative
// filesystem state via store.List, for use when the index is deleted,
// corrupt, or suspected stale.
func Rebuild(ctx context.Context, index *ReportIndex, store *Store) error {
	if err := index.execWithoutResultRetry(ctx, "DELETE FROM job_usage"); err != nil {
		return err
	}
	jobs, err := store.List(ListFilter{})
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := index.Upsert(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (r *ReportIndex) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, args...)
		return err
	})
}
