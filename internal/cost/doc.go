// Package cost aggregates per-job usage totals (already reconciled onto
// meta.json by internal/jobstore.Job.RecomputeProcessing) into a fleet-wide
// summary, and renders it as a table. No command in cmd/inkreel uses it; the
// `report` command prints totals from the jobstore report index instead.
package cost
