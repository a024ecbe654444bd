package cost

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"inkreel/internal/jobstore"
)

// FleetReport is a fleet-wide usage summary: totals plus a per-job breakdown
// for the reporting window.
type FleetReport struct {
	Since time.Time
	Totals jobstore.Processing
	Jobs   []JobUsage
}

// JobUsage is one row of the per-job breakdown.
type JobUsage struct {
	JobID  string
	Status jobstore.JobStatus
	Processing jobstore.Processing
}

// Build assembles a FleetReport from a set of jobs already filtered by the
// caller (typically jobstore.Store.List with a Since filter).
func Build(since time.Time, jobs []*jobstore.Job) FleetReport {
	report := FleetReport{Since: since}
	for _, job := range jobs {
		report.Jobs = append(report.Jobs, JobUsage{
			JobID:      job.ID,
			Status:     job.State.Status,
			Processing: job.Meta.Processing,
		})
		report.Totals.TotalTokens += job.Meta.Processing.TotalTokens
		report.Totals.TotalCostUSD += job.Meta.Processing.TotalCostUSD
		report.Totals.TotalTimeSeconds += job.Meta.Processing.TotalTimeSeconds
		report.Totals.RequestCount += job.Meta.Processing.RequestCount
	}
	return report
}

// Render formats the report as a table, matching the teacher's rounded-style
// go-pretty tables (cmd/spindle/table.go) and formatting byte/duration/
// currency figures with go-humanize.
func (r FleetReport) Render() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Job", "Status", "Tokens", "Cost", "Time", "Requests"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, job := range r.Jobs {
		tw.AppendRow(table.Row{
			job.JobID,
			string(job.Status),
			humanize.Comma(job.Processing.TotalTokens),
			formatUSD(job.Processing.TotalCostUSD),
			humanizeSeconds(job.Processing.TotalTimeSeconds),
			job.Processing.RequestCount,
		})
	}
	tw.AppendFooter(table.Row{
		"TOTAL", "",
		humanize.Comma(r.Totals.TotalTokens),
		formatUSD(r.Totals.TotalCostUSD),
		humanizeSeconds(r.Totals.TotalTimeSeconds),
		r.Totals.RequestCount,
	})
	return tw.Render()
}

func formatUSD(amount float64) string {
	return fmt.Sprintf("$%.4f", amount)
}

func humanizeSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
