package cost

import (
	"strings"
	"testing"
	"time"

	"inkreel/internal/jobstore"
)

func TestBuildAndRenderFleetReport(t *testing.T) {
	jobs := []*jobstore.Job{
		{ID: "26-0803-000000_a", State: jobstore.State{Status: jobstore.JobCompleted}, Meta: jobstore.Meta{Processing: jobstore.Processing{TotalTokens: 100, TotalCostUSD: 0.5, RequestCount: 2}}},
		{ID: "26-0803-000001_b", State: jobstore.State{Status: jobstore.JobFailed}, Meta: jobstore.Meta{Processing: jobstore.Processing{TotalTokens: 40, TotalCostUSD: 0.1, RequestCount: 1}}},
	}
	report := Build(time.Time{}, jobs)
	if report.Totals.TotalTokens != 140 {
		t.Fatalf("expected 140 total tokens, got %d", report.Totals.TotalTokens)
	}
	rendered := report.Render()
	if !strings.Contains(rendered, "26-0803-000000_a") || !strings.Contains(rendered, "TOTAL") {
		t.Fatalf("expected rendered table to include job id and total row, got: %s", rendered)
	}
}
