package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/templates"
)

// isUserError reports whether err belongs to spec §7's "user error" or
// "prerequisite error" classes, which exit 1 rather than 2.
func isUserError(err error) bool {
	if err == nil {
		return false
	}
	var conflict *templates.TemplateSchemaConflict
	if errors.As(err, &conflict) {
		return true
	}
	return errors.Is(err, errs.ErrValidation) || errors.Is(err, errs.ErrConfiguration) || errors.Is(err, errs.ErrNotFound)
}

func stageSummary(job *jobstore.Job) string {
	parts := make([]string, 0, len(jobstore.Stages))
	for _, stage := range jobstore.Stages {
		rec := job.StageRecordFor(stage)
		parts = append(parts, fmt.Sprintf("%s=%s", stage, strings.ToLower(string(rec.Status))))
	}
	return strings.Join(parts, " ")
}

func formatCost(usd float64) string {
	return fmt.Sprintf("$%.4f", usd)
}

func formatDuration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}

func formatTokens(n int64) string {
	return humanize.Comma(n)
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
