package errs_test

import (
	"errors"
	"strings"
	"testing"

	"inkreel/internal/errs"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := errs.Wrap(errs.ErrExternalTool, "ingest", "probe", "failed", "", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errs.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ingest", "probe", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapIncludesHint(t *testing.T) {
	err := errs.Wrap(errs.ErrNotFound, "scribe", "prereq", "ingest.json missing", "run `inkreel ingest`", nil)
	if !strings.Contains(err.Error(), "run `inkreel ingest`") {
		t.Fatalf("expected hint in error string, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	if status := errs.FailureStatus(errs.ErrCancelled); status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", status)
	}
	if status := errs.FailureStatus(errors.New("boom")); status != "failed" {
		t.Fatalf("expected failed, got %s", status)
	}
}

func TestRetryable(t *testing.T) {
	if !errs.Retryable(errs.ErrTransient) {
		t.Fatal("expected transient error to be retryable")
	}
	if !errs.Retryable(errs.ErrTimeout) {
		t.Fatal("expected timeout error to be retryable")
	}
	if errs.Retryable(errs.ErrValidation) {
		t.Fatal("expected validation error to not be retryable")
	}
}
