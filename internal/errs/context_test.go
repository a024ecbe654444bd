package errs_test

import (
	"context"
	"testing"

	"inkreel/internal/errs"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = errs.WithJobID(ctx, "26-0803-143055_meeting")
	ctx = errs.WithStage(ctx, "scribe")
	ctx = errs.WithRequestID(ctx, "req-123")

	if id, ok := errs.JobIDFromContext(ctx); !ok || id != "26-0803-143055_meeting" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if stage, ok := errs.StageFromContext(ctx); !ok || stage != "scribe" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := errs.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = errs.WithStage(ctx, "")
	if _, ok := errs.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
