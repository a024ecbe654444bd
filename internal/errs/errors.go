// Package errs defines the shared error taxonomy used across the pipeline
// stages, providers, and job store: sentinel markers, a stage/operation
// wrapper, and the classifier that turns a failure into a stage status.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrCancelled     = errors.New("cancelled")
)

// Wrap builds an error that carries stage/operation context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above. Hint, when non-empty, is surfaced to
// the user as the actionable next step (e.g. the command that produces a
// missing prerequisite artifact).
func Wrap(marker error, stage, operation, message, hint string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	wrapped := marker
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", marker, err)
	}
	if hint != "" {
		detail = detail + " (hint: " + hint + ")"
	}
	return fmt.Errorf("%s: %w", detail, wrapped)
}

// FailureStatus classifies a stage error as a status string: "cancelled"
// for an error wrapping ErrCancelled and "failed" for every other error.
func FailureStatus(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "failed"
	}
}

// Retryable reports whether err represents a transient condition (rate
// limiting, timeout, transport failure) that SCRIBE/REFINE's retry policy
// should re-attempt rather than fail the stage outright.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
