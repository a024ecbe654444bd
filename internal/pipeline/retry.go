package pipeline

import (
	"context"
	"time"

	"inkreel/internal/errs"
)

// withLinearRetry retries op up to maxAttempts times with a fixed delay
// between attempts, matching SCRIBE/REFINE's stage-level retry policy
// (spec §4.3): linear delay, distinct from the exponential backoff a
// provider's own HTTP layer may apply within a single attempt. Only
// errors classified as retryable trigger another attempt; anything else
// fails immediately with the provider's error payload preserved.
func withLinearRetry(ctx context.Context, maxAttempts, delaySeconds int, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !errs.Retryable(lastErr) || attempt == maxAttempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(delaySeconds) * time.Second):
		}
	}
	return lastErr
}
