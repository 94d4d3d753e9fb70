package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Operation is a fallible unit of work that can be retried.
type Operation func() error

// WithRetry executes op up to maxAttempts times with linearly increasing
// backoff: attempt n sleeps n*baseDelay before retrying. Context
// cancellation stops retrying immediately, both while sleeping and when
// op itself failed because the context was cancelled.
func WithRetry(ctx context.Context, name string, op Operation, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * baseDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, lastErr)
}
