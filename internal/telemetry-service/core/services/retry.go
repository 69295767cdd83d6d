package services

import (
	"context"
	"errors"
	"time"

	"fleetflow/internal/telemetry-service/core/myerrors"
)

// withRetry re-runs op with exponential backoff, but only for errors
// the taxonomy marks retryable. Anything else fails fast.
func withRetry(ctx context.Context, attempts int, base time.Duration, op func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		if err = op(ctx); err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func isRetryable(err error) bool {
	return errors.Is(err, myerrors.ErrTransientStore) || errors.Is(err, myerrors.ErrPublish)
}
