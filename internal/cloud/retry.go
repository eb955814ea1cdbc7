package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// ExecuteAction wraps a provider API call with retry logic: exponential
// backoff, jitter, and a context timeout covering the whole operation.
//
// opName is used for logging. operation must accept a context so it can be
// cancelled mid-flight.
func ExecuteAction(ctx context.Context, cfg RetryConfig, opName string, operation func(ctx context.Context) error) error {
	if cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OperationTimeout)
		defer cancel()
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out before attempt %d: %w", opName, attempt+1, ctx.Err())
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		// Permanent errors fail fast; classification happens upstream.
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxRetries {
			break
		}

		slog.Warn("Transient error detected, scheduling retry",
			"operation", opName,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"error", lastErr)

		// Exponential backoff with jitter: BaseDelay * 2^attempt plus up to
		// 50% random slack, capped at MaxDelay.
		backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		sleepDuration := min(time.Duration(backoff)+jitter, cfg.MaxDelay)

		if err := sleep(ctx, sleepDuration); err != nil {
			return fmt.Errorf("%s context cancelled during backoff: %w", opName, err)
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, cfg.MaxRetries, lastErr)
}
