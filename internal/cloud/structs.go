package cloud

import (
	"context"
	"time"
)

// RetryConfig defines the parameters for the exponential backoff and retry
// mechanism applied to individual provider API calls. This is the short local
// retry inside one attempt, not the capacity polling loop between attempts.
type RetryConfig struct {
	// MaxRetries is the maximum number of additional attempts after the initial
	// failure. With MaxRetries 3 the operation runs at most 4 times.
	MaxRetries int

	// BaseDelay is the initial wait time before the first retry. The wait
	// grows exponentially with each attempt (BaseDelay * 2^attempt).
	BaseDelay time.Duration

	// MaxDelay is the hard cap on the sleep duration between retries.
	MaxDelay time.Duration

	// OperationTimeout bounds the entire operation including all retries.
	OperationTimeout time.Duration

	// Retryable decides whether an error is transient. When nil every error
	// is treated as retryable.
	Retryable func(error) bool

	// Sleep waits between retries. When nil, SleepWithContext is used.
	// Tests inject a fake so retry behavior runs without real sleeping.
	Sleep Sleeper
}

// Sleeper blocks for the given duration or until the context is cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production Sleeper.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
