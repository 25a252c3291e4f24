package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"whatsrelay/internal/constants"
)

// BackoffConfig contains configuration for exponential backoff
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       bool
}

// DefaultBackoffConfig is the policy used while opening the database at startup
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Duration(constants.DefaultRetryBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(constants.DefaultMaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	}
}

// Backoff implements exponential backoff with optional jitter
type Backoff struct {
	config BackoffConfig
}

func NewBackoff(config BackoffConfig) *Backoff {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	return &Backoff{config: config}
}

// Retry runs operation until it succeeds, the attempts run out or ctx is done.
// The last operation error is returned.
func (b *Backoff) Retry(ctx context.Context, operation func() error) error {
	return b.RetryWithPredicate(ctx, operation, func(error) bool { return true })
}

// RetryWithPredicate is Retry that gives up at once on errors isRetryable rejects
func (b *Backoff) RetryWithPredicate(ctx context.Context, operation func() error, isRetryable func(error) bool) error {
	var lastErr error

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == b.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// delay computes the wait after the given attempt: exponential, capped at
// MaxDelay, with up to 25% jitter either way
func (b *Backoff) delay(attempt int) time.Duration {
	d := float64(b.config.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= b.config.Multiplier
	}
	if d > float64(b.config.MaxDelay) {
		d = float64(b.config.MaxDelay)
	}

	if b.config.Jitter {
		d += (rand.Float64() - 0.5) * 0.5 * d
		if d > float64(b.config.MaxDelay) {
			d = float64(b.config.MaxDelay)
		}
	}

	return time.Duration(d)
}
