package cards

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds re-execution of a single collaborator call. Retries are
// local to the call; there is no job-level retry anywhere above this.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryConfig matches the production backoff: 3 attempts, exponential
// delay starting at 1s and capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		BaseDelay: 1 * time.Second,
		MaxDelay:  30 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.Attempts <= 0 {
		c.Attempts = d.Attempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	return c
}

// Retry runs op until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. The delay doubles between attempts up to MaxDelay.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("after %d attempts: %w", cfg.Attempts, lastErr)
}
