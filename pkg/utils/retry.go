// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig bounds how often and how fast an operation is retried
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryConfig builds a RetryConfig
func NewRetryConfig(maxAttempts int, baseDelay, maxDelay time.Duration) RetryConfig {
	return RetryConfig{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
}

// backoff is the wait before retry number attempt. It doubles from BaseDelay
// and never exceeds MaxDelay.
func (c RetryConfig) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := c.BaseDelay
	for i := 1; i < attempt && delay < c.MaxDelay; i++ {
		delay *= 2
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. RetryWithExponentialBackoff
// returns the unwrapped err as soon as it sees one.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithExponentialBackoff runs fn up to MaxAttempts times, sleeping
// between attempts. A cancelled ctx ends the wait early.
func RetryWithExponentialBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if waitErr := sleepCtx(ctx, config.backoff(attempt-1)); waitErr != nil {
				return fmt.Errorf("retry cancelled: %w", waitErr)
			}
		}

		if err = fn(); err == nil {
			if attempt > 1 {
				slog.InfoContext(ctx, "operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}

		slog.WarnContext(ctx, "operation failed",
			"attempt", attempt,
			"max_attempts", config.MaxAttempts,
			"error", err,
		)
	}
	return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
