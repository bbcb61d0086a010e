// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConfig_Backoff(t *testing.T) {
	config := NewRetryConfig(10, 10*time.Millisecond, 50*time.Millisecond)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 3, want: 40 * time.Millisecond},
		{attempt: 4, want: 50 * time.Millisecond},
		{attempt: 9, want: 50 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, config.backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryWithExponentialBackoff(t *testing.T) {
	errConflict := errors.New("revision mismatch")
	errRejected := errors.New("composition rule violated")

	tests := []struct {
		name        string
		maxAttempts int
		// results are returned in order; the last one repeats
		results     []error
		wantCalls   int
		wantErr     error
		wantMessage string
	}{
		{
			name:        "first call succeeds",
			maxAttempts: 3,
			results:     []error{nil},
			wantCalls:   1,
		},
		{
			name:        "succeeds after two conflicts",
			maxAttempts: 3,
			results:     []error{errConflict, errConflict, nil},
			wantCalls:   3,
		},
		{
			name:        "every attempt fails",
			maxAttempts: 3,
			results:     []error{errConflict},
			wantCalls:   3,
			wantErr:     errConflict,
			wantMessage: "failed after 3 attempts",
		},
		{
			name:        "single attempt",
			maxAttempts: 1,
			results:     []error{errConflict},
			wantCalls:   1,
			wantErr:     errConflict,
			wantMessage: "failed after 1 attempts",
		},
		{
			name:        "permanent error stops at once",
			maxAttempts: 5,
			results:     []error{errConflict, Permanent(errRejected)},
			wantCalls:   2,
			wantErr:     errRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewRetryConfig(tt.maxAttempts, time.Millisecond, 4*time.Millisecond)

			calls := 0
			err := RetryWithExponentialBackoff(context.Background(), config, func() error {
				result := tt.results[min(calls, len(tt.results)-1)]
				calls++
				return result
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			} else {
				assert.NotContains(t, err.Error(), "failed after")
			}
		})
	}
}

func TestRetryWithExponentialBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := NewRetryConfig(5, time.Second, time.Second)

	calls := 0
	err := RetryWithExponentialBackoff(ctx, config, func() error {
		calls++
		cancel()
		return errors.New("revision mismatch")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Equal(t, 1, calls, "no attempt runs after cancellation")
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
