package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", errors.New("Error 429, Message: slow down"), true},
		{"resource exhausted", errors.New("Status: RESOURCE_EXHAUSTED"), true},
		{"quota", errors.New("Quota exceeded for metric"), true},
		{"claude rate limit", errors.New(`{"type":"rate_limit_error"}`), true},
		{"bad request", errors.New("Error 400 invalid argument"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(errors.New("529 overloaded_error")))
	assert.True(t, IsTransientError(errors.New("Error 503, Status: UNAVAILABLE")))
	assert.False(t, IsTransientError(errors.New("Error 400 invalid argument")))
	assert.False(t, IsTransientError(nil))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.001)

	assert.Equal(t, 12*time.Second, ExtractRetryDelay(errors.New("retryDelay: 12s")))
	assert.Zero(t, ExtractRetryDelay(errors.New("no hint here")))
	assert.Zero(t, ExtractRetryDelay(nil))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewDefaultRetryConfig()

	assert.Equal(t, 45*time.Second, c.CalculateBackoff(0, 0))
	assert.Equal(t, time.Duration(float64(45*time.Second)*1.5), c.CalculateBackoff(1, 0))
	assert.Equal(t, 15*time.Second, c.CalculateBackoff(0, 10*time.Second))
	assert.Equal(t, c.MaxBackoff, c.CalculateBackoff(5, 0))
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 1.5,
		TransientBackoff:  time.Millisecond,
	}
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	out, err := withRetry(context.Background(), fastRetry(), arbor.NewLogger(), ProviderGemini, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("Error 503 UNAVAILABLE")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastRetry(), arbor.NewLogger(), ProviderClaude, func() (string, error) {
		calls++
		return "", errors.New("Error 400 invalid argument")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastRetry(), arbor.NewLogger(), ProviderGemini, func() (int, error) {
		calls++
		return 0, errors.New("Error 429 RESOURCE_EXHAUSTED")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestWithRetry_HonoursCancellation(t *testing.T) {
	cfg := fastRetry()
	cfg.TransientBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := withRetry(ctx, cfg, arbor.NewLogger(), ProviderGemini, func() (int, error) {
		return 0, errors.New("Error 500 INTERNAL")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
