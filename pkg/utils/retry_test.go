package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetry_ShouldRetryShortCircuits(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetryConfig()
	cfg.ShouldRetry = func(err error) bool {
		return !errors.Is(err, permanent)
	}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelStopsBackoff(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, cfg, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe context cancellation")
	}
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "quote", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "quote", got)
	assert.Equal(t, 2, calls)
}
