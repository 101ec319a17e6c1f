package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_FirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), AttemptConfig{MaxAttempts: 3}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	cfg := AttemptConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	cfg := AttemptConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("still broken")
	})
	assert.EqualError(t, err, "still broken")
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelStopsAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := AttemptConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}
	err := Do(ctx, cfg, func(context.Context) error {
		calls++
		cancel()
		return errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := AttemptConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, _ error) { attempts = append(attempts, attempt) },
	}
	_ = Do(context.Background(), cfg, func(context.Context) error {
		return errors.New("x")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}
