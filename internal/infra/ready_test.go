package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWaitReady(t *testing.T) {
	logger := zap.NewNop()
	readyDelay = time.Millisecond

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WaitReady(context.Background(), logger, "postgres", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up with wrapped error", func(t *testing.T) {
		pingErr := errors.New("no route to host")
		err := WaitReady(context.Background(), logger, "redis", func(ctx context.Context) error {
			return pingErr
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.Contains(t, err.Error(), "redis unreachable")
	})
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestReleaseCacheKey(t *testing.T) {
	assert.Equal(t, "restguard:updater:release:acme/restguard", ReleaseCacheKey("acme", "restguard"))
	assert.Equal(t, "restguard:lock:settings:3", SettingsLockKey(3))
}
