package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabapcia/poolwatch/internal/pkg/validator"
	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POOLWATCH_RPC_URL", "https://rpc.example.com")
	t.Setenv("POOLWATCH_CONTRACT_ADDRESS", "0x0000000000000000000000000000000000001001")
	t.Setenv("POOLWATCH_BARK_KEY", "device-key")
}

func TestLoad(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 15*time.Second, cfg.PollInterval)
		assert.Equal(t, 30*time.Second, cfg.ErrorBackoff)
		assert.Equal(t, uint64(1000), cfg.MaxBlockRange)
		assert.Equal(t, "https://api.day.app", cfg.BarkServer)
		assert.Equal(t, "poolwatch", cfg.NotificationGroup)
		assert.Equal(t, uint(5), cfg.DeliveryMaxAttempts)
		assert.Equal(t, 8*time.Hour, cfg.HeartbeatInterval)
		assert.Equal(t, []string{"deposit", "withdraw", "borrow", "repay", "liquidation", "flashloan"}, cfg.TrackedEvents)
		assert.False(t, cfg.UseRedisCursor())
	})

	t.Run("should fail without required values", func(t *testing.T) {
		t.Setenv("POOLWATCH_RPC_URL", "")
		t.Setenv("POOLWATCH_CONTRACT_ADDRESS", "")
		t.Setenv("POOLWATCH_BARK_KEY", "")

		_, err := Load()
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})

	t.Run("should read overrides", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("POOLWATCH_POLL_INTERVAL", "5s")
		t.Setenv("POOLWATCH_TRACKED_EVENTS", "deposit,liquidation")
		t.Setenv("POOLWATCH_STATE_FIELDS", "implementation")
		t.Setenv("POOLWATCH_REDIS_ADDR", "localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, cfg.PollInterval)
		assert.Equal(t, []string{"deposit", "liquidation"}, cfg.TrackedEvents)
		assert.Equal(t, []string{"implementation"}, cfg.StateFields)
		assert.True(t, cfg.UseRedisCursor())
	})

	t.Run("should reject unknown tracked events", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("POOLWATCH_TRACKED_EVENTS", "deposit,supply")

		_, err := Load()
		assert.ErrorContains(t, err, "unknown tracked event")
	})
}

func TestConfig_ParsedTrackedEvents(t *testing.T) {
	cfg := Config{TrackedEvents: []string{"deposit", "flashloan"}}

	kinds, err := cfg.ParsedTrackedEvents()
	require.NoError(t, err)
	assert.Equal(t, []poolwatch.EventKind{poolwatch.KindDeposit, poolwatch.KindFlashLoan}, kinds)
}
