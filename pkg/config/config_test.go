package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8081, cfg.Port)

	assert.Equal(t, "*/10 * * * *", cfg.Reconcile.CronSpec)
	assert.Equal(t, "0 * * * *", cfg.Reconcile.FlagCronSpec)
	assert.Equal(t, 420, cfg.Reconcile.TimezoneOffsetMins)
	assert.Equal(t, 24, cfg.Reconcile.LookbackHours)
	assert.False(t, cfg.Reconcile.RunOnStartup)
	assert.Equal(t, time.Hour, cfg.Reconcile.StepCacheTTL)

	assert.Equal(t, "0 3 * * *", cfg.Purge.CronSpec)
	assert.Equal(t, 30, cfg.Purge.RetentionDays)

	assert.Equal(t, 1, cfg.Notification.Workers)
	assert.Equal(t, 3, cfg.Notification.MaxRetries)
	assert.Equal(t, time.Second, cfg.Notification.RetryDelay)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RECONCILE_CRON", "*/5 * * * *")
	t.Setenv("PURGE_RETENTION_DAYS", "90")
	t.Setenv("RUN_ON_STARTUP", "true")
	t.Setenv("STEP_CACHE_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "*/5 * * * *", cfg.Reconcile.CronSpec)
	assert.Equal(t, 90, cfg.Purge.RetentionDays)
	assert.True(t, cfg.Reconcile.RunOnStartup)
	assert.Equal(t, 30*time.Minute, cfg.Reconcile.StepCacheTTL)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}
