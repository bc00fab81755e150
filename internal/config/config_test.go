package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsSchedulerSettings(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "15m")
	t.Setenv("OUTBOX_INTERVAL", "not-a-duration")
	t.Setenv("SCHEDULER_JOBS", "overdue_sweep, notification_outbox ,")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, time.Minute, cfg.Scheduler.OutboxInterval)
	assert.Equal(t, []string{"overdue_sweep", "notification_outbox"}, cfg.Scheduler.EnabledJobs)
	assert.False(t, cfg.Redis.Enabled())
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("FEATURE_X", "yes")
	assert.True(t, getenvBool("FEATURE_X", false))

	t.Setenv("FEATURE_X", "garbage")
	assert.True(t, getenvBool("FEATURE_X", true))
}
