package scheduler

import (
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
)

const (
	JobOverdueSweep       = "overdue_sweep"
	JobNotificationOutbox = "notification_outbox"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	SweepInterval   time.Duration
	SweepTimeout    time.Duration
	OutboxInterval  time.Duration
	OutboxTimeout   time.Duration
	OutboxBatchSize int
	// EnabledJobs limits which jobs run. Empty means all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		SweepInterval:   time.Hour,
		SweepTimeout:    5 * time.Minute,
		OutboxInterval:  time.Minute,
		OutboxTimeout:   time.Minute,
		OutboxBatchSize: 50,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		SweepInterval:   cfg.Scheduler.SweepInterval,
		OutboxInterval:  cfg.Scheduler.OutboxInterval,
		OutboxBatchSize: cfg.Scheduler.OutboxBatch,
		EnabledJobs:     cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaults.SweepInterval
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	if c.OutboxInterval <= 0 {
		c.OutboxInterval = defaults.OutboxInterval
	}
	if c.OutboxTimeout <= 0 {
		c.OutboxTimeout = defaults.OutboxTimeout
	}
	if c.OutboxBatchSize <= 0 {
		c.OutboxBatchSize = defaults.OutboxBatchSize
	}
	return c
}

func (c Config) tick() time.Duration {
	if c.OutboxInterval < c.SweepInterval {
		return c.OutboxInterval
	}
	return c.SweepInterval
}
