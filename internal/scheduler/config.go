package scheduler

import (
	"time"

	"github.com/smallbiznis/repairdesk/internal/config"
)

// Config controls the sweep interval and per-run timeout.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Hour,
		Timeout:     5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled,
		RunInterval: time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.Scheduler.TimeoutSeconds) * time.Second,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}
