package scheduler

import (
	"time"

	"github.com/lightningshop/jobtrack/internal/config"
)

// Config controls the sweep period and how long one pass may take.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 15 * time.Minute,
		JobTimeout:  time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SchedulerInterval,
		JobTimeout:  DefaultConfig().JobTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultConfig().JobTimeout
	}
	return c
}

// Enabled reports whether the background loop should run.
func (c Config) Enabled() bool {
	return c.RunInterval > 0
}
