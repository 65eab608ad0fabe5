package config

import "time"

const (
	// DefaultJobWorkers is the worker pool capacity.
	DefaultJobWorkers = 10
	// DefaultJobTTL is how long a job is retained after its last update.
	DefaultJobTTL = 30 * time.Minute
	// DefaultSweepInterval is the expiry sweeper period.
	DefaultSweepInterval = 60 * time.Second
)

// JobsConfig contains worker pool and expiry sweeper configuration.
type JobsConfig struct {
	// Workers is the number of conversions that may run at once.
	Workers int `env:"JOB_WORKERS" envDefault:"10"`

	// TTL is how long a job may go without an update before it is evicted.
	TTL time.Duration `env:"JOB_TTL" envDefault:"30m"`

	// SweepInterval is how often expired jobs are evicted.
	SweepInterval time.Duration `env:"JOB_SWEEP_INTERVAL" envDefault:"60s"`

	// KeepRunning exempts RUNNING jobs from eviction.
	KeepRunning bool `env:"JOB_SWEEP_KEEP_RUNNING" envDefault:"false"`
}

// Sanitize applies guardrails to job configuration values.
func (c *JobsConfig) Sanitize() {
	if c.Workers <= 0 {
		c.Workers = DefaultJobWorkers
	}
	if c.TTL <= 0 {
		c.TTL = DefaultJobTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
}
