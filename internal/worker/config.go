// Package worker provides background processing for SafeRide: ingesting
// device telemetry from Pub/Sub and sweeping sessions whose devices went
// quiet.
package worker

import (
	"time"

	"github.com/saferide/saferide/internal/config"
)

// SweepConfig holds configuration for the stale-session sweep.
type SweepConfig struct {
	// Interval is the time between sweeps.
	// Default: 15 seconds
	Interval time.Duration

	// StaleAfter is how long a session may go without a location before it
	// is re-evaluated with the staleness factor.
	// Default: 30 seconds
	StaleAfter time.Duration

	// Timeout bounds a single sweep pass.
	// Default: Interval
	Timeout time.Duration
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval:   15 * time.Second,
		StaleAfter: 30 * time.Second,
		Timeout:    15 * time.Second,
	}
}

// SweepConfigFrom builds a SweepConfig from the worker section of the
// application config, filling unset values with defaults.
func SweepConfigFrom(cfg config.WorkerConfig) SweepConfig {
	return SweepConfig{
		Interval:   cfg.SweepInterval,
		StaleAfter: cfg.StaleAfter,
	}.withDefaults()
}

func (c SweepConfig) withDefaults() SweepConfig {
	def := DefaultSweepConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = def.StaleAfter
	}
	if c.Timeout <= 0 {
		c.Timeout = c.Interval
	}
	return c
}
