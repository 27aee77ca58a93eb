package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/monitor"
)

// Sweeper re-evaluates sessions whose devices stopped reporting.
type Sweeper interface {
	SweepStale(ctx context.Context, staleAfter time.Duration) (monitor.SweepResult, error)
}

// SweepJob periodically sweeps stale sessions so a silent device still
// has its staleness factor scored and escalated.
type SweepJob struct {
	config  SweepConfig
	sweeper Sweeper
	logger  zerolog.Logger
	now     func() time.Time

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	TotalSweeps     int64
	FailedSweeps    int64
	Evaluated       int64
	Escalated       int64
	SessionFailures int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config  SweepConfig
	Sweeper Sweeper
	Logger  zerolog.Logger

	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// NewSweepJob creates a new sweep job.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SweepJob{
		config:  cfg.Config.withDefaults(),
		sweeper: cfg.Sweeper,
		logger:  cfg.Logger,
		now:     cfg.Now,
		metrics: &SweepMetrics{},
	}
}

// SweepRunResult contains the result of one sweep pass.
type SweepRunResult struct {
	StartTime time.Time
	Duration  time.Duration
	monitor.SweepResult
	Err error
}

// Run executes one sweep pass.
func (j *SweepJob) Run(ctx context.Context) *SweepRunResult {
	start := j.now()
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res, err := j.sweeper.SweepStale(ctx, j.config.StaleAfter)
	result := &SweepRunResult{
		StartTime:   start,
		Duration:    j.now().Sub(start),
		SweepResult: res,
		Err:         err,
	}
	j.updateMetrics(result)

	event := j.logger.Debug()
	switch {
	case err != nil:
		event = j.logger.Error().Err(err)
	case res.Escalated > 0 || res.Failed > 0:
		event = j.logger.Warn()
	}
	event.
		Dur("duration", result.Duration).
		Int("evaluated", res.Evaluated).
		Int("escalated", res.Escalated).
		Int("failed", res.Failed).
		Msg("stale session sweep completed")

	return result
}

// Start runs a sweep every interval until ctx is cancelled.
func (j *SweepJob) Start(ctx context.Context) error {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Dur("stale_after", j.config.StaleAfter).
		Msg("starting stale session sweep")

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *SweepJob) updateMetrics(result *SweepRunResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	if result.Err != nil {
		j.metrics.FailedSweeps++
	}
	j.metrics.Evaluated += int64(result.Evaluated)
	j.metrics.Escalated += int64(result.Escalated)
	j.metrics.SessionFailures += int64(result.Failed)
	j.metrics.LastSweepAt = result.StartTime
	j.metrics.LastSweepDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *SweepJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		FailedSweeps:      j.metrics.FailedSweeps,
		Evaluated:         j.metrics.Evaluated,
		Escalated:         j.metrics.Escalated,
		SessionFailures:   j.metrics.SessionFailures,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_sweeps":        m.TotalSweeps,
		"failed_sweeps":       m.FailedSweeps,
		"evaluated":           m.Evaluated,
		"escalated":           m.Escalated,
		"session_failures":    m.SessionFailures,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
	}
}
