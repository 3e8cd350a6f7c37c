package runner

import (
	"time"

	"go.uber.org/zap"
)

// progressTracker logs periodic progress during Draining when enabled.
type progressTracker struct {
	log      *zap.Logger
	enabled  bool
	interval time.Duration
	started  time.Time
	last     time.Time
}

func newProgressTracker(enabled bool, interval time.Duration, log *zap.Logger) *progressTracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	now := time.Now()
	return &progressTracker{
		log:      log,
		enabled:  enabled,
		interval: interval,
		started:  now,
		last:     now,
	}
}

func (p *progressTracker) maybeReport(completed, total, busy, pending int) {
	if !p.enabled || time.Since(p.last) < p.interval {
		return
	}
	p.last = time.Now()
	p.log.Info("run progress",
		zap.Int("completed", completed),
		zap.Int("total", total),
		zap.Int("busyWorkers", busy),
		zap.Int("pending", pending),
		zap.Duration("elapsed", time.Since(p.started).Round(time.Second)))
}
