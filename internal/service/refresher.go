package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type statsRefresher interface {
	Refresh(ctx context.Context) error
}

// Refresher periodically recomputes statistics. Updates are polled, never pushed.
type Refresher struct {
	stats    statsRefresher
	metrics  *MetricsService
	logger   *zap.Logger
	interval time.Duration
}

// NewRefresher constructs a poller. A non-positive interval disables it.
func NewRefresher(stats statsRefresher, metrics *MetricsService, logger *zap.Logger, interval time.Duration) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{stats: stats, metrics: metrics, logger: logger, interval: interval}
}

// Start runs one refresh immediately, then one per interval until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil || r.stats == nil || r.interval <= 0 {
		return
	}
	r.RunOnce(ctx)
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs a single refresh.
func (r *Refresher) RunOnce(ctx context.Context) {
	err := r.stats.Refresh(ctx)
	r.metrics.RecordRefresh(err)
	if err != nil {
		r.logger.Warn("stats refresh failed", zap.Error(err))
	}
}
