package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunTicker drives the sweep on a fixed interval until the context is
// cancelled. The first pass runs immediately so a restart never defers an
// overdue sweep by a full interval.
func RunTicker(ctx context.Context, svc Service, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.Named("sweeper.ticker")
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	logger.Info("sweeper started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := svc.Run(ctx, SystemActor, false); err != nil {
			logger.Error("sweep pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
