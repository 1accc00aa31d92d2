package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campus-portal/event-portal-api/internal/metrics"
)

type counterReconciler interface {
	Reconcile(ctx context.Context) (int64, error)
}

// RunReconciler recomputes every event's participant counter each interval
// until ctx is done. A non-positive interval disables it.
func RunReconciler(ctx context.Context, svc counterReconciler, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drifted, err := svc.Reconcile(ctx)
			if err != nil {
				zap.L().Error("counter reconciliation failed", zap.Error(err))
				continue
			}
			if drifted > 0 {
				metrics.CountersRepaired.Add(float64(drifted))
				zap.L().Warn("participant counters repaired", zap.Int64("events", drifted))
			}
		}
	}
}
