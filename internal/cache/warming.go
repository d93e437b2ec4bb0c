package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/breathesafe/air-quality-service/internal/models"
	"github.com/breathesafe/air-quality-service/internal/observability"
)

// DashboardFetcher is implemented by the service layer to compute dashboard
// data for a user. Used by CacheWarmer to avoid a circular dependency on the
// service package: fetching populates the read-through cache as a side effect.
type DashboardFetcher interface {
	DashboardData(ctx context.Context, userID string) (*models.DashboardData, error)
}

// CacheWarmer warms the reading-series cache by prefetching dashboards for a
// list of active users.
type CacheWarmer struct {
	fetcher DashboardFetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher DashboardFetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm computes dashboards for each user concurrently, populating the cache
// via the fetcher. Returns an error if any user failed (aggregated).
func (w *CacheWarmer) Warm(ctx context.Context, userIDs []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming dashboard cache", zap.Int("users", len(userIDs)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(userIDs))
	for _, id := range userIDs {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.DashboardData(ctx, id); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", id, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("dashboard cache warming complete", zap.Int("users", len(userIDs)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, userIDs []string, interval time.Duration) error {
	if err := w.Warm(ctx, userIDs); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, userIDs); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
