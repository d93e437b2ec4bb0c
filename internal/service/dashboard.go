package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/breathesafe/air-quality-service/internal/cache"
	"github.com/breathesafe/air-quality-service/internal/models"
	"github.com/breathesafe/air-quality-service/internal/observability"
)

const readingsCacheKeyPrefix = "airQualityReadingsInfo:userId:"

// DashboardService composes the dashboard payload: the user's latest reading,
// today's traveled distance and the cache-fronted 24h reading series. Only
// the series is cached: the last reading and distance change on every new
// sample, too fast for a 15-minute TTL to help, while the bucketed series
// changes slowly enough to amortize.
type DashboardService struct {
	agg             *Aggregator
	cache           cache.Cache
	ttl             time.Duration
	windowHours     int
	intervalHours   int
	stampedeTracker *stampedeTracker
	coalescer       *requestCoalescer // nil when coalescing is disabled
	now             func() time.Time
}

// NewDashboardService creates a DashboardService. ttl is the cache TTL for
// the reading series; windowHours/intervalHours shape the series (normally
// 24h in 2h buckets). coalesceTimeout of 0 disables request coalescing.
func NewDashboardService(agg *Aggregator, c cache.Cache, ttl time.Duration, windowHours, intervalHours int, coalesceEnabled bool, coalesceTimeout time.Duration) *DashboardService {
	var coalescer *requestCoalescer
	if coalesceEnabled && coalesceTimeout > 0 {
		coalescer = newRequestCoalescer(coalesceTimeout)
	}
	return &DashboardService{
		agg:             agg,
		cache:           c,
		ttl:             ttl,
		windowHours:     windowHours,
		intervalHours:   intervalHours,
		stampedeTracker: newStampedeTracker(),
		coalescer:       coalescer,
		now:             time.Now,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// DashboardData builds the dashboard payload for the user. Returns (nil, nil)
// when the user has no measurements at all — a legitimate "no data yet"
// state, not an error.
func (s *DashboardService) DashboardData(ctx context.Context, userID string) (*models.DashboardData, error) {
	lastReading, ok, err := s.agg.LastReading(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.DashboardRequestsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	distance, err := s.agg.TodayDistance(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	info, err := s.ReadingsInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.DashboardData{
		LastReading:   lastReading,
		TodayDistance: distance,
		ReadingsInfo:  info,
	}, nil
}

// ReadingsInfo returns the bucketed series for the user's trailing window
// using the read-through cache: on hit the cached pair is reused verbatim,
// on miss the series is computed and written back with the configured TTL.
// Cache failures degrade to a miss; they never fail the request.
func (s *DashboardService) ReadingsInfo(ctx context.Context, userID string) (models.ReadingsInfo, error) {
	key := readingsCacheKeyPrefix + userID
	logger := loggerFromContext(ctx)

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		if logger != nil {
			logger.Warn("cache get failed, recomputing", zap.String("user_id", userID), zap.Error(err))
		}
	} else if ok {
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("readings").Inc()
		observability.DashboardRequestsTotal.WithLabelValues("cache").Inc()
		if logger != nil {
			logger.Debug("readings cache hit", zap.String("user_id", userID))
		}
		return cached, nil
	}

	concurrentMisses := s.stampedeTracker.RecordMiss(key)
	defer s.stampedeTracker.RecordHit(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
	}

	var info models.ReadingsInfo
	var computeErr error
	if s.coalescer != nil {
		info, computeErr = s.coalescer.GetOrDo(ctx, key, func() (models.ReadingsInfo, error) {
			return s.computeReadingsInfo(ctx, userID)
		})
	} else {
		info, computeErr = s.computeReadingsInfo(ctx, userID)
	}
	if computeErr != nil {
		return models.ReadingsInfo{}, computeErr
	}
	observability.DashboardRequestsTotal.WithLabelValues("computed").Inc()

	setStart := time.Now()
	if setErr := s.cache.Set(ctx, key, info, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		if logger != nil {
			logger.Warn("cache set failed", zap.String("user_id", userID), zap.Error(setErr))
		}
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}
	return info, nil
}

// computeReadingsInfo runs the full aggregation for the trailing window.
func (s *DashboardService) computeReadingsInfo(ctx context.Context, userID string) (models.ReadingsInfo, error) {
	end := s.now()
	start := end.Add(-time.Duration(s.windowHours) * time.Hour)
	readings, err := s.agg.ReadingsInRange(ctx, userID, start, end, s.intervalHours)
	if err != nil {
		return models.ReadingsInfo{}, fmt.Errorf("compute readings info: %w", err)
	}
	overall, err := s.agg.AverageQuality(readings)
	if err != nil {
		return models.ReadingsInfo{}, fmt.Errorf("compute readings info: %w", err)
	}
	return models.ReadingsInfo{Readings: readings, OverallQuality: overall}, nil
}

// categorizeCacheError returns a stable label for cache error metrics
// (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
