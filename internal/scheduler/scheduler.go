package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/breathesafe/air-quality-service/internal/mapdata"
)

// MapBuilder is the slice of mapdata.Builder the scheduler drives.
type MapBuilder interface {
	Build(ctx context.Context) error
}

// Scheduler periodically rebuilds the map artifact.
type Scheduler struct {
	scheduler *gocron.Scheduler
	builder   MapBuilder
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a Scheduler that runs the map builder every interval. Jobs run
// in singleton mode so a slow build delays the next tick instead of stacking.
func New(builder MapBuilder, interval time.Duration, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		builder:   builder,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic build and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	timeout := time.Duration(minutes) * time.Minute
	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Debug("map build tick")
		if err := s.builder.Build(ctx); err != nil {
			if errors.Is(err, mapdata.ErrBuildInProgress) {
				return
			}
			s.logger.Error("scheduled map build failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("map build scheduler started", zap.Int("interval_minutes", minutes))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
