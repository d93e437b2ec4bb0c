package mapdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/breathesafe/air-quality-service/internal/models"
	"github.com/breathesafe/air-quality-service/internal/observability"
)

// ErrBuildInProgress is returned when a build is requested while a previous
// run is still writing to the latest slot.
var ErrBuildInProgress = errors.New("map build already in progress")

// ReadingsSource provides the geolocated reading sets the builder consumes.
// Implemented by the aggregation service.
type ReadingsSource interface {
	GeolocatedReadingsInRange(ctx context.Context, rng models.TimeRange) ([]models.GeolocatedAirQualityReading, error)
	GeolocatedReadingsForGas(ctx context.Context, rng models.TimeRange, gas models.GasKind) ([]models.GeolocatedAirQualityReading, error)
}

// Builder assembles the four reading sets for a rolling window, renders them
// and publishes the artifact. Build is single-flight: overlapping runs would
// race the archive-then-publish swap and could leave the latest slot pointing
// at a stale or missing artifact, so a second trigger while one runs is
// skipped, not queued.
type Builder struct {
	source    ReadingsSource
	renderer  Renderer
	artifacts ArtifactStore
	window    time.Duration
	logger    *zap.Logger
	running   sync.Mutex
	now       func() time.Time
}

// NewBuilder creates a Builder over the given collaborators. window is the
// rolling span of measurements each artifact covers (normally the scheduler
// cadence, 30 minutes).
func NewBuilder(source ReadingsSource, renderer Renderer, artifacts ArtifactStore, window time.Duration, logger *zap.Logger) *Builder {
	return &Builder{
		source:    source,
		renderer:  renderer,
		artifacts: artifacts,
		window:    window,
		logger:    logger,
		now:       time.Now,
	}
}

// Build fetches the four reading sets for the trailing window, renders and
// publishes the artifact. Returns ErrBuildInProgress when another run holds
// the publish slot.
func (b *Builder) Build(ctx context.Context) error {
	if !b.running.TryLock() {
		observability.MapBuildsTotal.WithLabelValues("skipped").Inc()
		if b.logger != nil {
			b.logger.Warn("map build skipped, previous run still in progress")
		}
		return ErrBuildInProgress
	}
	defer b.running.Unlock()

	start := b.now()
	data, err := b.collect(ctx, models.TimeRange{Start: start.Add(-b.window), End: start})
	if err != nil {
		observability.MapBuildsTotal.WithLabelValues("error").Inc()
		return err
	}

	raw, err := b.renderer.Render(data)
	if err != nil {
		observability.MapBuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("render map: %w", err)
	}
	if err := b.artifacts.Publish(raw, data.GeneratedAt); err != nil {
		observability.MapBuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish map: %w", err)
	}

	duration := time.Since(start)
	observability.MapBuildsTotal.WithLabelValues("success").Inc()
	observability.MapBuildDurationSeconds.Observe(duration.Seconds())
	if b.logger != nil {
		b.logger.Info("map artifact published",
			zap.Int("general_points", len(data.General)),
			zap.Duration("duration", duration))
	}
	return nil
}

// collect fetches the general and per-gas reading sets for the window.
func (b *Builder) collect(ctx context.Context, rng models.TimeRange) (MapData, error) {
	general, err := b.source.GeolocatedReadingsInRange(ctx, rng)
	if err != nil {
		return MapData{}, fmt.Errorf("collect general readings: %w", err)
	}
	perGas := make(map[models.GasKind][]models.GeolocatedAirQualityReading, len(models.Gases))
	for _, gas := range models.Gases {
		readings, err := b.source.GeolocatedReadingsForGas(ctx, rng, gas)
		if err != nil {
			return MapData{}, fmt.Errorf("collect %s readings: %w", gas, err)
		}
		perGas[gas] = readings
	}
	return MapData{
		GeneratedAt: rng.End,
		Window:      rng,
		General:     general,
		O3:          perGas[models.GasO3],
		CO:          perGas[models.GasCO],
		NO2:         perGas[models.GasNO2],
	}, nil
}
