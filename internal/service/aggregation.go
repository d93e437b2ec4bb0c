package service

import (
	"context"
	"fmt"
	"time"

	"github.com/breathesafe/air-quality-service/internal/airquality"
	"github.com/breathesafe/air-quality-service/internal/geo"
	"github.com/breathesafe/air-quality-service/internal/models"
	"github.com/breathesafe/air-quality-service/internal/observability"
	"github.com/breathesafe/air-quality-service/internal/store"
	"github.com/breathesafe/air-quality-service/internal/timerange"
)

// Aggregator turns raw measurements into time-bucketed and geolocated
// air-quality readings. All scoring is delegated to the airquality package;
// this type owns store access and bucket orchestration.
type Aggregator struct {
	store                 store.Store
	maxSpeedMps           float64
	sampleIntervalSeconds float64
}

// NewAggregator creates an Aggregator reading from the given store.
// maxSpeedMps and sampleIntervalSeconds bound the per-segment distance used
// for GPS outlier rejection.
func NewAggregator(st store.Store, maxSpeedMps, sampleIntervalSeconds float64) *Aggregator {
	return &Aggregator{
		store:                 st,
		maxSpeedMps:           maxSpeedMps,
		sampleIntervalSeconds: sampleIntervalSeconds,
	}
}

// findMeasurements queries the store with metrics instrumentation.
func (a *Aggregator) findMeasurements(ctx context.Context, label string, f store.Filter) ([]models.Measurement, error) {
	start := time.Now()
	ms, err := a.store.FindMeasurements(ctx, f)
	observability.StoreQueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.StoreQueriesTotal.WithLabelValues(label, "error").Inc()
		observability.StoreErrorsTotal.WithLabelValues(label, string(store.CategorizeError(err))).Inc()
		return nil, err
	}
	observability.StoreQueriesTotal.WithLabelValues(label, "success").Inc()
	return ms, nil
}

// ReadingsInRange builds one AirQualityReading per time bucket between start
// and end. Buckets with no measurements yield the null-sentinel reading:
// absence of data is a representable state, never an error, and the bucket
// count is always preserved so charts can render gaps.
func (a *Aggregator) ReadingsInRange(ctx context.Context, userID string, start, end time.Time, intervalHours int) ([]models.AirQualityReading, error) {
	buckets := timerange.Split(start, end, intervalHours)
	readings := make([]models.AirQualityReading, 0, len(buckets))
	for _, bucket := range buckets {
		ms, err := a.findMeasurements(ctx, "readings_in_range", store.Filter{UserID: userID, Range: bucket})
		if err != nil {
			return nil, fmt.Errorf("readings in range: %w", err)
		}
		if len(ms) == 0 {
			readings = append(readings, models.AirQualityReading{Timestamp: bucket.Start})
			continue
		}
		reading, err := readingFromAverages(ms, bucket.Start)
		if err != nil {
			return nil, fmt.Errorf("readings in range: %w", err)
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// AverageQuality averages the non-null proportional values of the readings
// and reclassifies the mean on the gas-independent scale. Returns nil when no
// reading carries data.
func (a *Aggregator) AverageQuality(readings []models.AirQualityReading) (*models.QualityLevel, error) {
	sum, n := 0, 0
	for _, r := range readings {
		if r.ProportionalValue == nil {
			continue
		}
		sum += *r.ProportionalValue
		n++
	}
	if n == 0 {
		return nil, nil
	}
	quality, err := airquality.QualityFromProportional(float64(sum) / float64(n))
	if err != nil {
		return nil, err
	}
	return &quality, nil
}

// GeolocatedReadingsInRange returns one reading per raw measurement in the
// range, each scored independently and paired with its coordinates. Map
// rendering needs point-level granularity, unlike the bucketed dashboard view.
func (a *Aggregator) GeolocatedReadingsInRange(ctx context.Context, rng models.TimeRange) ([]models.GeolocatedAirQualityReading, error) {
	ms, err := a.findMeasurements(ctx, "geolocated_readings", store.Filter{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("geolocated readings: %w", err)
	}
	out := make([]models.GeolocatedAirQualityReading, 0, len(ms))
	for _, m := range ms {
		reading, err := readingFromMeasurement(m)
		if err != nil {
			return nil, fmt.Errorf("geolocated readings: %w", err)
		}
		out = append(out, models.GeolocatedAirQualityReading{
			AirQualityReading: reading,
			Latitude:          m.Latitude,
			Longitude:         m.Longitude,
		})
	}
	return out, nil
}

// GeolocatedReadingsForGas is the per-gas variant: each measurement is scored
// for the single gas only, so a per-gas heatmap layer shows that gas's
// severity rather than the worst of the three.
func (a *Aggregator) GeolocatedReadingsForGas(ctx context.Context, rng models.TimeRange, gas models.GasKind) ([]models.GeolocatedAirQualityReading, error) {
	ms, err := a.findMeasurements(ctx, "geolocated_readings_gas", store.Filter{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("geolocated readings for %s: %w", gas, err)
	}
	out := make([]models.GeolocatedAirQualityReading, 0, len(ms))
	for _, m := range ms {
		sample, err := airquality.ScoreSample(gas, m.GasValue(gas), m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("geolocated readings for %s: %w", gas, err)
		}
		observability.MeasurementsScoredTotal.WithLabelValues(gas.String()).Inc()
		out = append(out, models.GeolocatedAirQualityReading{
			AirQualityReading: readingFromSample(sample, m.Timestamp),
			Latitude:          m.Latitude,
			Longitude:         m.Longitude,
		})
	}
	return out, nil
}

// TodayDistance computes the meters traveled by the user during the calendar
// day containing now, with GPS outlier segments discarded.
func (a *Aggregator) TodayDistance(ctx context.Context, userID string, now time.Time) (int, error) {
	window := timerange.DayWindow(now)
	ms, err := a.findMeasurements(ctx, "today_distance", store.Filter{UserID: userID, Range: window})
	if err != nil {
		return 0, fmt.Errorf("today distance: %w", err)
	}
	points := make([]geo.Point, 0, len(ms))
	for _, m := range ms {
		points = append(points, geo.Point{Lat: m.Latitude, Lon: m.Longitude})
	}
	return int(geo.TotalDistance(points, a.maxSpeedMps, a.sampleIntervalSeconds)), nil
}

// LastReading scores the user's most recent measurement. Returns ok=false
// when the user has no measurements at all.
func (a *Aggregator) LastReading(ctx context.Context, userID string) (models.AirQualityReading, bool, error) {
	start := time.Now()
	m, ok, err := a.store.LastMeasurement(ctx, userID)
	observability.StoreQueryDuration.WithLabelValues("last_measurement").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.StoreQueriesTotal.WithLabelValues("last_measurement", "error").Inc()
		observability.StoreErrorsTotal.WithLabelValues("last_measurement", string(store.CategorizeError(err))).Inc()
		return models.AirQualityReading{}, false, fmt.Errorf("last reading: %w", err)
	}
	observability.StoreQueriesTotal.WithLabelValues("last_measurement", "success").Inc()
	if !ok {
		return models.AirQualityReading{}, false, nil
	}
	reading, err := readingFromMeasurement(m)
	if err != nil {
		return models.AirQualityReading{}, false, fmt.Errorf("last reading: %w", err)
	}
	return reading, true, nil
}

// readingFromAverages averages each gas's ppm across the measurements, scores
// the averages and attributes the worst gas. The reading is stamped with the
// bucket start, not any individual sample time.
func readingFromAverages(ms []models.Measurement, bucketStart time.Time) (models.AirQualityReading, error) {
	samples := make([]airquality.GasSample, 0, len(models.Gases))
	for _, gas := range models.Gases {
		var sum float64
		for _, m := range ms {
			sum += m.GasValue(gas)
		}
		avg := sum / float64(len(ms))
		sample, err := airquality.ScoreSample(gas, avg, bucketStart)
		if err != nil {
			return models.AirQualityReading{}, err
		}
		observability.MeasurementsScoredTotal.WithLabelValues(gas.String()).Inc()
		samples = append(samples, sample)
	}
	worst, err := airquality.WorstOf(samples)
	if err != nil {
		return models.AirQualityReading{}, err
	}
	return readingFromSample(worst, bucketStart), nil
}

// readingFromMeasurement scores one measurement's three gases and attributes
// the worst.
func readingFromMeasurement(m models.Measurement) (models.AirQualityReading, error) {
	return readingFromAverages([]models.Measurement{m}, m.Timestamp)
}

// readingFromSample converts a scored sample into the reading shape shared
// with dashboard and map consumers.
func readingFromSample(s airquality.GasSample, ts time.Time) models.AirQualityReading {
	quality := s.QualityLevel
	proportional := s.ProportionalValue
	gas := s.Gas
	ppm := s.PpmValue
	return models.AirQualityReading{
		Timestamp:         ts,
		QualityLevel:      &quality,
		ProportionalValue: &proportional,
		WorstGas:          &gas,
		PpmValue:          &ppm,
	}
}
