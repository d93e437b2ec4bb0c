package store

import (
	"context"

	"github.com/breathesafe/air-quality-service/internal/circuitbreaker"
	"github.com/breathesafe/air-quality-service/internal/models"
)

// BreakerStore decorates a Store with a circuit breaker so a struggling
// database sheds load fast instead of stacking up slow queries.
type BreakerStore struct {
	inner   Store
	breaker *circuitbreaker.CircuitBreaker
}

// WithBreaker wraps the store with the given circuit breaker.
func WithBreaker(inner Store, breaker *circuitbreaker.CircuitBreaker) *BreakerStore {
	return &BreakerStore{inner: inner, breaker: breaker}
}

// FindMeasurements implements Store.
func (s *BreakerStore) FindMeasurements(ctx context.Context, f Filter) ([]models.Measurement, error) {
	var out []models.Measurement
	err := s.breaker.Call(ctx, func() error {
		var err error
		out, err = s.inner.FindMeasurements(ctx, f)
		return err
	})
	return out, err
}

// LastMeasurement implements Store.
func (s *BreakerStore) LastMeasurement(ctx context.Context, userID string) (models.Measurement, bool, error) {
	var (
		m  models.Measurement
		ok bool
	)
	err := s.breaker.Call(ctx, func() error {
		var err error
		m, ok, err = s.inner.LastMeasurement(ctx, userID)
		return err
	})
	return m, ok, err
}

// Ping implements Store. Bypasses the breaker so health checks observe the
// real backend state.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
