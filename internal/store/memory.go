package store

import (
	"context"
	"sort"
	"sync"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// InMemoryStore implements Store over a slice. Used in tests and for local
// development without a database.
type InMemoryStore struct {
	mu           sync.RWMutex
	measurements []models.Measurement
}

// NewInMemoryStore creates a store pre-populated with the given measurements.
func NewInMemoryStore(measurements ...models.Measurement) *InMemoryStore {
	s := &InMemoryStore{}
	s.Add(measurements...)
	return s
}

// Add appends measurements to the store.
func (s *InMemoryStore) Add(measurements ...models.Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = append(s.measurements, measurements...)
}

// FindMeasurements implements Store. Results are sorted ascending by
// timestamp regardless of insertion order.
func (s *InMemoryStore) FindMeasurements(ctx context.Context, f Filter) ([]models.Measurement, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Measurement
	for _, m := range s.measurements {
		if f.UserID != "" && m.UserID != f.UserID {
			continue
		}
		if m.Timestamp.Before(f.Range.Start) || !m.Timestamp.Before(f.Range.End) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// LastMeasurement implements Store.
func (s *InMemoryStore) LastMeasurement(ctx context.Context, userID string) (models.Measurement, bool, error) {
	if ctx.Err() != nil {
		return models.Measurement{}, false, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last models.Measurement
	found := false
	for _, m := range s.measurements {
		if m.UserID != userID {
			continue
		}
		if !found || m.Timestamp.After(last.Timestamp) {
			last = m
			found = true
		}
	}
	return last, found, nil
}

// Ping implements Store. Always healthy.
func (s *InMemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
