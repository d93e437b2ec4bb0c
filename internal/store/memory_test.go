package store

import (
	"context"
	"testing"
	"time"

	"github.com/breathesafe/air-quality-service/internal/models"
)

func measurementAt(userID string, ts time.Time) models.Measurement {
	return models.Measurement{
		NodeID:    "node-1",
		UserID:    userID,
		Timestamp: ts,
		Latitude:  40.4,
		Longitude: -3.7,
		O3Value:   30,
		COValue:   5,
		NO2Value:  20,
	}
}

// TestInMemoryStore_FindMeasurements verifies filtering by user and half-open
// range, and that results come back ordered ascending by timestamp.
func TestInMemoryStore_FindMeasurements(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := NewInMemoryStore(
		measurementAt("u1", base.Add(2*time.Hour)),
		measurementAt("u1", base),
		measurementAt("u2", base.Add(time.Hour)),
		measurementAt("u1", base.Add(4*time.Hour)), // outside range
	)

	got, err := s.FindMeasurements(context.Background(), Filter{
		UserID: "u1",
		Range:  models.TimeRange{Start: base, End: base.Add(4 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("FindMeasurements() error = %v, want nil", err)
	}
	if len(got) != 2 {
		t.Fatalf("FindMeasurements() returned %d measurements, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Errorf("measurements not ordered ascending: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

// TestInMemoryStore_FindMeasurements_AllUsers verifies that an empty UserID
// matches every user (map-builder path).
func TestInMemoryStore_FindMeasurements_AllUsers(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := NewInMemoryStore(
		measurementAt("u1", base),
		measurementAt("u2", base.Add(time.Minute)),
	)

	got, err := s.FindMeasurements(context.Background(), Filter{
		Range: models.TimeRange{Start: base, End: base.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("FindMeasurements() error = %v, want nil", err)
	}
	if len(got) != 2 {
		t.Errorf("FindMeasurements() returned %d measurements, want 2", len(got))
	}
}

// TestInMemoryStore_LastMeasurement verifies latest-by-timestamp selection
// and the no-data case.
func TestInMemoryStore_LastMeasurement(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := NewInMemoryStore(
		measurementAt("u1", base),
		measurementAt("u1", base.Add(3*time.Hour)),
		measurementAt("u1", base.Add(time.Hour)),
	)

	m, ok, err := s.LastMeasurement(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LastMeasurement() error = %v, want nil", err)
	}
	if !ok {
		t.Fatal("LastMeasurement() ok = false, want true")
	}
	if !m.Timestamp.Equal(base.Add(3 * time.Hour)) {
		t.Errorf("LastMeasurement().Timestamp = %v, want %v", m.Timestamp, base.Add(3*time.Hour))
	}

	_, ok, err = s.LastMeasurement(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LastMeasurement() error = %v, want nil", err)
	}
	if ok {
		t.Error("LastMeasurement() ok = true for unknown user, want false")
	}
}

// TestCategorizeError verifies stable metric labels for common store errors.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorCategoryTimeout},
		{name: "unavailable sentinel", err: ErrUnavailable, want: ErrorCategoryUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CategorizeError(tc.err); got != tc.want {
				t.Errorf("CategorizeError(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
