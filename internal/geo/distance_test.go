package geo

import (
	"math"
	"testing"
)

// TestHaversineMeters verifies the great-circle distance against known
// reference values.
func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		want      float64
		tolerance float64
	}{
		{name: "identical points", lat1: 0, lon1: 0, lat2: 0, lon2: 0, want: 0, tolerance: 0},
		{name: "one degree on equator", lat1: 0, lon1: 0, lat2: 0, lon2: 1, want: 111320, tolerance: 1000},
		{name: "madrid to barcelona", lat1: 40.4168, lon1: -3.7038, lat2: 41.3874, lon2: 2.1686, want: 505000, tolerance: 5000},
		{name: "short hop", lat1: 40.0000, lon1: -3.0000, lat2: 40.0010, lon2: -3.0000, want: 111, tolerance: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := HaversineMeters(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.want) > tc.tolerance {
				t.Errorf("HaversineMeters() = %v, want %v ±%v", got, tc.want, tc.tolerance)
			}
		})
	}
}

// TestTotalDistance_DiscardsOutlierSegments verifies that a segment exceeding
// the speed limit contributes 0 rather than the capped distance.
func TestTotalDistance_DiscardsOutlierSegments(t *testing.T) {
	// Three collinear points on the equator: a ~111 m hop, then a ~11 km jump.
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0.101},
	}
	firstHop := HaversineMeters(0, 0, 0, 0.001)

	// 10 m/s over 60 s allows 600 m per segment; the second hop exceeds it.
	got := TotalDistance(points, 10, 60)
	if got != firstHop {
		t.Errorf("TotalDistance() = %v, want %v (only the first hop)", got, firstHop)
	}
}

// TestTotalDistance_DegenerateTraces verifies the zero-value cases.
func TestTotalDistance_DegenerateTraces(t *testing.T) {
	if got := TotalDistance(nil, 10, 60); got != 0 {
		t.Errorf("TotalDistance(nil) = %v, want 0", got)
	}
	if got := TotalDistance([]Point{{Lat: 1, Lon: 1}}, 10, 60); got != 0 {
		t.Errorf("TotalDistance(single point) = %v, want 0", got)
	}
}

// TestTotalDistance_NoLimit verifies that a zero speed limit disables
// outlier rejection and all segments are summed.
func TestTotalDistance_NoLimit(t *testing.T) {
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0.101},
	}
	want := HaversineMeters(0, 0, 0, 0.001) + HaversineMeters(0, 0.001, 0, 0.101)
	if got := TotalDistance(points, 0, 60); got != want {
		t.Errorf("TotalDistance() = %v, want %v", got, want)
	}
}
