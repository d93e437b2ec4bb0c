// Package geo computes movement distance from noisy GPS traces.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle distance.
const earthRadiusMeters = 6371000

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// HaversineMeters returns the great-circle distance between two coordinates,
// rounded to the nearest meter. Identical points yield 0.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusMeters * c)
}

// TotalDistance sums consecutive-pair haversine distances over an ordered
// trace. Any pair whose distance exceeds maxSpeedMps*sampleIntervalSeconds is
// treated as a GPS glitch and contributes 0 — discarded, not clamped; naive
// summation of consumer GPS traces wildly overstates distance on signal
// jumps. Returns 0 for fewer than two points.
func TotalDistance(points []Point, maxSpeedMps float64, sampleIntervalSeconds float64) float64 {
	if len(points) < 2 {
		return 0
	}
	maxSegment := maxSpeedMps * sampleIntervalSeconds
	var total float64
	for i := 1; i < len(points); i++ {
		d := HaversineMeters(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		if maxSegment > 0 && d > maxSegment {
			continue
		}
		total += d
	}
	return total
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
