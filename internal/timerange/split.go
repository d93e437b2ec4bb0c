// Package timerange partitions time intervals into fixed-cadence buckets for
// dashboard and calendar views.
package timerange

import (
	"time"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// Split partitions [start, end) into consecutive intervalHours-wide windows.
// The start is aligned down to the top of its hour; the final window is
// clipped to exactly end. When the aligned span fits in a single interval the
// result is one range [alignedStart, end]. A degenerate range (start == end)
// still yields one bucket, so callers always get at least one slot to render.
func Split(start, end time.Time, intervalHours int) []models.TimeRange {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	aligned := alignToHour(start)
	interval := time.Duration(intervalHours) * time.Hour

	if !aligned.Add(interval).Before(end) {
		return []models.TimeRange{{Start: aligned, End: end}}
	}

	var ranges []models.TimeRange
	for cursor := aligned; cursor.Before(end); cursor = cursor.Add(interval) {
		bucketEnd := cursor.Add(interval)
		if bucketEnd.After(end) {
			bucketEnd = end
		}
		ranges = append(ranges, models.TimeRange{Start: cursor, End: bucketEnd})
	}
	return ranges
}

// alignToHour truncates t to the top of its hour in t's own location.
// time.Truncate would misalign in zones with a fractional UTC offset.
func alignToHour(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, t.Hour(), 0, 0, 0, t.Location())
}

// DayWindow returns the calendar-day range containing t in t's location,
// [midnight, next midnight). Used for "distance traveled today".
func DayWindow(t time.Time) models.TimeRange {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return models.TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}
