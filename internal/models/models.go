package models

import (
	"fmt"
	"time"
)

// GasKind identifies one of the three gases measured by field nodes.
// The set is closed; code that switches on GasKind must handle all three.
type GasKind int

const (
	GasO3 GasKind = iota
	GasCO
	GasNO2
)

// Gases lists every GasKind in a stable order. Useful for iteration.
var Gases = [3]GasKind{GasO3, GasCO, GasNO2}

func (g GasKind) String() string {
	switch g {
	case GasO3:
		return "o3"
	case GasCO:
		return "co"
	case GasNO2:
		return "no2"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the gas as its lowercase name.
func (g GasKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + g.String() + `"`), nil
}

// UnmarshalJSON decodes a lowercase gas name.
func (g *GasKind) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"o3"`:
		*g = GasO3
	case `"co"`:
		*g = GasCO
	case `"no2"`:
		*g = GasNO2
	default:
		return fmt.Errorf("unknown gas kind %s", data)
	}
	return nil
}

// QualityLevel is the categorical air-quality classification, ordered
// Good < Regular < Bad.
type QualityLevel int

const (
	QualityGood QualityLevel = iota
	QualityRegular
	QualityBad
)

func (q QualityLevel) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityRegular:
		return "regular"
	case QualityBad:
		return "bad"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the level as its lowercase name so dashboard and map
// consumers see "good"/"regular"/"bad" rather than ordinals.
func (q QualityLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.String() + `"`), nil
}

// UnmarshalJSON decodes a lowercase level name.
func (q *QualityLevel) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"good"`:
		*q = QualityGood
	case `"regular"`:
		*q = QualityRegular
	case `"bad"`:
		*q = QualityBad
	default:
		return fmt.Errorf("unknown quality level %s", data)
	}
	return nil
}

// Measurement is one raw gas sample from a field node. Immutable once
// ingested; this service only reads measurements.
type Measurement struct {
	ID        int64     `json:"id"`
	NodeID    string    `json:"nodeId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	O3Value   float64   `json:"o3Value"`
	COValue   float64   `json:"coValue"`
	NO2Value  float64   `json:"no2Value"`
}

// GasValue returns the measured ppm for the given gas.
func (m Measurement) GasValue(g GasKind) float64 {
	switch g {
	case GasCO:
		return m.COValue
	case GasNO2:
		return m.NO2Value
	default:
		return m.O3Value
	}
}

// AirQualityReading is a derived, possibly empty, air-quality data point for
// one time bucket. Nil pointer fields mean "no data in this interval" — a
// representable state, not an error, so charts can render gaps.
type AirQualityReading struct {
	Timestamp         time.Time     `json:"timestamp"`
	QualityLevel      *QualityLevel `json:"qualityLevel"`
	ProportionalValue *int          `json:"proportionalValue"`
	WorstGas          *GasKind      `json:"worstGas"`
	PpmValue          *float64      `json:"ppmValue"`
}

// HasData reports whether the reading carries a value (false for the
// null-sentinel emitted for empty buckets).
func (r AirQualityReading) HasData() bool {
	return r.ProportionalValue != nil
}

// GeolocatedAirQualityReading pairs an AirQualityReading with the source
// measurement's coordinates. One per raw measurement; never bucketed.
type GeolocatedAirQualityReading struct {
	AirQualityReading
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReadingsInfo is the cacheable portion of the dashboard payload: the
// bucketed 24h series plus the overall quality derived from it.
type ReadingsInfo struct {
	Readings       []AirQualityReading `json:"readings"`
	OverallQuality *QualityLevel       `json:"overallQuality"`
}

// DashboardData is the dashboard payload for one user. LastReading and
// TodayDistance are always freshly computed; ReadingsInfo may come from cache.
type DashboardData struct {
	LastReading   AirQualityReading `json:"lastAirQualityReading"`
	TodayDistance int               `json:"todayDistance"`
	ReadingsInfo  ReadingsInfo      `json:"airQualityReadingsInfo"`
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
