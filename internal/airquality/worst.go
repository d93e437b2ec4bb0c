package airquality

import (
	"errors"
	"time"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// ErrEmptyGasSet is returned when worst-gas selection receives no candidates.
// With the fixed three-gas set this should never happen; failing loudly beats
// silently returning a zero sample.
var ErrEmptyGasSet = errors.New("empty gas set")

// GasSample is one scored gas value. The single shared record type used by
// scoring, worst-gas selection and aggregation.
type GasSample struct {
	Gas               models.GasKind
	PpmValue          float64
	ProportionalValue int
	QualityLevel      models.QualityLevel
	Timestamp         time.Time
}

// ScoreSample scores a raw ppm value into a complete GasSample.
func ScoreSample(gas models.GasKind, ppm float64, ts time.Time) (GasSample, error) {
	quality, err := QualityFromPpm(gas, ppm)
	if err != nil {
		return GasSample{}, err
	}
	proportional, err := ProportionalFromPpm(gas, ppm)
	if err != nil {
		return GasSample{}, err
	}
	return GasSample{
		Gas:               gas,
		PpmValue:          ppm,
		ProportionalValue: proportional,
		QualityLevel:      quality,
		Timestamp:         ts,
	}, nil
}

// WorstOf returns the sample with the highest proportional value. Ties go to
// the earliest entry in input order, so selection is deterministic.
// Comparison is on the severity scale, never raw ppm: CO ppm ranges are
// numerically far larger than O3/NO2, so raw values are not comparable.
func WorstOf(samples []GasSample) (GasSample, error) {
	if len(samples) == 0 {
		return GasSample{}, ErrEmptyGasSet
	}
	worst := samples[0]
	for _, s := range samples[1:] {
		if s.ProportionalValue > worst.ProportionalValue {
			worst = s
		}
	}
	return worst, nil
}
