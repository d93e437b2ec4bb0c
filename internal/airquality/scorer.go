package airquality

import (
	"errors"
	"fmt"
	"math"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// ErrInvalidMeasurement is returned when a ppm value is negative or NaN.
// Measurements are validated at ingestion, so hitting this indicates a caller
// contract violation rather than bad sensor data slipping through.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// QualityFromPpm classifies a raw ppm value for the given gas. Boundary
// values are inclusive on the lower level: a ppm exactly at a threshold
// classifies as the better quality.
func QualityFromPpm(gas models.GasKind, ppm float64) (models.QualityLevel, error) {
	if err := validatePpm(ppm); err != nil {
		return 0, err
	}
	t := ThresholdsFor(gas)
	switch {
	case ppm <= t.Good:
		return models.QualityGood, nil
	case ppm <= t.Regular:
		return models.QualityRegular, nil
	default:
		return models.QualityBad, nil
	}
}

// ProportionalFromPpm maps a raw ppm value onto the gas-independent 0–100
// severity scale via piecewise-linear interpolation over the gas's
// Good/Regular/Bad boundaries: [0,Good]→[0,20], (Good,Regular]→(20,60],
// (Regular,Bad]→(60,100], clamped to 100 above Bad. Each segment's upper
// bound is inclusive and computed by the segment that ends there, so the
// function is monotone with exact values 20/60/100 at the seams. The result
// is floor-rounded to an integer.
func ProportionalFromPpm(gas models.GasKind, ppm float64) (int, error) {
	if err := validatePpm(ppm); err != nil {
		return 0, err
	}
	t := ThresholdsFor(gas)
	switch {
	case ppm <= t.Good:
		return int(math.Floor(ppm / t.Good * ProportionalGood)), nil
	case ppm <= t.Regular:
		return ProportionalGood + int(math.Floor((ppm-t.Good)/(t.Regular-t.Good)*(ProportionalRegular-ProportionalGood))), nil
	case ppm <= t.Bad:
		return ProportionalRegular + int(math.Floor((ppm-t.Regular)/(t.Bad-t.Regular)*(ProportionalBad-ProportionalRegular))), nil
	default:
		return ProportionalBad, nil
	}
}

// QualityFromProportional classifies an aggregate severity value with the
// gas-independent 20/60/100 table. Used where no single gas applies, e.g.
// averaged readings.
func QualityFromProportional(value float64) (models.QualityLevel, error) {
	if math.IsNaN(value) || value < 0 {
		return 0, fmt.Errorf("%w: proportional value %v out of range", ErrInvalidMeasurement, value)
	}
	switch {
	case value <= ProportionalGood:
		return models.QualityGood, nil
	case value <= ProportionalRegular:
		return models.QualityRegular, nil
	default:
		return models.QualityBad, nil
	}
}

func validatePpm(ppm float64) error {
	if math.IsNaN(ppm) || ppm < 0 {
		return fmt.Errorf("%w: ppm %v out of range", ErrInvalidMeasurement, ppm)
	}
	return nil
}
