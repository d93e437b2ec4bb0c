package airquality

import "github.com/breathesafe/air-quality-service/internal/models"

// Thresholds holds the ppm boundaries between quality levels for one gas.
// Invariant: 0 < Good < Regular < Bad.
type Thresholds struct {
	Good    float64
	Regular float64
	Bad     float64
}

// proportional-value boundaries shared by all gases. A severity value at or
// below Good classifies Good, at or below Regular classifies Regular, else Bad.
// These doubled as the intensity-banding contract for the map renderer.
const (
	ProportionalGood    = 20
	ProportionalRegular = 60
	ProportionalBad     = 100
)

// defaultThresholds is the static per-gas boundary table, indexed by GasKind.
// The array index is the enum value, so adding a gas without a row fails to
// compile rather than producing a runtime lookup miss.
var defaultThresholds = [3]Thresholds{
	models.GasO3:  {Good: 50, Regular: 100, Bad: 150},
	models.GasCO:  {Good: 9, Regular: 25, Bad: 50},
	models.GasNO2: {Good: 40, Regular: 90, Bad: 140},
}

// ThresholdsFor returns the boundary table for the given gas.
func ThresholdsFor(gas models.GasKind) Thresholds {
	return defaultThresholds[gas]
}
