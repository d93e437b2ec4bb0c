// Package mapdata builds heatmap-ready artifacts from geolocated readings
// and manages the "latest" artifact slot.
package mapdata

import (
	"encoding/json"
	"time"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// MapData holds the four parallel reading sets for one build window.
type MapData struct {
	GeneratedAt time.Time                            `json:"generatedAt"`
	Window      models.TimeRange                     `json:"window"`
	General     []models.GeolocatedAirQualityReading `json:"general"`
	O3          []models.GeolocatedAirQualityReading `json:"o3"`
	CO          []models.GeolocatedAirQualityReading `json:"co"`
	NO2         []models.GeolocatedAirQualityReading `json:"no2"`
}

// Renderer turns a MapData into the published artifact bytes. The heatmap
// library consuming the artifact is outside this service; only the data
// contract lives here.
type Renderer interface {
	Render(data MapData) ([]byte, error)
	ContentType() string
}

// HeatPoint is one heatmap triple. Intensity banding is the renderer
// client's job: <=20 low, <=60 medium, <=100 high, matching the severity
// classification thresholds.
type HeatPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     int     `json:"value"`
}

// heatmapArtifact is the published JSON document: metadata plus one triple
// layer per reading set, consumable by a Leaflet heat layer.
type heatmapArtifact struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Window      models.TimeRange     `json:"window"`
	Layers      map[string][]HeatPoint `json:"layers"`
}

// JSONRenderer renders MapData as a heatmap-triple JSON document.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(data MapData) ([]byte, error) {
	artifact := heatmapArtifact{
		GeneratedAt: data.GeneratedAt,
		Window:      data.Window,
		Layers: map[string][]HeatPoint{
			"general": toHeatPoints(data.General),
			"o3":      toHeatPoints(data.O3),
			"co":      toHeatPoints(data.CO),
			"no2":     toHeatPoints(data.NO2),
		},
	}
	return json.Marshal(artifact)
}

// ContentType implements Renderer.
func (JSONRenderer) ContentType() string {
	return "application/json"
}

func toHeatPoints(readings []models.GeolocatedAirQualityReading) []HeatPoint {
	points := make([]HeatPoint, 0, len(readings))
	for _, r := range readings {
		if r.ProportionalValue == nil {
			continue
		}
		points = append(points, HeatPoint{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Value:     *r.ProportionalValue,
		})
	}
	return points
}
