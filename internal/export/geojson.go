package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/edvin/civicwatch/internal/model"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string            `json:"type"`
	Properties FeatureProperties `json:"properties"`
	Geometry   Point             `json:"geometry"`
}

type FeatureProperties struct {
	ID                 string               `json:"id"`
	Title              string               `json:"title"`
	EventType          model.EventType      `json:"event_type"`
	Severity           model.Severity       `json:"severity"`
	Confidence         float64              `json:"confidence"`
	Status             model.IncidentStatus `json:"status"`
	Timestamp          string               `json:"timestamp"`
	Description        string               `json:"description"`
	District           string               `json:"district,omitempty"`
	State              string               `json:"state,omitempty"`
	AffectedPopulation *int                 `json:"affected_population,omitempty"`
}

// Point coordinates are [lng, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSON builds a FeatureCollection. Incidents without finite coordinates
// are left out.
func GeoJSON(incidents []model.Incident) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for _, i := range incidents {
		if !i.Location.Mappable() {
			continue
		}
		ts := ""
		if !i.Timestamp.IsZero() {
			ts = i.Timestamp.UTC().Format(time.RFC3339)
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Properties: FeatureProperties{
				ID:                 i.ID,
				Title:              i.Title,
				EventType:          i.EventType,
				Severity:           i.Severity,
				Confidence:         i.Confidence,
				Status:             i.Status,
				Timestamp:          ts,
				Description:        i.Description,
				District:           i.Location.District,
				State:              i.Location.State,
				AffectedPopulation: i.AffectedPopulation,
			},
			Geometry: Point{Type: "Point", Coordinates: [2]float64{i.Location.Lng, i.Location.Lat}},
		})
	}
	return fc
}

func WriteGeoJSON(w io.Writer, incidents []model.Incident) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(GeoJSON(incidents))
}
