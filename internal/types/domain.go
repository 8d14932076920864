// Package types defines the domain model shared across the snowbrief service:
// avalanche forecast records, weather snapshots, synthesized briefings, and
// the error/context/clock primitives used by every layer.
package types

import "time"

// DangerLevel is the ordinal avalanche hazard rating published by forecast
// centers: -1 means "no rating", 1 through 5 map to Low through Extreme.
type DangerLevel int

const (
	DangerNoRating     DangerLevel = -1
	DangerLow          DangerLevel = 1
	DangerModerate     DangerLevel = 2
	DangerConsiderable DangerLevel = 3
	DangerHigh         DangerLevel = 4
	DangerExtreme      DangerLevel = 5
)

// dangerLabels mirrors the North American avalanche danger scale labels.
var dangerLabels = map[DangerLevel]string{
	DangerNoRating:     "No Rating",
	DangerLow:          "Low",
	DangerModerate:     "Moderate",
	DangerConsiderable: "Considerable",
	DangerHigh:         "High",
	DangerExtreme:      "Extreme",
}

// Label returns the human-readable danger scale label. Unknown values return
// "No Rating" as the safe default.
func (d DangerLevel) Label() string {
	if label, ok := dangerLabels[d]; ok {
		return label
	}
	return dangerLabels[DangerNoRating]
}

// Location is a geographic coordinate with optional elevation (feet).
type Location struct {
	Lat       float64 `json:"latitude"`
	Lon       float64 `json:"longitude"`
	Elevation float64 `json:"elevation,omitempty"`
}

// Polygon is a GeoJSON-style polygon: an ordered list of rings, each ring an
// ordered list of [longitude, latitude] pairs. Only the first (outer) ring is
// used for centroid derivation.
type Polygon struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// OuterRing returns the first ring of the polygon, or nil if the polygon has
// no rings.
func (p *Polygon) OuterRing() [][2]float64 {
	if p == nil || len(p.Coordinates) == 0 {
		return nil
	}
	return p.Coordinates[0]
}

// AvalancheProblem is one official avalanche problem from a center's forecast
// product (e.g. "Wind Slab", "Persistent Slab").
type AvalancheProblem struct {
	Name       string   `json:"name"`
	Likelihood string   `json:"likelihood"`
	MinSize    string   `json:"minSize"`
	MaxSize    string   `json:"maxSize"`
	Discussion string   `json:"discussion"`
	Location   []string `json:"location"`
}

// MediaItem is a field photo or other media attached to a forecast product.
type MediaItem struct {
	Type    string `json:"type"`
	Caption string `json:"caption"`
	URL     string `json:"url"`
}

// ForecastRecord is one zone's official avalanche forecast for one calendar
// date. Records are produced once per zone per day and are immutable for that
// date; the next day's record supersedes them.
//
// The overall danger rating is always present. Elevation-banded ratings are
// pointers because "not assessed" (nil) is distinct from "assessed as no
// rating" (-1).
type ForecastRecord struct {
	Center       string      `json:"center"`
	Zone         string      `json:"zone"`
	ForecastDate string      `json:"forecast_date"` // YYYY-MM-DD, UTC calendar date
	State        string      `json:"state,omitempty"`
	Timezone     string      `json:"timezone,omitempty"`

	DangerOverall DangerLevel  `json:"danger_overall"`
	DangerHigh    *DangerLevel `json:"danger_high"`   // above treeline
	DangerMiddle  *DangerLevel `json:"danger_middle"` // near treeline
	DangerLow     *DangerLevel `json:"danger_low"`    // below treeline

	TravelAdvice string `json:"travel_advice"`
	URL          string `json:"forecast_url"`

	// Product enrichment: present only when the detailed forecast product
	// was available upstream. HasProductData reports whether enrichment
	// succeeded.
	BottomLine        *string            `json:"bottom_line,omitempty"`
	HazardDiscussion  *string            `json:"hazard_discussion,omitempty"`
	WeatherDiscussion *string            `json:"weather_discussion,omitempty"`
	Problems          []AvalancheProblem `json:"avalanche_problems,omitempty"`
	Media             []MediaItem        `json:"media,omitempty"`
	HasProductData    bool               `json:"has_product_data"`

	Geometry    *Polygon   `json:"geometry,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// CurrentConditions holds the instantaneous weather observation from a
// snapshot. Units follow the upstream request: °F, mph, inches, millibars.
type CurrentConditions struct {
	Time                  string  `json:"time"`
	Temperature           float64 `json:"temperature"`
	FeelsLike             float64 `json:"feelsLike"`
	Humidity              float64 `json:"humidity"`
	Precipitation         float64 `json:"precipitation"`
	WeatherCode           int     `json:"weatherCode"`
	WeatherDescription    string  `json:"weatherDescription"`
	CloudCover            float64 `json:"cloudCover"`
	Pressure              float64 `json:"pressure"`
	WindSpeed             float64 `json:"windSpeed"`
	WindDirection         float64 `json:"windDirection"`
	WindDirectionCardinal string  `json:"windDirectionCardinal"`
	WindGusts             float64 `json:"windGusts"`
}

// HourlySeries holds index-aligned hourly arrays. Every array must have the
// same length as Time.
type HourlySeries struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature"`
	PrecipitationProbability []float64 `json:"precipitationProbability"`
	Precipitation            []float64 `json:"precipitation"`
	Snowfall                 []float64 `json:"snowfall"`
	CloudCover               []float64 `json:"cloudCover"`
	Visibility               []float64 `json:"visibility"`
	WindSpeed                []float64 `json:"windSpeed"`
	WindDirection            []float64 `json:"windDirection"`
	WindGusts                []float64 `json:"windGusts"`
	UVIndex                  []float64 `json:"uvIndex"`
}

// DailySeries holds index-aligned daily arrays spanning 14 days of history
// through 7 days of forecast. Time entries are YYYY-MM-DD strings; exactly one
// entry matches the current calendar date when the snapshot is well-formed.
type DailySeries struct {
	Time                        []string  `json:"time"`
	TemperatureMax              []float64 `json:"temperatureMax"`
	TemperatureMin              []float64 `json:"temperatureMin"`
	PrecipitationSum            []float64 `json:"precipitationSum"`
	SnowfallSum                 []float64 `json:"snowfallSum"`
	PrecipitationProbabilityMax []float64 `json:"precipitationProbabilityMax"`
	WindSpeedMax                []float64 `json:"windSpeedMax"`
	WindGustsMax                []float64 `json:"windGustsMax"`
	UVIndexMax                  []float64 `json:"uvIndexMax"`
}

// Aligned reports whether every daily array has the same length as Time.
// Consumers must treat a misaligned series as malformed rather than index
// into it.
func (d *DailySeries) Aligned() bool {
	n := len(d.Time)
	return len(d.TemperatureMax) == n &&
		len(d.TemperatureMin) == n &&
		len(d.PrecipitationSum) == n &&
		len(d.SnowfallSum) == n &&
		len(d.PrecipitationProbabilityMax) == n &&
		len(d.WindSpeedMax) == n &&
		len(d.WindGustsMax) == n &&
		len(d.UVIndexMax) == n
}

// WeatherSnapshot is one fetch of current, historical and near-future weather
// for a coordinate. Snapshots are never mutated after fetch.
type WeatherSnapshot struct {
	Location    Location          `json:"location"`
	Current     CurrentConditions `json:"current"`
	Hourly      HourlySeries      `json:"hourly"`
	Daily       DailySeries       `json:"daily"`
	LastUpdated string            `json:"lastUpdated"`
}

// BriefingProblem is one avalanche problem as rendered for end users in a
// synthesized briefing: the official problem translated into educational
// language, or an AI-identified problem when no official product exists.
type BriefingProblem struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Likelihood     string `json:"likelihood"`
	Size           string `json:"size"`
	OfficialSource bool   `json:"officialSource,omitempty"`
}

// Briefing is the synthesized artifact and unit of caching. Exactly one
// briefing exists per (center, zone, forecast date); regeneration deletes and
// recreates rather than updating in place.
type Briefing struct {
	ID           string            `json:"id"`
	Center       string            `json:"center"`
	Zone         string            `json:"zone"`
	ForecastDate string            `json:"forecast_date"`
	DangerLevel  DangerLevel       `json:"danger_level"`
	BriefingText string            `json:"briefing_text"`
	Problems     []BriefingProblem `json:"problems"`

	// Liability fields, mandatory under the mentor prompt contract.
	SourceURL    string `json:"source_url,omitempty"`
	SourceCenter string `json:"source_center,omitempty"`
	Disclaimer   string `json:"disclaimer,omitempty"`

	FieldObservationPrompts []string  `json:"field_observation_prompts,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}
