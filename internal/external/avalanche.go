package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"snowbrief/internal/config"
	"snowbrief/internal/types"
)

// centerIDByName maps avalanche center display names (as published in the
// map-layer feed) to the center_id codes the product API requires. Centers
// missing from this map still get map-layer forecasts; they just skip product
// enrichment.
var centerIDByName = map[string]string{
	"Sierra Avalanche Center":                          "SAC",
	"Northwest Avalanche Center":                       "NWAC",
	"Colorado Avalanche Information Center":            "CAIC",
	"Utah Avalanche Center":                            "UAC",
	"Bridger-Teton Avalanche Center":                   "BTAC",
	"Gallatin National Forest Avalanche Center":        "GNFAC",
	"Central Oregon Avalanche Center":                  "COAA",
	"Mount Washington Avalanche Center":                "MWAC",
	"Sawtooth Avalanche Center":                        "SAW",
	"Wallowa Avalanche Center":                         "WAC",
	"Flathead Avalanche Center":                        "FAC",
	"Chugach National Forest Avalanche Information Center": "CNFAIC",
	"Hatcher Pass Avalanche Center":                    "HPAC",
	"West Central Montana Avalanche Center":            "WCMAC",
	"Payette Avalanche Center":                         "PAC",
	"Crested Butte Avalanche Center":                   "CBAC",
	"Friends of CBAC":                                  "FCBAC",
	"Eastern Sierra Avalanche Center":                  "ESAC",
	"Mount Shasta Avalanche Center":                    "MSAC",
}

// --- Wire types (avalanche.org) ---

type mapLayerResponse struct {
	Type     string            `json:"type"`
	Features []forecastFeature `json:"features"`
}

type forecastFeature struct {
	Type       string             `json:"type"`
	ID         json.Number        `json:"id"`
	Geometry   *types.Polygon     `json:"geometry"`
	Properties forecastProperties `json:"properties"`
}

type forecastProperties struct {
	Name                  string `json:"name"`
	Center                string `json:"center"`
	State                 string `json:"state"`
	Timezone              string `json:"timezone"`
	StartDate             string `json:"start_date"`
	EndDate               string `json:"end_date"`
	DangerLevel           int    `json:"danger_level"`
	DangerElevationHigh   *int   `json:"danger_elevation_high"`
	DangerElevationMiddle *int   `json:"danger_elevation_middle"`
	DangerElevationLow    *int   `json:"danger_elevation_low"`
	TravelAdvice          string `json:"travel_advice"`
	URL                   string `json:"url"`
}

type productResponse struct {
	ID                string           `json:"-"`
	PublishedTime     string           `json:"published_time"`
	BottomLine        *string          `json:"bottom_line"`
	HazardDiscussion  *string          `json:"hazard_discussion"`
	WeatherDiscussion *string          `json:"weather_discussion"`
	Problems          []productProblem `json:"forecast_avalanche_problems"`
	Media             []productMedia   `json:"media"`
}

type productProblem struct {
	Name       string   `json:"name"`
	Likelihood string   `json:"likelihood"`
	MinSize    string   `json:"min_size"`
	MaxSize    string   `json:"max_size"`
	Discussion string   `json:"discussion"`
	Location   []string `json:"location"`
}

type productMedia struct {
	Type    string `json:"type"`
	Caption string `json:"caption"`
	URL     struct {
		Large     string `json:"large"`
		Medium    string `json:"medium"`
		Thumbnail string `json:"thumbnail"`
		Original  string `json:"original"`
	} `json:"url"`
}

// AvalancheClient fetches official avalanche forecasts from the avalanche.org
// public API. The map-layer feed provides every zone's danger ratings and
// geometry in one call; the product API adds the forecaster-written discussion
// per zone when a center publishes one.
type AvalancheClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewAvalancheClient creates an AvalancheClient from the forecast upstream
// configuration.
func NewAvalancheClient(cfg config.ForecastConfig, logger *slog.Logger, opts ...BaseClientOption) *AvalancheClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &AvalancheClient{
		base:    NewBaseClient(httpClient, "avalanche-org", DefaultRetryPolicy(), cfg.UserAgent, opts...),
		baseURL: cfg.BaseURL,
		logger:  logger,
	}
}

// ListForecasts retrieves every zone forecast from the map-layer feed,
// optionally filtered to a single center name. The forecastDate stamps each
// record with the calendar date it was fetched for.
func (c *AvalancheClient) ListForecasts(ctx context.Context, center, forecastDate string) ([]types.ForecastRecord, error) {
	layer, err := c.fetchMapLayer(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]types.ForecastRecord, 0, len(layer.Features))
	for _, feature := range layer.Features {
		if center != "" && feature.Properties.Center != center {
			continue
		}
		records = append(records, recordFromFeature(feature, forecastDate))
	}

	return records, nil
}

// FetchZoneForecast retrieves the forecast for one (center, zone) pair and
// enriches it with the detailed forecast product when available. Product
// enrichment is best-effort: a missing or failed product leaves
// HasProductData false without failing the fetch.
func (c *AvalancheClient) FetchZoneForecast(ctx context.Context, center, zone, forecastDate string) (*types.ForecastRecord, error) {
	layer, err := c.fetchMapLayer(ctx)
	if err != nil {
		return nil, err
	}

	for _, feature := range layer.Features {
		if feature.Properties.Center != center || feature.Properties.Name != zone {
			continue
		}

		record := recordFromFeature(feature, forecastDate)
		c.enrichWithProduct(ctx, &record, feature)
		return &record, nil
	}

	return nil, types.NewAppErrorWithDetails(
		types.ErrCodeNotFoundForecast,
		"no forecast zone matched the requested center and zone",
		nil,
		map[string]any{"center": center, "zone": zone},
	)
}

func (c *AvalancheClient) fetchMapLayer(ctx context.Context) (*mapLayerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/map-layer", nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build map-layer request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			fmt.Sprintf("map-layer request returned %d", resp.StatusCode),
			nil,
		)
	}

	var layer mapLayerResponse
	if err := json.NewDecoder(resp.Body).Decode(&layer); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "failed to decode map-layer response", err)
	}

	return &layer, nil
}

// enrichWithProduct attaches the detailed forecast product to a record.
func (c *AvalancheClient) enrichWithProduct(ctx context.Context, record *types.ForecastRecord, feature forecastFeature) {
	centerID := centerIDByName[feature.Properties.Center]
	if centerID == "" {
		c.logger.Debug("no center_id mapping, skipping product enrichment",
			"center", feature.Properties.Center)
		return
	}

	q := url.Values{}
	q.Set("type", "forecast")
	q.Set("center_id", centerID)
	q.Set("zone_id", feature.ID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/product?"+q.Encode(), nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		c.logger.Warn("product enrichment failed",
			"center", feature.Properties.Center, "zone", feature.Properties.Name, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("product API returned non-OK status",
			"center", feature.Properties.Center, "zone", feature.Properties.Name, "status", resp.StatusCode)
		return
	}

	var product productResponse
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		c.logger.Warn("failed to decode product response",
			"center", feature.Properties.Center, "zone", feature.Properties.Name, "error", err)
		return
	}

	record.BottomLine = product.BottomLine
	record.HazardDiscussion = product.HazardDiscussion
	record.WeatherDiscussion = product.WeatherDiscussion
	record.HasProductData = true

	for _, p := range product.Problems {
		record.Problems = append(record.Problems, types.AvalancheProblem{
			Name:       p.Name,
			Likelihood: p.Likelihood,
			MinSize:    p.MinSize,
			MaxSize:    p.MaxSize,
			Discussion: p.Discussion,
			Location:   p.Location,
		})
	}

	for _, m := range product.Media {
		record.Media = append(record.Media, types.MediaItem{
			Type:    m.Type,
			Caption: m.Caption,
			URL:     firstNonEmpty(m.URL.Large, m.URL.Medium, m.URL.Original, m.URL.Thumbnail),
		})
	}

	if product.PublishedTime != "" {
		if published, err := time.Parse(time.RFC3339, product.PublishedTime); err == nil {
			record.PublishedAt = &published
		}
	}
}

// recordFromFeature maps one map-layer feature to a domain forecast record.
func recordFromFeature(feature forecastFeature, forecastDate string) types.ForecastRecord {
	props := feature.Properties
	return types.ForecastRecord{
		Center:        props.Center,
		Zone:          props.Name,
		ForecastDate:  forecastDate,
		State:         props.State,
		Timezone:      props.Timezone,
		DangerOverall: types.DangerLevel(props.DangerLevel),
		DangerHigh:    dangerPtr(props.DangerElevationHigh),
		DangerMiddle:  dangerPtr(props.DangerElevationMiddle),
		DangerLow:     dangerPtr(props.DangerElevationLow),
		TravelAdvice:  props.TravelAdvice,
		URL:           props.URL,
		Geometry:      feature.Geometry,
	}
}

func dangerPtr(v *int) *types.DangerLevel {
	if v == nil {
		return nil
	}
	d := types.DangerLevel(*v)
	return &d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
