package external

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"snowbrief/internal/config"
	"snowbrief/internal/types"
)

// Weather variables requested per time resolution. The daily window spans 14
// days of history through 7 days of forecast so the briefing can reason about
// how the snowpack was built, not just what falls today.
const (
	currentVariables = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,cloud_cover,pressure_msl,wind_speed_10m,wind_direction_10m,wind_gusts_10m"
	hourlyVariables  = "temperature_2m,precipitation_probability,precipitation,snowfall,cloud_cover,visibility,wind_speed_10m,wind_direction_10m,wind_gusts_10m,uv_index"
	dailyVariables   = "temperature_2m_max,temperature_2m_min,precipitation_sum,snowfall_sum,precipitation_probability_max,wind_speed_10m_max,wind_gusts_10m_max,uv_index_max"

	forecastDays = 7
	pastDays     = 14
)

// weatherCodeDescriptions maps WMO weather interpretation codes to text.
var weatherCodeDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// WeatherDescription returns the text for a WMO weather code.
func WeatherDescription(code int) string {
	if desc, ok := weatherCodeDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}

var cardinalDirections = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CardinalDirection converts wind degrees to a 16-point compass label.
func CardinalDirection(degrees float64) string {
	index := int(math.Round(degrees/22.5)) % 16
	if index < 0 {
		index += 16
	}
	return cardinalDirections[index]
}

// --- Wire types (Open-Meteo) ---

type openMeteoResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Current   struct {
		Time          string  `json:"time"`
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		FeelsLike     float64 `json:"apparent_temperature"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
		CloudCover    float64 `json:"cloud_cover"`
		Pressure      float64 `json:"pressure_msl"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
		WindGusts     float64 `json:"wind_gusts_10m"`
	} `json:"current"`
	Hourly struct {
		Time                     []string  `json:"time"`
		Temperature              []float64 `json:"temperature_2m"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		Precipitation            []float64 `json:"precipitation"`
		Snowfall                 []float64 `json:"snowfall"`
		CloudCover               []float64 `json:"cloud_cover"`
		Visibility               []float64 `json:"visibility"`
		WindSpeed                []float64 `json:"wind_speed_10m"`
		WindDirection            []float64 `json:"wind_direction_10m"`
		WindGusts                []float64 `json:"wind_gusts_10m"`
		UVIndex                  []float64 `json:"uv_index"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string  `json:"time"`
		TemperatureMax              []float64 `json:"temperature_2m_max"`
		TemperatureMin              []float64 `json:"temperature_2m_min"`
		PrecipitationSum            []float64 `json:"precipitation_sum"`
		SnowfallSum                 []float64 `json:"snowfall_sum"`
		PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
		WindSpeedMax                []float64 `json:"wind_speed_10m_max"`
		WindGustsMax                []float64 `json:"wind_gusts_10m_max"`
		UVIndexMax                  []float64 `json:"uv_index_max"`
	} `json:"daily"`
}

// OpenMeteoClient fetches mountain weather from the Open-Meteo forecast API.
// Requests use imperial units (°F, mph, inches) to match the briefing output
// and auto-resolve the location's timezone so daily arrays align with local
// calendar dates.
type OpenMeteoClient struct {
	base    *BaseClient
	baseURL string
	clock   types.Clock
}

// NewOpenMeteoClient creates an OpenMeteoClient from the weather upstream
// configuration.
func NewOpenMeteoClient(cfg config.WeatherConfig, clock types.Clock, opts ...BaseClientOption) *OpenMeteoClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &OpenMeteoClient{
		base:    NewBaseClient(httpClient, "open-meteo", DefaultRetryPolicy(), "", opts...),
		baseURL: cfg.BaseURL,
		clock:   clock,
	}
}

// FetchSnapshot retrieves a full weather snapshot for a coordinate: current
// conditions, hourly series, and the 14-days-back / 7-days-forward daily
// series.
func (c *OpenMeteoClient) FetchSnapshot(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", currentVariables)
	q.Set("hourly", hourlyVariables)
	q.Set("daily", dailyVariables)
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(forecastDays))
	q.Set("past_days", strconv.Itoa(pastDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather request returned %d", resp.StatusCode),
			nil,
		)
	}

	var raw openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode weather response", err)
	}

	return c.transform(&raw), nil
}

// transform converts the snake_case wire format into the domain snapshot,
// deriving the weather description and cardinal wind direction.
func (c *OpenMeteoClient) transform(raw *openMeteoResponse) *types.WeatherSnapshot {
	return &types.WeatherSnapshot{
		Location: types.Location{
			Lat:       raw.Latitude,
			Lon:       raw.Longitude,
			Elevation: raw.Elevation,
		},
		Current: types.CurrentConditions{
			Time:                  raw.Current.Time,
			Temperature:           raw.Current.Temperature,
			FeelsLike:             raw.Current.FeelsLike,
			Humidity:              raw.Current.Humidity,
			Precipitation:         raw.Current.Precipitation,
			WeatherCode:           raw.Current.WeatherCode,
			WeatherDescription:    WeatherDescription(raw.Current.WeatherCode),
			CloudCover:            raw.Current.CloudCover,
			Pressure:              raw.Current.Pressure,
			WindSpeed:             raw.Current.WindSpeed,
			WindDirection:         raw.Current.WindDirection,
			WindDirectionCardinal: CardinalDirection(raw.Current.WindDirection),
			WindGusts:             raw.Current.WindGusts,
		},
		Hourly: types.HourlySeries{
			Time:                     raw.Hourly.Time,
			Temperature:              raw.Hourly.Temperature,
			PrecipitationProbability: raw.Hourly.PrecipitationProbability,
			Precipitation:            raw.Hourly.Precipitation,
			Snowfall:                 raw.Hourly.Snowfall,
			CloudCover:               raw.Hourly.CloudCover,
			Visibility:               raw.Hourly.Visibility,
			WindSpeed:                raw.Hourly.WindSpeed,
			WindDirection:            raw.Hourly.WindDirection,
			WindGusts:                raw.Hourly.WindGusts,
			UVIndex:                  raw.Hourly.UVIndex,
		},
		Daily: types.DailySeries{
			Time:                        raw.Daily.Time,
			TemperatureMax:              raw.Daily.TemperatureMax,
			TemperatureMin:              raw.Daily.TemperatureMin,
			PrecipitationSum:            raw.Daily.PrecipitationSum,
			SnowfallSum:                 raw.Daily.SnowfallSum,
			PrecipitationProbabilityMax: raw.Daily.PrecipitationProbabilityMax,
			WindSpeedMax:                raw.Daily.WindSpeedMax,
			WindGustsMax:                raw.Daily.WindGustsMax,
			UVIndexMax:                  raw.Daily.UVIndexMax,
		},
		LastUpdated: c.clock.Now().UTC().Format(time.RFC3339),
	}
}
