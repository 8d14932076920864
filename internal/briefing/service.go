// Package briefing implements the synthesis pipeline: it assembles official
// avalanche forecasts and weather history into a prompt, sends it to a
// generative text oracle, validates the response against the briefing
// contract, and caches the result one-per-zone-per-day.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"snowbrief/internal/config"
	"snowbrief/internal/types"
)

// forecastFreshness is how long a stored forecast record is served without
// re-fetching from the upstream center.
const forecastFreshness = time.Hour

// ForecastSource fetches official avalanche forecasts from the upstream
// center API.
type ForecastSource interface {
	FetchZoneForecast(ctx context.Context, center, zone, forecastDate string) (*types.ForecastRecord, error)
}

// WeatherSource fetches weather snapshots for a coordinate.
type WeatherSource interface {
	FetchSnapshot(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
}

// TextOracle generates text from a prompt.
type TextOracle interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// BriefingStore persists synthesized briefings keyed by
// (center, zone, forecast date).
type BriefingStore interface {
	GetByKey(ctx context.Context, center, zone, forecastDate string) (*types.Briefing, error)
	// Insert attempts a conditional insert and reports whether this call won:
	// false means another writer already holds the key.
	Insert(ctx context.Context, briefing *types.Briefing) (bool, error)
	DeleteByKey(ctx context.Context, center, zone, forecastDate string) error
}

// ForecastStore persists fetched forecast records with their fetch time.
type ForecastStore interface {
	GetByKey(ctx context.Context, center, zone, forecastDate string) (*types.ForecastRecord, time.Time, error)
	Upsert(ctx context.Context, record *types.ForecastRecord, fetchedAt time.Time) error
}

// SnapshotCache is the short-lived weather snapshot cache. Both methods are
// best-effort: Get treats any cache problem as a miss, Set swallows failures.
type SnapshotCache interface {
	Get(ctx context.Context, center, zone, forecastDate string) (*types.WeatherSnapshot, bool)
	Set(ctx context.Context, center, zone, forecastDate string, snapshot *types.WeatherSnapshot)
}

// Envelope is the API-facing wrapper around a briefing. Briefing is nil when
// no briefing exists for the requested key (that is a successful response,
// not an error). StaleData, DataAge and StalenessWarning are populated only
// when the underlying data tripped the staleness threshold.
type Envelope struct {
	Briefing         *types.Briefing `json:"briefing"`
	Cached           bool            `json:"cached"`
	StaleData        bool            `json:"staleData,omitempty"`
	DataAge          int64           `json:"dataAge,omitempty"` // milliseconds
	StalenessWarning string          `json:"stalenessWarning,omitempty"`
}

// Synthesizer orchestrates the briefing pipeline. All collaborators are
// injected; it owns no HTTP or storage details of its own.
type Synthesizer struct {
	forecasts ForecastSource
	weather   WeatherSource
	oracle    TextOracle

	briefingStore BriefingStore
	forecastStore ForecastStore
	snapshots     SnapshotCache

	composer *PromptComposer
	clock    types.Clock
	logger   *slog.Logger

	style              string
	stalenessThreshold time.Duration

	// flights collapses concurrent generation requests for the same key into
	// a single oracle call.
	flights singleflight.Group
}

// NewSynthesizer wires a Synthesizer from its collaborators and policy config.
func NewSynthesizer(
	forecasts ForecastSource,
	weather WeatherSource,
	oracle TextOracle,
	briefingStore BriefingStore,
	forecastStore ForecastStore,
	snapshots SnapshotCache,
	cfg config.BriefingConfig,
	clock types.Clock,
	logger *slog.Logger,
) *Synthesizer {
	return &Synthesizer{
		forecasts:          forecasts,
		weather:            weather,
		oracle:             oracle,
		briefingStore:      briefingStore,
		forecastStore:      forecastStore,
		snapshots:          snapshots,
		composer:           NewPromptComposer(cfg.PromptStyle, clock),
		clock:              clock,
		logger:             logger,
		style:              cfg.PromptStyle,
		stalenessThreshold: cfg.StalenessThreshold,
	}
}

// GetBriefing returns today's briefing for the zone if one exists. A missing
// briefing is a successful response with a nil Briefing, so clients can
// distinguish "not generated yet" from a failure.
func (s *Synthesizer) GetBriefing(ctx context.Context, center, zone string) (*Envelope, error) {
	if err := validateKey(center, zone); err != nil {
		return nil, err
	}

	forecastDate := types.CalendarDate(s.clock.Now())
	briefing, err := s.briefingStore.GetByKey(ctx, center, zone, forecastDate)
	if err != nil {
		if isCode(err, types.ErrCodeNotFoundBriefing) {
			return &Envelope{Briefing: nil, Cached: false}, nil
		}
		return nil, err
	}

	return s.envelope(briefing, true, AssessStaleness(briefing.CreatedAt, s.clock.Now(), s.stalenessThreshold)), nil
}

// generationResult is what one singleflight execution produces.
type generationResult struct {
	briefing  *types.Briefing
	cached    bool
	staleness StalenessAssessment
}

// GenerateBriefing returns today's briefing for the zone, synthesizing it if
// absent. Concurrent requests for the same key share one generation: exactly
// one oracle call happens per (center, zone, date), and every other caller
// observes the shared result as cached.
func (s *Synthesizer) GenerateBriefing(ctx context.Context, center, zone string) (*Envelope, error) {
	if err := validateKey(center, zone); err != nil {
		return nil, err
	}

	forecastDate := types.CalendarDate(s.clock.Now())

	if existing, err := s.briefingStore.GetByKey(ctx, center, zone, forecastDate); err == nil {
		return s.envelope(existing, true, AssessStaleness(existing.CreatedAt, s.clock.Now(), s.stalenessThreshold)), nil
	} else if !isCode(err, types.ErrCodeNotFoundBriefing) {
		return nil, err
	}

	key := flightKey(center, zone, forecastDate)
	value, err, shared := s.flights.Do(key, func() (any, error) {
		return s.generate(ctx, center, zone, forecastDate)
	})
	if err != nil {
		return nil, err
	}

	result := value.(*generationResult)
	cached := result.cached || shared
	return s.envelope(result.briefing, cached, result.staleness), nil
}

// RegenerateBriefing deletes today's briefing so the next generate call
// produces a fresh one. Deleting a briefing that does not exist is not an
// error; the end state is the same.
func (s *Synthesizer) RegenerateBriefing(ctx context.Context, center, zone string) (string, error) {
	if err := validateKey(center, zone); err != nil {
		return "", err
	}

	forecastDate := types.CalendarDate(s.clock.Now())
	if err := s.briefingStore.DeleteByKey(ctx, center, zone, forecastDate); err != nil {
		if !isCode(err, types.ErrCodeNotFoundBriefing) {
			return "", err
		}
	}

	return "Old briefing deleted. Refresh to generate a new one.", nil
}

// generate runs the full pipeline once: forecast, weather, prompt, oracle,
// validate, persist. It runs inside a singleflight execution.
func (s *Synthesizer) generate(ctx context.Context, center, zone, forecastDate string) (*generationResult, error) {
	record, err := s.loadForecast(ctx, center, zone, forecastDate)
	if err != nil {
		return nil, err
	}

	staleness := s.assessForecast(record)
	weather := s.loadWeather(ctx, center, zone, forecastDate, record)

	inputs := PromptInputs{
		Center:   center,
		Zone:     zone,
		Forecast: record,
		Weather:  weather,
	}
	if staleness.IsStale {
		inputs.Staleness = &staleness
	}

	raw, err := s.oracle.GenerateText(ctx, s.composer.Compose(inputs))
	if err != nil {
		return nil, err
	}

	payload, err := ParseOracleResponse(raw, s.style == config.PromptStyleMentor)
	if err != nil {
		return nil, err
	}

	briefing := s.assemble(center, zone, forecastDate, record, payload)

	inserted, err := s.briefingStore.Insert(ctx, briefing)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Another process won the conditional insert; serve its briefing so
		// every caller sees the single canonical artifact for this key.
		winner, err := s.briefingStore.GetByKey(ctx, center, zone, forecastDate)
		if err != nil {
			return nil, err
		}
		s.logger.Info("briefing insert lost race, serving winner",
			"center", center, "zone", zone, "forecast_date", forecastDate)
		return &generationResult{briefing: winner, cached: true, staleness: staleness}, nil
	}

	s.logger.Info("briefing generated",
		"center", center, "zone", zone, "forecast_date", forecastDate,
		"danger_level", int(briefing.DangerLevel), "stale_data", staleness.IsStale)

	return &generationResult{briefing: briefing, cached: false, staleness: staleness}, nil
}

// loadForecast serves the stored forecast record when it was fetched within
// forecastFreshness, refetching from the upstream center otherwise. When the
// upstream fetch fails but a stale stored record exists, the stale record is
// served rather than failing the whole generation.
func (s *Synthesizer) loadForecast(ctx context.Context, center, zone, forecastDate string) (*types.ForecastRecord, error) {
	stored, fetchedAt, storeErr := s.forecastStore.GetByKey(ctx, center, zone, forecastDate)
	if storeErr == nil && s.clock.Now().Sub(fetchedAt) <= forecastFreshness {
		return stored, nil
	}

	record, err := s.forecasts.FetchZoneForecast(ctx, center, zone, forecastDate)
	if err != nil {
		if storeErr == nil {
			s.logger.Warn("forecast refetch failed, serving stored record",
				"center", center, "zone", zone, "error", err)
			return stored, nil
		}
		return nil, err
	}

	if err := s.forecastStore.Upsert(ctx, record, s.clock.Now()); err != nil {
		s.logger.Warn("forecast store write failed",
			"center", center, "zone", zone, "error", err)
	}
	return record, nil
}

// assessForecast computes staleness from the record's publish time. Records
// without a publish time are treated as fresh; there is nothing to measure
// against.
func (s *Synthesizer) assessForecast(record *types.ForecastRecord) StalenessAssessment {
	if record.PublishedAt == nil {
		return StalenessAssessment{}
	}
	return AssessStaleness(*record.PublishedAt, s.clock.Now(), s.stalenessThreshold)
}

// loadWeather resolves the zone's weather snapshot: polygon centroid, then
// cache, then upstream fetch. Weather is strictly best-effort; any failure
// produces a briefing without weather context rather than an error. Zones
// without geometry never reach the weather source.
func (s *Synthesizer) loadWeather(ctx context.Context, center, zone, forecastDate string, record *types.ForecastRecord) *types.WeatherSnapshot {
	lat, lon, ok := Centroid(record.Geometry.OuterRing())
	if !ok {
		return nil
	}

	if snapshot, hit := s.snapshots.Get(ctx, center, zone, forecastDate); hit {
		return snapshot
	}

	snapshot, err := s.weather.FetchSnapshot(ctx, lat, lon)
	if err != nil {
		s.logger.Warn("weather fetch failed, generating without weather context",
			"center", center, "zone", zone, "error", err)
		return nil
	}

	s.snapshots.Set(ctx, center, zone, forecastDate, snapshot)
	return snapshot
}

// assemble builds the persistent briefing from the validated oracle payload
// and the forecast record it was generated from.
func (s *Synthesizer) assemble(center, zone, forecastDate string, record *types.ForecastRecord, payload *oraclePayload) *types.Briefing {
	problems := make([]types.BriefingProblem, 0, len(payload.Problems))
	for _, p := range payload.Problems {
		problems = append(problems, types.BriefingProblem{
			Name:           p.Name,
			Description:    p.Description,
			Likelihood:     p.Likelihood,
			Size:           p.Size,
			OfficialSource: p.OfficialSource,
		})
	}

	sourceURL := payload.SourceURL
	if sourceURL == "" {
		sourceURL = record.URL
	}
	sourceCenter := payload.SourceCenter
	if sourceCenter == "" {
		sourceCenter = center
	}

	return &types.Briefing{
		Center:                  center,
		Zone:                    zone,
		ForecastDate:            forecastDate,
		DangerLevel:             record.DangerOverall,
		BriefingText:            payload.Briefing,
		Problems:                problems,
		SourceURL:               sourceURL,
		SourceCenter:            sourceCenter,
		Disclaimer:              payload.Disclaimer,
		FieldObservationPrompts: payload.FieldObservationPrompts,
		CreatedAt:               s.clock.Now().UTC(),
	}
}

func (s *Synthesizer) envelope(briefing *types.Briefing, cached bool, staleness StalenessAssessment) *Envelope {
	env := &Envelope{Briefing: briefing, Cached: cached}
	if staleness.IsStale {
		env.StaleData = true
		env.DataAge = staleness.ElapsedMillis()
		env.StalenessWarning = fmt.Sprintf(
			"This data is %.0f hours old and may not reflect current conditions. Check the official forecast before traveling.",
			staleness.ElapsedHours())
	}
	return env
}

func validateKey(center, zone string) error {
	if strings.TrimSpace(center) == "" {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"center is required", nil,
			map[string]any{"field": "center"},
		)
	}
	if strings.TrimSpace(zone) == "" {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"zone is required", nil,
			map[string]any{"field": "zone"},
		)
	}
	return nil
}

func flightKey(center, zone, forecastDate string) string {
	return strings.ToLower(center) + "|" + strings.ToLower(zone) + "|" + forecastDate
}

func isCode(err error, code types.ErrorCode) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
