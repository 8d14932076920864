package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"snowbrief/internal/types"
)

// ForecastRepository is a write-back store for upstream avalanche forecasts.
// The full record is kept as a JSONB payload alongside its key columns and
// fetch time, so the synthesis pipeline can serve recent fetches without
// re-hitting the upstream API. Freshness policy lives with the caller; the
// repository only reports when each row was fetched.
type ForecastRepository struct {
	db DBTX
}

// NewForecastRepository creates a ForecastRepository backed by the given
// database connection (pool or transaction).
func NewForecastRepository(db DBTX) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// GetByKey retrieves the stored forecast for a (center, zone, forecast date)
// key along with the time it was fetched from upstream. Returns
// ErrCodeNotFoundForecast when no row exists.
func (r *ForecastRepository) GetByKey(ctx context.Context, center, zone, forecastDate string) (*types.ForecastRecord, time.Time, error) {
	query := `SELECT payload, fetched_at
		FROM forecasts
		WHERE center = $1 AND zone = $2 AND forecast_date = $3`

	var (
		record    types.ForecastRecord
		fetchedAt time.Time
	)
	err := r.db.QueryRow(ctx, query, center, zone, forecastDate).Scan(&record, &fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, types.NewAppError(types.ErrCodeNotFoundForecast, "forecast not found", nil)
		}
		return nil, time.Time{}, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve forecast", err)
	}

	return &record, fetchedAt, nil
}

// Upsert stores or refreshes the forecast for its key. A later fetch of the
// same key replaces the payload and fetch time.
func (r *ForecastRepository) Upsert(ctx context.Context, record *types.ForecastRecord, fetchedAt time.Time) error {
	query := `INSERT INTO forecasts (center, zone, forecast_date, payload, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (center, zone, forecast_date)
		DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`

	_, err := r.db.Exec(ctx, query,
		record.Center,
		record.Zone,
		record.ForecastDate,
		record,
		fetchedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to store forecast", err)
	}

	return nil
}
