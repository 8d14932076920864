package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"snowbrief/internal/types"
)

// BriefingRepository provides data access for the briefings table. The table
// carries a UNIQUE constraint on (center, zone, forecast_date): exactly one
// briefing may exist per zone per calendar date.
type BriefingRepository struct {
	db DBTX
}

// NewBriefingRepository creates a BriefingRepository backed by the given
// database connection (pool or transaction).
func NewBriefingRepository(db DBTX) *BriefingRepository {
	return &BriefingRepository{db: db}
}

const briefingColumns = `id, center, zone, forecast_date, danger_level,
	briefing_text, problems, source_url, source_center, disclaimer,
	field_observation_prompts, created_at`

// scanBriefing scans a single briefing row. Column order must match
// briefingColumns.
func scanBriefing(row pgx.Row) (*types.Briefing, error) {
	var b types.Briefing
	var (
		sourceURL    *string
		sourceCenter *string
		disclaimer   *string
	)

	err := row.Scan(
		&b.ID,
		&b.Center,
		&b.Zone,
		&b.ForecastDate,
		&b.DangerLevel,
		&b.BriefingText,
		&b.Problems,
		&sourceURL,
		&sourceCenter,
		&disclaimer,
		&b.FieldObservationPrompts,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceURL != nil {
		b.SourceURL = *sourceURL
	}
	if sourceCenter != nil {
		b.SourceCenter = *sourceCenter
	}
	if disclaimer != nil {
		b.Disclaimer = *disclaimer
	}

	return &b, nil
}

// GetByKey retrieves the briefing for a (center, zone, forecast date) key.
// Returns ErrCodeNotFoundBriefing when no briefing exists for the key.
func (r *BriefingRepository) GetByKey(ctx context.Context, center, zone, forecastDate string) (*types.Briefing, error) {
	query := `SELECT ` + briefingColumns + `
		FROM briefings
		WHERE center = $1 AND zone = $2 AND forecast_date = $3`

	briefing, err := scanBriefing(r.db.QueryRow(ctx, query, center, zone, forecastDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundBriefing, "briefing not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve briefing", err)
	}

	return briefing, nil
}

// Insert stores a new briefing. The insert is conditional: when another
// writer has already stored a briefing for the same (center, zone,
// forecast_date) key, no row is written and Insert returns false with a nil
// error so the caller can re-read the winning row. A generated UUID is
// assigned to briefing.ID before the insert.
func (r *BriefingRepository) Insert(ctx context.Context, briefing *types.Briefing) (bool, error) {
	briefing.ID = uuid.NewString()

	query := `INSERT INTO briefings (
			id, center, zone, forecast_date, danger_level,
			briefing_text, problems, source_url, source_center, disclaimer,
			field_observation_prompts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (center, zone, forecast_date) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		briefing.ID,
		briefing.Center,
		briefing.Zone,
		briefing.ForecastDate,
		briefing.DangerLevel,
		briefing.BriefingText,
		briefing.Problems,
		nullableString(briefing.SourceURL),
		nullableString(briefing.SourceCenter),
		nullableString(briefing.Disclaimer),
		briefing.FieldObservationPrompts,
		briefing.CreatedAt,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to store briefing", err)
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteByKey removes the briefing for a key, if one exists. Returns
// ErrCodeNotFoundBriefing when there was nothing to delete.
func (r *BriefingRepository) DeleteByKey(ctx context.Context, center, zone, forecastDate string) error {
	query := `DELETE FROM briefings
		WHERE center = $1 AND zone = $2 AND forecast_date = $3`

	tag, err := r.db.Exec(ctx, query, center, zone, forecastDate)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete briefing", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundBriefing, "briefing not found", nil)
	}

	return nil
}

// nullableString converts an empty string to a NULL parameter.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
