package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snowbrief/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- BriefingRepository Tests ---

func TestBriefingRepository_GetByKey_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	now := time.Now().UTC()
	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "7e0a4f2c-9f16-4d7b-a8d5-1d20b7f0c111"
			*dest[1].(*string) = "NWAC"
			*dest[2].(*string) = "Snoqualmie Pass"
			*dest[3].(*string) = "2026-01-15"
			*dest[4].(*types.DangerLevel) = types.DangerConsiderable
			*dest[5].(*string) = "Heads up out there today."
			*dest[6].(*[]types.BriefingProblem) = []types.BriefingProblem{
				{Name: "Wind Slab", Likelihood: "likely", Size: "D2", OfficialSource: true},
			}
			*dest[7].(**string) = ptr("https://nwac.us/avalanche-forecast/#/snoqualmie-pass")
			*dest[8].(**string) = ptr("NWAC")
			*dest[9].(**string) = ptr("Always check the official forecast.")
			*dest[10].(*[]string) = []string{"Watch for shooting cracks."}
			*dest[11].(*time.Time) = now
			return nil
		},
	}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"),
		[]any{"NWAC", "Snoqualmie Pass", "2026-01-15"}).Return(row)

	briefing, err := repo.GetByKey(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15")
	require.NoError(t, err)
	assert.Equal(t, "NWAC", briefing.Center)
	assert.Equal(t, types.DangerConsiderable, briefing.DangerLevel)
	assert.Equal(t, "NWAC", briefing.SourceCenter)
	assert.Len(t, briefing.Problems, 1)
	assert.True(t, briefing.Problems[0].OfficialSource)
	db.AssertExpectations(t)
}

func TestBriefingRepository_GetByKey_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByKey(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundBriefing, appErr.Code)
}

func TestBriefingRepository_GetByKey_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	_, err := repo.GetByKey(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestBriefingRepository_Insert_Wins(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	briefing := &types.Briefing{
		Center:       "NWAC",
		Zone:         "Snoqualmie Pass",
		ForecastDate: "2026-01-15",
		DangerLevel:  types.DangerConsiderable,
		BriefingText: "Heads up out there today.",
		CreatedAt:    time.Now().UTC(),
	}

	inserted, err := repo.Insert(context.Background(), briefing)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, briefing.ID, "Insert must assign a UUID")
	db.AssertExpectations(t)
}

func TestBriefingRepository_Insert_LosesRace(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	// ON CONFLICT DO NOTHING: zero rows affected means another writer won.
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	inserted, err := repo.Insert(context.Background(), &types.Briefing{
		Center:       "NWAC",
		Zone:         "Snoqualmie Pass",
		ForecastDate: "2026-01-15",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestBriefingRepository_Insert_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	_, err := repo.Insert(context.Background(), &types.Briefing{})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestBriefingRepository_DeleteByKey_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"),
		[]any{"NWAC", "Snoqualmie Pass", "2026-01-15"}).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := repo.DeleteByKey(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestBriefingRepository_DeleteByKey_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewBriefingRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	err := repo.DeleteByKey(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundBriefing, appErr.Code)
}

func ptr[T any](v T) *T { return &v }
