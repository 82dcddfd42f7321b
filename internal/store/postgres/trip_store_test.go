package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

var tripCols = []string{
	"id", "user_id", "name", "description", "image", "start_date", "end_date",
	"total_budget", "category_budgets", "members", "created_by", "created_at", "updated_at",
}

func setupMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func testTrip() types.Trip {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return types.Trip{
		ID:          uuid.NewString(),
		UserID:      "user-1",
		Name:        "Goa",
		StartDate:   timestamp.Day{Year: 2025, Month: time.March, Day: 10},
		EndDate:     timestamp.Day{Year: 2025, Month: time.March, Day: 15},
		TotalBudget: decimal.NewFromInt(3000),
		CategoryBudgets: map[string]decimal.Decimal{
			"Food": decimal.NewFromInt(1000),
		},
		Members:   []types.Member{{ID: "user-1", Name: "Asha", IsOwner: true}},
		CreatedBy: "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func tripRow(rows *pgxmock.Rows, trip types.Trip) *pgxmock.Rows {
	categories, members, _ := encodeTripJSON(trip)
	return rows.AddRow(
		trip.ID, trip.UserID, trip.Name, trip.Description, trip.Image,
		trip.StartDate.Ptr(), trip.EndDate.Ptr(), trip.TotalBudget,
		categories, members, trip.CreatedBy, trip.CreatedAt, trip.UpdatedAt,
	)
}

func TestTripStore_CreateTrip(t *testing.T) {
	mock := setupMockPool(t)
	s := NewTripStore(mock)
	trip := testTrip()
	categories, members, err := encodeTripJSON(trip)
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO trips").
		WithArgs("user-1", trip.Name, trip.Description, trip.Image,
			trip.StartDate.Ptr(), trip.EndDate.Ptr(), trip.TotalBudget,
			categories, members, "user-1").
		WillReturnRows(tripRow(pgxmock.NewRows(tripCols), trip))

	created, err := s.CreateTrip(context.Background(), "user-1", trip)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, created.ID)
	assert.Equal(t, trip.StartDate, created.StartDate)
	assert.Equal(t, "1000", created.CategoryBudgets["Food"].String())
	require.Len(t, created.Members, 1)
	assert.True(t, created.Members[0].IsOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripStore_CreateTrip_NullDates(t *testing.T) {
	mock := setupMockPool(t)
	s := NewTripStore(mock)
	trip := testTrip()
	trip.StartDate = timestamp.Day{}
	trip.EndDate = timestamp.Day{}

	mock.ExpectQuery("INSERT INTO trips").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			(*time.Time)(nil), (*time.Time)(nil), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(tripRow(pgxmock.NewRows(tripCols), trip))

	created, err := s.CreateTrip(context.Background(), "user-1", trip)
	require.NoError(t, err)
	assert.True(t, created.StartDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripStore_GetTrip(t *testing.T) {
	trip := testTrip()

	t.Run("found", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = \$1 AND user_id = \$2`).
			WithArgs(trip.ID, "user-1").
			WillReturnRows(tripRow(pgxmock.NewRows(tripCols), trip))

		got, err := NewTripStore(mock).GetTrip(context.Background(), "user-1", trip.ID)
		require.NoError(t, err)
		assert.Equal(t, "Goa", got.Name)
		assert.Equal(t, "3000", got.TotalBudget.String())
	})

	t.Run("not found", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectQuery(`SELECT (.+) FROM trips`).
			WithArgs(trip.ID, "user-2").
			WillReturnRows(pgxmock.NewRows(tripCols))

		_, err := NewTripStore(mock).GetTrip(context.Background(), "user-2", trip.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectQuery(`SELECT (.+) FROM trips`).
			WithArgs("nope", "user-1").
			WillReturnError(&pgconn.PgError{Code: "22P02"})

		_, err := NewTripStore(mock).GetTrip(context.Background(), "user-1", "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTripStore_ListTrips(t *testing.T) {
	mock := setupMockPool(t)
	a, b := testTrip(), testTrip()
	b.Name = "Manali"

	mock.ExpectQuery(`SELECT (.+) FROM trips WHERE user_id = \$1 ORDER BY`).
		WithArgs("user-1").
		WillReturnRows(tripRow(tripRow(pgxmock.NewRows(tripCols), a), b))

	trips, err := NewTripStore(mock).ListTrips(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Manali", trips[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripStore_ListTrips_Empty(t *testing.T) {
	mock := setupMockPool(t)
	mock.ExpectQuery(`SELECT (.+) FROM trips`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(tripCols))

	trips, err := NewTripStore(mock).ListTrips(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, trips)
	assert.Empty(t, trips)
}

func TestTripStore_UpdateTrip(t *testing.T) {
	trip := testTrip()

	t.Run("applies partial update", func(t *testing.T) {
		mock := setupMockPool(t)
		name := "Goa and Gokarna"
		budget := decimal.NewFromInt(4500)

		updated := trip
		updated.Name = name
		updated.TotalBudget = budget

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM trips WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
			WithArgs(trip.ID, "user-1").
			WillReturnRows(tripRow(pgxmock.NewRows(tripCols), trip))
		mock.ExpectQuery("UPDATE trips").
			WithArgs(name, trip.Description, trip.Image, trip.StartDate.Ptr(), trip.EndDate.Ptr(),
				budget, pgxmock.AnyArg(), pgxmock.AnyArg(), trip.ID, "user-1").
			WillReturnRows(tripRow(pgxmock.NewRows(tripCols), updated))
		mock.ExpectCommit()

		got, err := NewTripStore(mock).UpdateTrip(context.Background(), "user-1", trip.ID,
			types.TripUpdate{Name: &name, TotalBudget: &budget})
		require.NoError(t, err)
		assert.Equal(t, name, got.Name)
		assert.Equal(t, "4500", got.TotalBudget.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing trip rolls back", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM trips`).
			WithArgs(trip.ID, "user-1").
			WillReturnRows(pgxmock.NewRows(tripCols))
		mock.ExpectRollback()

		_, err := NewTripStore(mock).UpdateTrip(context.Background(), "user-1", trip.ID, types.TripUpdate{})
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTripStore_DeleteTrip(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectExec(`DELETE FROM trips WHERE id = \$1 AND user_id = \$2`).
			WithArgs("trip-1", "user-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, NewTripStore(mock).DeleteTrip(context.Background(), "user-1", "trip-1"))
	})

	t.Run("nothing deleted", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectExec(`DELETE FROM trips`).
			WithArgs("trip-1", "user-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := NewTripStore(mock).DeleteTrip(context.Background(), "user-1", "trip-1")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("connection lost", func(t *testing.T) {
		mock := setupMockPool(t)
		mock.ExpectExec(`DELETE FROM trips`).
			WithArgs("trip-1", "user-1").
			WillReturnError(errors.New("conn closed"))

		err := NewTripStore(mock).DeleteTrip(context.Background(), "user-1", "trip-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTripStore_ListStartingBetween(t *testing.T) {
	mock := setupMockPool(t)
	trip := testTrip()
	from := timestamp.Day{Year: 2025, Month: time.March, Day: 10}
	to := from.AddDays(1)

	mock.ExpectQuery(`WHERE start_date BETWEEN \$1 AND \$2`).
		WithArgs(from.Ptr(), to.Ptr()).
		WillReturnRows(tripRow(pgxmock.NewRows(tripCols), trip))

	trips, err := NewTripStore(mock).ListStartingBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "user-1", trips[0].UserID)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505", ConstraintName: "trips_pkey"}), store.ErrConflict)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23503"}), store.ErrNotFound)

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, other, mapError(other))
}
