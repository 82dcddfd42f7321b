//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/db"
	"github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	logger.IsTest = true
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("budget"),
		tcpostgres.WithUsername("budget"),
		tcpostgres.WithPassword("budget"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_TripAndExpenseStores(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	trips := NewTripStore(pool)
	expenses := NewExpenseStore(pool)

	start, err := timestamp.ParseDay("2026-04-01")
	require.NoError(t, err)
	created, err := trips.CreateTrip(ctx, "user-1", types.Trip{
		Name:            "Goa",
		StartDate:       start,
		EndDate:         start.AddDays(4),
		TotalBudget:     decimal.NewFromInt(10000),
		CategoryBudgets: map[string]decimal.Decimal{"Food": decimal.NewFromInt(3000)},
		Members:         []types.Member{{ID: "user-1", IsOwner: true}, {ID: "m2", Name: "Asha"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.CreatedBy)
	assert.Equal(t, 2, created.MemberCount())

	_, err = trips.GetTrip(ctx, "user-2", created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "trips are scoped to their owner")

	_, err = trips.GetTrip(ctx, "user-1", "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)

	spent := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	for _, amount := range []int64{1200, 800} {
		_, err := expenses.AddExpense(ctx, "user-1", created.ID, types.Expense{
			Title:    "Dinner",
			Category: "Food",
			Amount:   decimal.NewFromInt(amount),
			Date:     &spent,
			PaidBy:   "You",
		})
		require.NoError(t, err)
	}

	_, err = expenses.AddExpense(ctx, "user-2", created.ID, types.Expense{Title: "x", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	listed, err := expenses.ListExpenses(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	sums, err := expenses.SumByTrip(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2000).Equal(sums[created.ID]))

	upcoming, err := trips.ListStartingBetween(ctx, start.AddDays(-1), start.AddDays(1))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, created.ID, upcoming[0].ID)

	name := "Goa and Gokarna"
	updated, err := trips.UpdateTrip(ctx, "user-1", created.ID, types.TripUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.True(t, decimal.NewFromInt(10000).Equal(updated.TotalBudget))

	require.NoError(t, trips.DeleteTrip(ctx, "user-1", created.ID))
	listed, err = expenses.ListExpenses(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Empty(t, listed, "expenses cascade with their trip")
	assert.ErrorIs(t, trips.DeleteTrip(ctx, "user-1", created.ID), store.ErrNotFound)
}

func TestIntegration_NotificationStore(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	notifications := NewNotificationStore(pool)

	n := &types.Notification{
		UserID:    "user-1",
		TripID:    "trip-1",
		Key:       "budget-threshold-trip-1-80",
		Type:      types.NotificationBudgetThreshold,
		Title:     "Budget alert",
		Message:   "Goa has used 80% of its budget",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, notifications.Create(ctx, n))

	retry := *n
	retry.ID = uuid.Nil
	require.NoError(t, notifications.Create(ctx, &retry), "same key is a no-op")

	count, err := notifications.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, notifications.MarkRead(ctx, "user-1", n.ID))
	unread, err := notifications.List(ctx, "user-1", store.NotificationListOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, notifications.Delete(ctx, "user-2", n.ID), store.ErrNotFound)
	require.NoError(t, notifications.Delete(ctx, "user-1", n.ID))
}
