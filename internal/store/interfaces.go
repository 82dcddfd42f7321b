// Package store declares the persistence boundaries used by the services.
// Implementations live in the postgres, redis and sqlite subpackages.
package store

import (
	"context"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TripStore persists trips. Every call except ListStartingBetween is scoped to
// the owning user.
type TripStore interface {
	ListTrips(ctx context.Context, userID string) ([]types.Trip, error)
	GetTrip(ctx context.Context, userID, tripID string) (*types.Trip, error)
	CreateTrip(ctx context.Context, userID string, trip types.Trip) (*types.Trip, error)
	UpdateTrip(ctx context.Context, userID, tripID string, update types.TripUpdate) (*types.Trip, error)
	DeleteTrip(ctx context.Context, userID, tripID string) error
	// ListStartingBetween returns trips of all users whose start day falls in
	// [from, to].
	ListStartingBetween(ctx context.Context, from, to timestamp.Day) ([]types.Trip, error)
}

// ExpenseStore persists expenses under a user's trip.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, userID, tripID string) ([]types.Expense, error)
	AddExpense(ctx context.Context, userID, tripID string, expense types.Expense) (*types.Expense, error)
	// DeleteExpense removes the expense and returns what was removed.
	DeleteExpense(ctx context.Context, userID, tripID, expenseID string) (*types.Expense, error)
	// SumByTrip returns total spend per trip id for the user.
	SumByTrip(ctx context.Context, userID string) (map[string]decimal.Decimal, error)
}

// NotificationListOptions filters and pages the in-app list.
type NotificationListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationStore is the in-app notification list. Create is idempotent on
// (user, key).
type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
	List(ctx context.Context, userID string, opts NotificationListOptions) ([]types.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}
