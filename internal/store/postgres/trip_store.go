package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var _ store.TripStore = (*TripStore)(nil)

const tripColumns = `id, user_id, name, description, image, start_date, end_date,
	total_budget, category_budgets, members, created_by, created_at, updated_at`

// TripStore implements store.TripStore.
type TripStore struct {
	db DBTX
}

// NewTripStore creates a new PostgreSQL trip store.
func NewTripStore(db DBTX) *TripStore {
	return &TripStore{db: db}
}

func (s *TripStore) ListTrips(ctx context.Context, userID string) ([]types.Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE user_id = $1
		ORDER BY start_date NULLS LAST, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", mapError(err))
	}
	return collectTrips(rows)
}

func (s *TripStore) GetTrip(ctx context.Context, userID, tripID string) (*types.Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE id = $1 AND user_id = $2`, tripID, userID)

	trip, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("getting trip %s: %w", tripID, mapError(err))
	}
	return trip, nil
}

func (s *TripStore) CreateTrip(ctx context.Context, userID string, trip types.Trip) (*types.Trip, error) {
	categories, members, err := encodeTripJSON(trip)
	if err != nil {
		return nil, err
	}
	createdBy := trip.CreatedBy
	if createdBy == "" {
		createdBy = userID
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (
			user_id, name, description, image, start_date, end_date,
			total_budget, category_budgets, members, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+tripColumns,
		userID,
		trip.Name,
		trip.Description,
		trip.Image,
		trip.StartDate.Ptr(),
		trip.EndDate.Ptr(),
		trip.TotalBudget,
		categories,
		members,
		createdBy,
	)

	created, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("creating trip: %w", mapError(err))
	}
	return created, nil
}

// UpdateTrip reads the trip under a row lock, applies the update and writes
// every column back.
func (s *TripStore) UpdateTrip(ctx context.Context, userID, tripID string, update types.TripUpdate) (*types.Trip, error) {
	var updated *types.Trip
	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := scanTrip(tx.QueryRow(ctx, `
			SELECT `+tripColumns+`
			FROM trips
			WHERE id = $1 AND user_id = $2
			FOR UPDATE`, tripID, userID))
		if err != nil {
			return mapError(err)
		}

		current.Apply(update)
		categories, members, err := encodeTripJSON(*current)
		if err != nil {
			return err
		}

		updated, err = scanTrip(tx.QueryRow(ctx, `
			UPDATE trips
			SET name = $1, description = $2, image = $3, start_date = $4, end_date = $5,
				total_budget = $6, category_budgets = $7, members = $8, updated_at = NOW()
			WHERE id = $9 AND user_id = $10
			RETURNING `+tripColumns,
			current.Name,
			current.Description,
			current.Image,
			current.StartDate.Ptr(),
			current.EndDate.Ptr(),
			current.TotalBudget,
			categories,
			members,
			tripID,
			userID,
		))
		return mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("updating trip %s: %w", tripID, err)
	}
	return updated, nil
}

// DeleteTrip removes the trip; its expenses go with it through the foreign key.
func (s *TripStore) DeleteTrip(ctx context.Context, userID, tripID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id = $1 AND user_id = $2`, tripID, userID)
	if err != nil {
		return fmt.Errorf("deleting trip %s: %w", tripID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting trip %s: %w", tripID, store.ErrNotFound)
	}
	return nil
}

func (s *TripStore) ListStartingBetween(ctx context.Context, from, to timestamp.Day) ([]types.Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE start_date BETWEEN $1 AND $2
		ORDER BY user_id, start_date`, from.Ptr(), to.Ptr())
	if err != nil {
		return nil, fmt.Errorf("listing upcoming trips: %w", mapError(err))
	}
	return collectTrips(rows)
}

func encodeTripJSON(trip types.Trip) ([]byte, []byte, error) {
	categories := trip.CategoryBudgets
	if categories == nil {
		categories = map[string]decimal.Decimal{}
	}
	members := trip.Members
	if members == nil {
		members = []types.Member{}
	}
	c, err := json.Marshal(categories)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding category budgets: %w", err)
	}
	m, err := json.Marshal(members)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding members: %w", err)
	}
	return c, m, nil
}

func collectTrips(rows pgx.Rows) ([]types.Trip, error) {
	defer rows.Close()

	trips := []types.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return trips, nil
}

func scanTrip(row pgx.Row) (*types.Trip, error) {
	var (
		trip       types.Trip
		start, end *time.Time
		categories []byte
		members    []byte
	)
	err := row.Scan(
		&trip.ID,
		&trip.UserID,
		&trip.Name,
		&trip.Description,
		&trip.Image,
		&start,
		&end,
		&trip.TotalBudget,
		&categories,
		&members,
		&trip.CreatedBy,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.StartDate = timestamp.FromPtr(start)
	trip.EndDate = timestamp.FromPtr(end)
	trip.CategoryBudgets = map[string]decimal.Decimal{}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &trip.CategoryBudgets); err != nil {
			return nil, fmt.Errorf("decoding category budgets: %w", err)
		}
	}
	trip.Members = []types.Member{}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &trip.Members); err != nil {
			return nil, fmt.Errorf("decoding members: %w", err)
		}
	}
	return &trip, nil
}
