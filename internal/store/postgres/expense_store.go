package postgres

import (
	"context"
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var _ store.ExpenseStore = (*ExpenseStore)(nil)

const expenseColumns = `id, trip_id, user_id, title, category, amount, spent_at,
	paid_by, paid_by_name, split_with, receipt, created_at`

// ExpenseStore implements store.ExpenseStore.
type ExpenseStore struct {
	db DBTX
}

// NewExpenseStore creates a new PostgreSQL expense store.
func NewExpenseStore(db DBTX) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func (s *ExpenseStore) ListExpenses(ctx context.Context, userID, tripID string) ([]types.Expense, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE trip_id = $1 AND user_id = $2
		ORDER BY spent_at DESC NULLS LAST, created_at DESC`, tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", mapError(err))
	}
	defer rows.Close()

	expenses := []types.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing expenses: %w", mapError(err))
	}
	return expenses, nil
}

func (s *ExpenseStore) AddExpense(ctx context.Context, userID, tripID string, e types.Expense) (*types.Expense, error) {
	splitWith := e.SplitWith
	if splitWith == nil {
		splitWith = []string{}
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO expenses (
			trip_id, user_id, title, category, amount, spent_at,
			paid_by, paid_by_name, split_with, receipt
		)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::numeric, $6::timestamptz,
			$7::text, $8::text, $9::text[], $10::text
		WHERE EXISTS (SELECT 1 FROM trips WHERE id = $1::uuid AND user_id = $2::text)
		RETURNING `+expenseColumns,
		tripID,
		userID,
		e.Title,
		e.Category,
		e.Amount,
		e.Date,
		e.PaidBy,
		e.PaidByName,
		splitWith,
		e.Receipt,
	)

	created, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("adding expense: %w", mapError(err))
	}
	return created, nil
}

func (s *ExpenseStore) DeleteExpense(ctx context.Context, userID, tripID, expenseID string) (*types.Expense, error) {
	row := s.db.QueryRow(ctx, `
		DELETE FROM expenses
		WHERE id = $1 AND trip_id = $2 AND user_id = $3
		RETURNING `+expenseColumns, expenseID, tripID, userID)

	deleted, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("deleting expense %s: %w", expenseID, mapError(err))
	}
	return deleted, nil
}

func (s *ExpenseStore) SumByTrip(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trip_id, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE user_id = $1
		GROUP BY trip_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("summing expenses: %w", mapError(err))
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			tripID string
			total  decimal.Decimal
		)
		if err := rows.Scan(&tripID, &total); err != nil {
			return nil, err
		}
		sums[tripID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summing expenses: %w", mapError(err))
	}
	return sums, nil
}

func scanExpense(row pgx.Row) (*types.Expense, error) {
	var e types.Expense
	err := row.Scan(
		&e.ID,
		&e.TripID,
		&e.UserID,
		&e.Title,
		&e.Category,
		&e.Amount,
		&e.Date,
		&e.PaidBy,
		&e.PaidByName,
		&e.SplitWith,
		&e.Receipt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.Category == "" {
		e.Category = types.DefaultCategory
	}
	return &e, nil
}
