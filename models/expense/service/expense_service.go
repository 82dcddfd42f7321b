// Package service records expenses against trips and keeps the budget
// notifications in step with them.
package service

import (
	"context"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	"github.com/NomadCrew/nomad-budget-backend/internal/events"
	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	istore "github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/models"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"go.uber.org/zap"
)

type ExpenseService struct {
	trips     istore.TripStore
	expenses  istore.ExpenseStore
	tracker   *notification.Tracker
	publisher types.EventPublisher
	decoder   *document.Decoder
	log       *zap.Logger
}

func NewExpenseService(
	trips istore.TripStore,
	expenses istore.ExpenseStore,
	tracker *notification.Tracker,
	publisher types.EventPublisher,
	loc *time.Location,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		trips:     trips,
		expenses:  expenses,
		tracker:   tracker,
		publisher: publisher,
		decoder:   document.NewDecoder(loc),
		log:       logger.Named("ExpenseService"),
	}
}

func (s *ExpenseService) trip(ctx context.Context, userID, tripID string) (*types.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, models.MapStoreError(err, func() *apperrors.AppError { return apperrors.TripNotFound(tripID) })
	}
	return trip, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID, tripID string) ([]types.Expense, error) {
	if _, err := s.trip(ctx, userID, tripID); err != nil {
		return nil, err
	}
	list, err := s.expenses.ListExpenses(ctx, userID, tripID)
	if err != nil {
		return nil, models.MapStoreError(err, func() *apperrors.AppError { return apperrors.TripNotFound(tripID) })
	}
	return list, nil
}

// AddExpense decodes doc, stores the expense and re-runs the budget threshold
// check for the trip.
func (s *ExpenseService) AddExpense(ctx context.Context, userID, tripID string, doc document.Doc) (*types.Expense, error) {
	expense, err := s.decoder.Expense(doc)
	if err != nil {
		return nil, err
	}
	trip, err := s.trip(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	expense.ID = ""
	expense.TripID = tripID
	expense.UserID = userID
	added, err := s.expenses.AddExpense(ctx, userID, tripID, expense)
	if err != nil {
		return nil, models.MapStoreError(err, func() *apperrors.AppError { return apperrors.TripNotFound(tripID) })
	}

	if _, err := s.tracker.ExpenseAdded(ctx, userID, *trip, *added); err != nil {
		s.log.Warn("Failed to record expense notification", zap.String("expenseID", added.ID), zap.Error(err))
	}
	s.publish(ctx, types.EventTypeExpenseAdded, tripID, userID, added)
	s.checkBudget(ctx, userID, *trip)
	return added, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, tripID, expenseID string) error {
	removed, err := s.expenses.DeleteExpense(ctx, userID, tripID, expenseID)
	if err != nil {
		return models.MapStoreError(err, func() *apperrors.AppError { return apperrors.ExpenseNotFound(expenseID) })
	}
	if _, err := s.tracker.ExpenseDeleted(ctx, userID, *removed); err != nil {
		s.log.Warn("Failed to record expense deletion notification", zap.String("expenseID", expenseID), zap.Error(err))
	}
	s.publish(ctx, types.EventTypeExpenseDeleted, tripID, userID, map[string]string{"id": expenseID})
	return nil
}

// publish is best effort: the expense is already stored, so a failed
// broadcast only delays live reports.
func (s *ExpenseService) publish(ctx context.Context, eventType types.EventType, tripID, userID string, payload any) {
	if err := events.PublishChange(ctx, s.publisher, eventType, tripID, userID, payload); err != nil {
		s.log.Warn("Failed to publish expense change",
			zap.String("tripID", tripID),
			zap.String("eventType", string(eventType)),
			zap.Error(err))
	}
}

func (s *ExpenseService) checkBudget(ctx context.Context, userID string, trip types.Trip) {
	list, err := s.expenses.ListExpenses(ctx, userID, trip.ID)
	if err != nil {
		s.log.Warn("Skipping budget check", zap.String("tripID", trip.ID), zap.Error(err))
		return
	}
	result := aggregation.Summarize(aggregation.Input{
		Budget:      trip.TotalBudget,
		Expenses:    list,
		MemberCount: trip.MemberCount(),
	})
	if _, err := s.tracker.CheckBudget(ctx, notification.BudgetState{
		UserID:   userID,
		TripID:   trip.ID,
		TripName: trip.Name,
		Spent:    result.TotalSpent,
		Budget:   trip.TotalBudget,
	}); err != nil {
		s.log.Warn("Budget check failed", zap.String("tripID", trip.ID), zap.Error(err))
	}
}
