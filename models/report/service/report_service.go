// Package service builds trip reports, their shareable text form, and the
// live report stream.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	istore "github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/models"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportService struct {
	trips     istore.TripStore
	expenses  istore.ExpenseStore
	tracker   *notification.Tracker
	publisher types.EventPublisher
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

func NewReportService(
	trips istore.TripStore,
	expenses istore.ExpenseStore,
	tracker *notification.Tracker,
	publisher types.EventPublisher,
	loc *time.Location,
	logger *zap.Logger,
) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		trips:     trips,
		expenses:  expenses,
		tracker:   tracker,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		log:       logger.Named("ReportService"),
	}
}

// SetClock overrides the time source.
func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

// Report computes the trip's report from the current expense set and runs
// the budget threshold check against it.
func (s *ReportService) Report(ctx context.Context, userID, tripID string) (*aggregation.Report, error) {
	trip, err := s.trips.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, models.MapStoreError(err, func() *apperrors.AppError { return apperrors.TripNotFound(tripID) })
	}
	return s.snapshot(ctx, userID, *trip)
}

func (s *ReportService) snapshot(ctx context.Context, userID string, trip types.Trip) (*aggregation.Report, error) {
	expenses, err := s.expenses.ListExpenses(ctx, userID, trip.ID)
	if err != nil {
		return nil, models.MapStoreError(err, func() *apperrors.AppError { return apperrors.TripNotFound(trip.ID) })
	}

	report := aggregation.ForTrip(trip, expenses, s.now(), s.loc)
	if _, err := s.tracker.CheckBudget(ctx, notification.BudgetState{
		UserID:   userID,
		TripID:   trip.ID,
		TripName: trip.Name,
		Spent:    report.TotalSpent,
		Budget:   report.Budget,
	}); err != nil {
		s.log.Warn("Budget check failed", zap.String("tripID", trip.ID), zap.Error(err))
	}
	return &report, nil
}

// ShareText renders the report as plain text for sharing.
func (s *ReportService) ShareText(ctx context.Context, userID, tripID string) (string, error) {
	report, err := s.Report(ctx, userID, tripID)
	if err != nil {
		return "", err
	}
	return FormatShareText(*report), nil
}

// FormatShareText renders a report as the plain-text summary users share.
func FormatShareText(r aggregation.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trip: %s\n", r.TripName)
	fmt.Fprintf(&b, "Date: %s - %s\n", dayText(r.StartDate.IsZero(), r.StartDate.String()), dayText(r.EndDate.IsZero(), r.EndDate.String()))
	fmt.Fprintf(&b, "Members: %d\n", r.MemberCount)
	fmt.Fprintf(&b, "Budget: ₹%s\n", r.Budget.StringFixed(2))
	fmt.Fprintf(&b, "Total Spent: ₹%s\n", r.TotalSpent.StringFixed(2))
	fmt.Fprintf(&b, "Remaining: ₹%s\n", r.Remaining.StringFixed(2))
	fmt.Fprintf(&b, "Per Person: ₹%s\n", r.PerPersonShare.StringFixed(2))
	b.WriteString("\nExpense Breakdown:")
	for _, c := range r.PerCategory {
		fmt.Fprintf(&b, "\n%s: ₹%s", c.Category, c.Total.StringFixed(2))
	}
	return b.String()
}

func dayText(zero bool, s string) string {
	if zero {
		return "?"
	}
	return s
}

// Live streams a fresh report every time the trip's expenses change. The
// first report is sent immediately. Each change event is only a signal; the
// expense set is re-read and the report rebuilt from scratch. The channel is
// closed when ctx is done.
func (s *ReportService) Live(ctx context.Context, userID, tripID string) (<-chan aggregation.Report, error) {
	if s.publisher == nil {
		return nil, apperrors.New(apperrors.ServiceUnavailableErr, "Live reports are not available", "")
	}
	trip, err := s.trips.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, models.MapStoreError(err, func() *apperrors.AppError { return apperrors.TripNotFound(tripID) })
	}
	first, err := s.snapshot(ctx, userID, *trip)
	if err != nil {
		return nil, err
	}

	subscriberID := userID + ":" + uuid.NewString()
	changes, err := s.publisher.Subscribe(ctx, tripID, subscriberID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	out := make(chan aggregation.Report, 1)
	out <- *first

	go func() {
		defer close(out)
		defer func() {
			if err := s.publisher.Unsubscribe(context.Background(), tripID, subscriberID); err != nil {
				s.log.Debug("Unsubscribe after live report", zap.String("subscriber", subscriberID), zap.Error(err))
			}
		}()

		current := *trip
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-changes:
				if !ok {
					return
				}
				switch ev.Type {
				case types.EventTypeTripDeleted:
					return
				case types.EventTypeTripUpdated:
					if t, err := s.trips.GetTrip(ctx, userID, tripID); err == nil {
						current = *t
					}
				}
				report, err := s.snapshot(ctx, userID, current)
				if err != nil {
					s.log.Warn("Live report refresh failed", zap.String("tripID", tripID), zap.Error(err))
					continue
				}
				select {
				case out <- *report:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
