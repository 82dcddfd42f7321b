// Package notification decides when a user should be told about budget
// thresholds, trip and expense changes, and upcoming trips. Every notification
// has an idempotency key and fires at most once per key, subject to a daily
// per-user quota.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/pkg/valueobjects"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Suppression reasons reported in metrics.
const (
	reasonDuplicate = "duplicate"
	reasonQuota     = "quota"
)

// Event is one notification the caller would like to send.
type Event struct {
	UserID  string
	TripID  string
	Key     string
	Type    types.NotificationType
	Title   string
	Message string
}

// BudgetState is the spend of one trip at the time of a check.
type BudgetState struct {
	UserID   string
	TripID   string
	TripName string
	Spent    decimal.Decimal
	Budget   decimal.Decimal
}

type trackerMetrics struct {
	emitted    *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

func newTrackerMetrics(reg prometheus.Registerer) *trackerMetrics {
	factory := promauto.With(reg)
	return &trackerMetrics{
		emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_notifications_emitted_total",
			Help: "Notifications written to the inbox, by type",
		}, []string{"type"}),
		suppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_notifications_suppressed_total",
			Help: "Notifications skipped because of an existing marker or an exhausted quota",
		}, []string{"reason"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_notifications_failures_total",
			Help: "Errors by stage (marker, quota, inbox, sink)",
		}, []string{"stage"}),
	}
}

// Tracker is safe for concurrent use as long as the MarkerStore is; the
// check-then-set on a key assumes a single writer per user.
type Tracker struct {
	markers    MarkerStore
	inbox      Inbox
	sink       Sink
	now        func() time.Time
	loc        *time.Location
	dailyLimit int
	log        *zap.Logger
	metrics    *trackerMetrics
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSink sets where notifications are delivered after they are enqueued.
func WithSink(s Sink) Option {
	return func(t *Tracker) { t.sink = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone that defines calendar days for quotas and
// reminders.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithDailyLimit overrides DefaultDailyLimit.
func WithDailyLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.dailyLimit = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithRegisterer registers the tracker's metrics. Without it the metrics are
// collected but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(t *Tracker) { t.metrics = newTrackerMetrics(reg) }
}

// NewTracker returns a Tracker backed by markers and inbox.
func NewTracker(markers MarkerStore, inbox Inbox, opts ...Option) *Tracker {
	t := &Tracker{
		markers:    markers,
		inbox:      inbox,
		now:        time.Now,
		loc:        time.UTC,
		dailyLimit: DefaultDailyLimit,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sink == nil {
		t.sink = NewLogSink()
	}
	if t.metrics == nil {
		t.metrics = newTrackerMetrics(nil)
	}
	t.log = t.log.Named("tracker")
	return t
}

// Today is the current calendar day in the tracker's location.
func (t *Tracker) Today() timestamp.Day {
	return timestamp.DayOf(t.now(), t.loc)
}

// QuotaRemaining is how many more notifications userID may receive today.
func (t *Tracker) QuotaRemaining(ctx context.Context, userID string) (int, error) {
	used, err := t.markers.QuotaUsed(ctx, userID, quotaKey(t.Today()))
	if err != nil {
		return 0, err
	}
	if used >= t.dailyLimit {
		return 0, nil
	}
	return t.dailyLimit - used, nil
}

// NotifyOnce emits ev unless its key was already used or today's quota is
// spent. The notification is enqueued in the inbox before the marker is set,
// so an inbox failure leaves the key free for a retry. Sink delivery happens
// last and its failure is only logged. It reports whether ev was emitted.
func (t *Tracker) NotifyOnce(ctx context.Context, ev Event) (bool, error) {
	if ev.UserID == "" || ev.Key == "" {
		return false, fmt.Errorf("notification requires a user and a key")
	}

	seen, err := t.markers.HasMarker(ctx, ev.UserID, ev.Key)
	if err != nil {
		t.metrics.failures.WithLabelValues("marker").Inc()
		return false, fmt.Errorf("checking marker %s: %w", ev.Key, err)
	}
	if seen {
		t.metrics.suppressed.WithLabelValues(reasonDuplicate).Inc()
		return false, nil
	}

	day := t.Today()
	remaining, err := t.QuotaRemaining(ctx, ev.UserID)
	if err != nil {
		t.metrics.failures.WithLabelValues("quota").Inc()
		return false, fmt.Errorf("reading daily quota: %w", err)
	}
	if remaining <= 0 {
		t.metrics.suppressed.WithLabelValues(reasonQuota).Inc()
		t.log.Debug("Daily notification quota exhausted",
			zap.String("userID", ev.UserID),
			zap.String("key", ev.Key))
		return false, nil
	}

	n := types.Notification{
		ID:        uuid.New(),
		UserID:    ev.UserID,
		TripID:    ev.TripID,
		Key:       ev.Key,
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		CreatedAt: t.now().UTC(),
	}
	if err := t.inbox.Create(ctx, &n); err != nil {
		t.metrics.failures.WithLabelValues("inbox").Inc()
		return false, fmt.Errorf("enqueueing notification %s: %w", ev.Key, err)
	}

	if err := t.markers.SetMarker(ctx, ev.UserID, ev.Key); err != nil {
		t.metrics.failures.WithLabelValues("marker").Inc()
		t.log.Error("Failed to set notification marker after enqueue",
			zap.String("key", ev.Key), zap.Error(err))
	}
	if err := t.markers.ConsumeQuota(ctx, ev.UserID, quotaKey(day)); err != nil {
		t.metrics.failures.WithLabelValues("quota").Inc()
		t.log.Error("Failed to record daily quota",
			zap.String("userID", ev.UserID), zap.Error(err))
	}

	if err := t.sink.Emit(ctx, n); err != nil {
		t.metrics.failures.WithLabelValues("sink").Inc()
		t.log.Warn("Notification delivery failed",
			zap.String("key", ev.Key), zap.Error(err))
	}

	t.metrics.emitted.WithLabelValues(string(ev.Type)).Inc()
	return true, nil
}

// CheckBudget fires every threshold that floor(percent spent) has reached and
// that has not fired before for this trip. It returns the thresholds emitted.
func (t *Tracker) CheckBudget(ctx context.Context, s BudgetState) ([]int, error) {
	if !s.Budget.IsPositive() {
		return nil, nil
	}
	percent := aggregation.PercentOf(s.Spent, s.Budget)
	reached := percent.Floor().IntPart()

	var fired []int
	for _, threshold := range Thresholds {
		if reached < int64(threshold) {
			break
		}
		typ := types.NotificationBudgetThreshold
		if threshold == 100 {
			typ = types.NotificationBudgetOverLimit
		}
		ok, err := t.NotifyOnce(ctx, Event{
			UserID:  s.UserID,
			TripID:  s.TripID,
			Key:     thresholdKey(s.TripID, threshold),
			Type:    typ,
			Title:   fmt.Sprintf("Budget Alert for %s", s.TripName),
			Message: budgetMessage(percent, s.Spent, s.Budget),
		})
		if err != nil {
			return fired, err
		}
		if ok {
			fired = append(fired, threshold)
		}
	}
	return fired, nil
}

func budgetMessage(percent, spent, budget decimal.Decimal) string {
	return fmt.Sprintf("You've used %s%% of your budget (%s of %s).",
		percent.Round(0).String(),
		valueobjects.FormatINR(spent),
		valueobjects.FormatINR(budget))
}

// CheckUpcoming sends the "starts today" and "starts tomorrow" reminders for
// trips. It is safe to call any number of times; each reminder fires once.
func (t *Tracker) CheckUpcoming(ctx context.Context, userID string, trips []types.Trip) (int, error) {
	today := t.Today()
	tomorrow := today.AddDays(1)

	var (
		sent int
		errs []error
	)
	for _, trip := range trips {
		var ev Event
		switch trip.StartDate {
		case today:
			ev = Event{
				Key:     startTodayKey(trip.ID),
				Type:    types.NotificationTripDay,
				Title:   "Trip Starts Today",
				Message: fmt.Sprintf("Your trip %q starts today!", tripName(trip)),
			}
		case tomorrow:
			ev = Event{
				Key:     upcomingTomorrowKey(trip.ID),
				Type:    types.NotificationDayBefore,
				Title:   "Trip Starts Tomorrow",
				Message: fmt.Sprintf("Your trip %q starts tomorrow!", tripName(trip)),
			}
		default:
			continue
		}
		ev.UserID = userID
		ev.TripID = trip.ID

		ok, err := t.NotifyOnce(ctx, ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

// TripCreated announces a new trip. The key carries the creation instant so
// recreating a trip with the same id announces again.
func (t *Tracker) TripCreated(ctx context.Context, userID string, trip types.Trip) (bool, error) {
	return t.NotifyOnce(ctx, Event{
		UserID:  userID,
		TripID:  trip.ID,
		Key:     tripCreatedKey(trip.ID, t.now()),
		Type:    types.NotificationTripCreated,
		Title:   "Trip Created",
		Message: fmt.Sprintf("Trip %q has been created successfully!", tripName(trip)),
	})
}

// TripUpdated announces an edit. Every edit has its own key.
func (t *Tracker) TripUpdated(ctx context.Context, userID string, trip types.Trip) (bool, error) {
	return t.NotifyOnce(ctx, Event{
		UserID:  userID,
		TripID:  trip.ID,
		Key:     tripUpdatedKey(trip.ID, t.now()),
		Type:    types.NotificationTripUpdated,
		Title:   "Trip Updated",
		Message: fmt.Sprintf("Trip %q has been updated successfully!", tripName(trip)),
	})
}

// TripDeleted announces a deletion. Ids are never reused after deletion, so
// the key has no timestamp.
func (t *Tracker) TripDeleted(ctx context.Context, userID string, trip types.Trip) (bool, error) {
	return t.NotifyOnce(ctx, Event{
		UserID:  userID,
		TripID:  trip.ID,
		Key:     tripDeletedKey(trip.ID),
		Type:    types.NotificationTripDeleted,
		Title:   "Trip Deleted",
		Message: fmt.Sprintf("%q has been deleted successfully.", tripName(trip)),
	})
}

// ExpenseAdded announces a new expense on a trip.
func (t *Tracker) ExpenseAdded(ctx context.Context, userID string, trip types.Trip, e types.Expense) (bool, error) {
	return t.NotifyOnce(ctx, Event{
		UserID: userID,
		TripID: trip.ID,
		Key:    expenseAddedKey(e.ID),
		Type:   types.NotificationExpenseAdded,
		Title:  "Expense Added",
		Message: fmt.Sprintf("%q (%s) was added to %s.",
			expenseName(e), valueobjects.FormatINR(e.Amount), tripName(trip)),
	})
}

// ExpenseDeleted announces a removed expense.
func (t *Tracker) ExpenseDeleted(ctx context.Context, userID string, e types.Expense) (bool, error) {
	return t.NotifyOnce(ctx, Event{
		UserID:  userID,
		TripID:  e.TripID,
		Key:     expenseDeletedKey(e.ID),
		Type:    types.NotificationExpenseDeleted,
		Title:   "Expense Deleted",
		Message: fmt.Sprintf("%q has been deleted successfully.", expenseName(e)),
	})
}

func tripName(trip types.Trip) string {
	if trip.Name == "" {
		return "Upcoming Trip"
	}
	return trip.Name
}

func expenseName(e types.Expense) string {
	if e.Title == "" {
		return "this expense"
	}
	return e.Title
}
