package notification

import (
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
)

// Thresholds are the budget percentages that each fire once per trip.
var Thresholds = []int{50, 60, 70, 80, 90, 100}

// DefaultDailyLimit caps emissions per user per calendar day.
const DefaultDailyLimit = 10

func thresholdKey(tripID string, threshold int) string {
	return fmt.Sprintf("budget-threshold-%s-%d", tripID, threshold)
}

func quotaKey(day timestamp.Day) string {
	return "noti-count-" + day.String()
}

func tripCreatedKey(tripID string, at time.Time) string {
	return fmt.Sprintf("trip-creation-%s-%d", tripID, at.UnixNano())
}

func tripUpdatedKey(tripID string, at time.Time) string {
	return fmt.Sprintf("trip-update-%s-%d", tripID, at.UnixNano())
}

func tripDeletedKey(tripID string) string {
	return "trip-deleted-" + tripID
}

func expenseAddedKey(expenseID string) string {
	return "expense-added-" + expenseID
}

func expenseDeletedKey(expenseID string) string {
	return "expense-deleted-" + expenseID
}

func upcomingTomorrowKey(tripID string) string {
	return "trip-upcoming-tomorrow-" + tripID
}

func startTodayKey(tripID string) string {
	return "trip-start-today-" + tripID
}
