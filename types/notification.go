package types

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationBudgetThreshold NotificationType = "budget-threshold"
	NotificationBudgetOverLimit NotificationType = "budget-overlimit"
	NotificationTripCreated     NotificationType = "trip-creation"
	NotificationTripUpdated     NotificationType = "trip-update"
	NotificationTripDeleted     NotificationType = "trip-deletion"
	NotificationExpenseAdded    NotificationType = "expense-added"
	NotificationExpenseDeleted  NotificationType = "expense-deleted"
	NotificationDayBefore       NotificationType = "day-before"
	NotificationTripDay         NotificationType = "trip-day"
)

// Notification is an entry in a user's in-app notification list. Key is the
// idempotency key that produced it.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    string           `json:"userId"`
	TripID    string           `json:"tripId,omitempty"`
	Key       string           `json:"key"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
