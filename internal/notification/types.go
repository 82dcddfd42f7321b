package notification

import "github.com/NomadCrew/nomad-budget-backend/types"

// EventType is the facade API's notification category.
type EventType string

const (
	EventTypeBudgetAlert   EventType = "BUDGET_ALERT"
	EventTypeTripUpdate    EventType = "TRIP_UPDATE"
	EventTypeExpenseUpdate EventType = "EXPENSE_UPDATE"
	EventTypeTripReminder  EventType = "TRIP_REMINDER"
)

// Priority represents the notification priority level
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Request represents a notification request to the facade API
type Request struct {
	UserID         string         `json:"userId"`
	EventType      EventType      `json:"eventType"`
	Priority       Priority       `json:"priority,omitempty"`
	NotificationID string         `json:"notificationId,omitempty"`
	Data           map[string]any `json:"data"`
}

// Response represents the response from the notification facade API
type Response struct {
	NotificationID string   `json:"notificationId"`
	MessageID      string   `json:"messageId"`
	Status         string   `json:"status"`
	ChannelsUsed   []string `json:"channelsUsed"`
	Error          string   `json:"error,omitempty"`
}

// routeFor maps an in-app notification type to the facade event and priority.
func routeFor(t types.NotificationType) (EventType, Priority) {
	switch t {
	case types.NotificationBudgetOverLimit:
		return EventTypeBudgetAlert, PriorityCritical
	case types.NotificationBudgetThreshold:
		return EventTypeBudgetAlert, PriorityHigh
	case types.NotificationDayBefore, types.NotificationTripDay:
		return EventTypeTripReminder, PriorityHigh
	case types.NotificationExpenseAdded, types.NotificationExpenseDeleted:
		return EventTypeExpenseUpdate, PriorityLow
	default:
		return EventTypeTripUpdate, PriorityMedium
	}
}
