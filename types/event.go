package types

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// EventType names a change to a trip or its expense set.
type EventType string

const (
	EventTypeTripCreated    EventType = "TRIP_CREATED"
	EventTypeTripUpdated    EventType = "TRIP_UPDATED"
	EventTypeTripDeleted    EventType = "TRIP_DELETED"
	EventTypeExpenseAdded   EventType = "EXPENSE_ADDED"
	EventTypeExpenseDeleted EventType = "EXPENSE_DELETED"
)

// Event is published on every write to a trip. Subscribers treat it as a
// signal only and re-read the full expense set.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	TripID    string          `json:"tripId"`
	UserID    string          `json:"userId"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.TripID == "" {
		return errors.New("trip id is required")
	}
	return nil
}

// EventPublisher fans out trip change events.
type EventPublisher interface {
	Publish(ctx context.Context, tripID string, event Event) error
	Subscribe(ctx context.Context, tripID, subscriberID string) (<-chan Event, error)
	Unsubscribe(ctx context.Context, tripID, subscriberID string) error
	Shutdown(ctx context.Context) error
}
