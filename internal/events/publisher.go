// Package events publishes trip change signals and lets live report streams
// subscribe to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
)

// PublishChange builds an event around payload and publishes it. A nil
// publisher is a no-op so services can run without a feed.
func PublishChange(ctx context.Context, publisher types.EventPublisher, eventType types.EventType, tripID, userID string, payload any) error {
	if publisher == nil {
		return nil
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		raw = data
	}

	event := types.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TripID:    tripID,
		UserID:    userID,
		Timestamp: time.Now(),
		Version:   1,
		Payload:   raw,
	}
	if err := publisher.Publish(ctx, tripID, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
