package notification

import (
	"context"

	"github.com/NomadCrew/nomad-budget-backend/types"
)

// MarkerStore persists idempotency markers and per-day emission counters.
// Markers are permanent; a key that has been set is never cleared.
type MarkerStore interface {
	HasMarker(ctx context.Context, userID, key string) (bool, error)
	SetMarker(ctx context.Context, userID, key string) error
	// QuotaUsed returns how many notifications were emitted under quotaKey.
	QuotaUsed(ctx context.Context, userID, quotaKey string) (int, error)
	// ConsumeQuota records one more emission under quotaKey.
	ConsumeQuota(ctx context.Context, userID, quotaKey string) error
}

// Inbox is the durable in-app notification list. Create is the enqueue step:
// once it succeeds the notification exists for the user.
type Inbox interface {
	Create(ctx context.Context, n *types.Notification) error
}

// Sink delivers a notification outside the app (push, email, facade API).
// Delivery is best-effort.
type Sink interface {
	Emit(ctx context.Context, n types.Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n types.Notification) error

func (f SinkFunc) Emit(ctx context.Context, n types.Notification) error {
	return f(ctx, n)
}
