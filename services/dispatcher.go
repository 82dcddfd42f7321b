package services

import (
	"context"
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	"github.com/NomadCrew/nomad-budget-backend/types"
)

// DispatchSink hands notifications to the worker pool so external delivery
// never blocks the request that triggered it.
type DispatchSink struct {
	pool *WorkerPool
	sink notification.Sink
}

func NewDispatchSink(pool *WorkerPool, sink notification.Sink) *DispatchSink {
	return &DispatchSink{pool: pool, sink: sink}
}

// Emit queues delivery and returns immediately. The caller's context is not
// carried into the job; the pool supplies its own deadline.
func (d *DispatchSink) Emit(_ context.Context, n types.Notification) error {
	ok := d.pool.Submit(Job{
		Name: fmt.Sprintf("notify:%s:%s", n.Type, n.UserID),
		Execute: func(ctx context.Context) error {
			return d.sink.Emit(ctx, n)
		},
	})
	if !ok {
		return ErrQueueFull
	}
	return nil
}
