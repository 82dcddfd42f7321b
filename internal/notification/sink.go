package notification

import (
	"context"
	"errors"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"go.uber.org/zap"
)

// LogSink writes notifications to the log. It is the fallback when no
// delivery channel is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.Named("notification-sink")}
}

func (s *LogSink) Emit(_ context.Context, n types.Notification) error {
	s.log.Info("Notification",
		zap.String("userID", n.UserID),
		zap.String("type", string(n.Type)),
		zap.String("title", n.Title),
		zap.String("message", n.Message))
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, n types.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
