package services

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"go.uber.org/zap"
)

// UpcomingSweeper is satisfied by the notification service.
type UpcomingSweeper interface {
	SweepUpcoming(ctx context.Context) (int, error)
}

// ReminderScheduler runs the upcoming-trip sweep on a fixed interval.
type ReminderScheduler struct {
	sweeper  UpcomingSweeper
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReminderScheduler(sweeper UpcomingSweeper, interval time.Duration) *ReminderScheduler {
	return &ReminderScheduler{
		sweeper:  sweeper,
		interval: interval,
		timeout:  time.Minute,
		log:      logger.Named("ReminderScheduler"),
	}
}

// Start sweeps once immediately, then every interval until Stop or ctx ends.
// A non-positive interval leaves the scheduler idle.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 || s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info("Reminder sweep started", zap.Duration("interval", s.interval))
}

func (s *ReminderScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReminderScheduler) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sent, err := s.sweeper.SweepUpcoming(sweepCtx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("Reminder sweep failed", zap.Error(err))
		}
		return
	}
	if sent > 0 {
		s.log.Info("Reminder sweep finished", zap.Int("sent", sent))
	}
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
