// Package service exposes the in-app notification list and the upcoming-trip
// reminder checks.
package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	istore "github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/models"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService defines the notification operations used by handlers
// and the reminder scheduler.
type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]types.Notification, error)
	GetUnreadNotificationCount(ctx context.Context, userID string) (int, error)
	MarkNotificationAsRead(ctx context.Context, userID string, notificationID uuid.UUID) error
	MarkAllNotificationsAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID string, notificationID uuid.UUID) error
	// CheckUpcoming sends due reminders for one user's trips.
	CheckUpcoming(ctx context.Context, userID string) (int, error)
	// SweepUpcoming sends due reminders for every user with a trip starting
	// today or tomorrow.
	SweepUpcoming(ctx context.Context) (int, error)
}

type notificationService struct {
	notifications istore.NotificationStore
	trips         istore.TripStore
	tracker       *notification.Tracker
	logger        *zap.Logger
}

func NewNotificationService(ns istore.NotificationStore, ts istore.TripStore, tracker *notification.Tracker, logger *zap.Logger) NotificationService {
	return &notificationService{
		notifications: ns,
		trips:         ts,
		tracker:       tracker,
		logger:        logger.Named("NotificationService"),
	}
}

func notFound(id uuid.UUID) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.NotFound("Notification", id) }
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]types.Notification, error) {
	list, err := s.notifications.List(ctx, userID, istore.NotificationListOptions{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		return nil, models.MapStoreError(err, notFound(uuid.Nil))
	}
	return list, nil
}

func (s *notificationService) GetUnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	n, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, models.MapStoreError(err, notFound(uuid.Nil))
	}
	return n, nil
}

func (s *notificationService) MarkNotificationAsRead(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return models.MapStoreError(s.notifications.MarkRead(ctx, userID, notificationID), notFound(notificationID))
}

func (s *notificationService) MarkAllNotificationsAsRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, models.MapStoreError(err, notFound(uuid.Nil))
	}
	return n, nil
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return models.MapStoreError(s.notifications.Delete(ctx, userID, notificationID), notFound(notificationID))
}

func (s *notificationService) CheckUpcoming(ctx context.Context, userID string) (int, error) {
	trips, err := s.trips.ListTrips(ctx, userID)
	if err != nil {
		return 0, models.MapStoreError(err, notFound(uuid.Nil))
	}
	return s.tracker.CheckUpcoming(ctx, userID, trips)
}

func (s *notificationService) SweepUpcoming(ctx context.Context) (int, error) {
	start := time.Now()
	today := s.tracker.Today()
	trips, err := s.trips.ListStartingBetween(ctx, today, today.AddDays(1))
	if err != nil {
		return 0, models.MapStoreError(err, notFound(uuid.Nil))
	}

	byUser := make(map[string][]types.Trip)
	var order []string
	for _, t := range trips {
		if _, seen := byUser[t.UserID]; !seen {
			order = append(order, t.UserID)
		}
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}

	var (
		sent int
		errs []error
	)
	for _, userID := range order {
		n, err := s.tracker.CheckUpcoming(ctx, userID, byUser[userID])
		sent += n
		if err != nil {
			s.logger.Warn("Reminder check failed", zap.String("userID", userID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.logger.Info("Upcoming trip sweep finished",
		zap.Int("trips", len(trips)),
		zap.Int("users", len(order)),
		zap.Int("sent", sent),
		zap.Duration("duration", time.Since(start)))
	return sent, errors.Join(errs...)
}
