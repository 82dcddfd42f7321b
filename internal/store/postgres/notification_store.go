package postgres

import (
	"context"
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ store.NotificationStore = (*NotificationStore)(nil)

const defaultNotificationLimit = 50

// NotificationStore implements store.NotificationStore and is the tracker's
// durable inbox.
type NotificationStore struct {
	db DBTX
}

// NewNotificationStore creates a new PostgreSQL notification store.
func NewNotificationStore(db DBTX) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create inserts n. A row with the same (user_id, key) already present counts
// as success, so a retried enqueue does not duplicate.
func (s *NotificationStore) Create(ctx context.Context, n *types.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, trip_id, key, type, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, key) DO NOTHING`,
		n.ID,
		n.UserID,
		n.TripID,
		n.Key,
		string(n.Type),
		n.Title,
		n.Message,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", mapError(err))
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *NotificationStore) List(ctx context.Context, userID string, opts store.NotificationListOptions) ([]types.Notification, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, trip_id, key, type, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, userID, opts.UnreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", mapError(err))
	}
	defer rows.Close()

	list := []types.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", mapError(err))
	}
	return list, nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", mapError(err))
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking notification read: %w", store.ErrNotFound)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", mapError(err))
	}
	return tag.RowsAffected(), nil
}

func (s *NotificationStore) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting notification: %w", store.ErrNotFound)
	}
	return nil
}

func scanNotification(row pgx.Row) (*types.Notification, error) {
	var (
		n   types.Notification
		typ string
	)
	err := row.Scan(&n.ID, &n.UserID, &n.TripID, &n.Key, &typ, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Type = types.NotificationType(typ)
	return &n, nil
}
