// Package sqlite provides a file-backed notification marker store for
// single-node deployments that run without Redis.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	_ "modernc.org/sqlite" // register sqlite driver
)

var _ notification.MarkerStore = (*MarkerStore)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notification_markers (
	user_id    TEXT NOT NULL,
	key        TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (user_id, key)
);

CREATE TABLE IF NOT EXISTS notification_quota (
	user_id   TEXT NOT NULL,
	quota_key TEXT NOT NULL,
	used      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, quota_key)
);
`

// MarkerStore implements notification.MarkerStore on SQLite.
type MarkerStore struct {
	db *sql.DB
}

// Open opens or creates the marker database at dbPath.
func Open(dbPath string) (*MarkerStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating marker db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening marker db: %w", err)
	}
	// One writer keeps the upserts below serialised.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &MarkerStore{db: db}, nil
}

func (s *MarkerStore) Close() error {
	return s.db.Close()
}

func (s *MarkerStore) HasMarker(ctx context.Context, userID, key string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_markers WHERE user_id = ? AND key = ?)`,
		userID, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking marker %s: %w", key, err)
	}
	return exists == 1, nil
}

func (s *MarkerStore) SetMarker(ctx context.Context, userID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notification_markers (user_id, key, created_at) VALUES (?, ?, ?)`,
		userID, key, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("setting marker %s: %w", key, err)
	}
	return nil
}

func (s *MarkerStore) QuotaUsed(ctx context.Context, userID, quotaKey string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT used FROM notification_quota WHERE user_id = ? AND quota_key = ?), 0)`,
		userID, quotaKey).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("reading quota %s: %w", quotaKey, err)
	}
	return used, nil
}

func (s *MarkerStore) ConsumeQuota(ctx context.Context, userID, quotaKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_quota (user_id, quota_key, used) VALUES (?, ?, 1)
		ON CONFLICT (user_id, quota_key) DO UPDATE SET used = used + 1`,
		userID, quotaKey)
	if err != nil {
		return fmt.Errorf("consuming quota %s: %w", quotaKey, err)
	}
	return nil
}
