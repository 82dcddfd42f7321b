// Package redisstore implements the notification marker store on Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	"github.com/redis/go-redis/v9"
)

var _ notification.MarkerStore = (*MarkerStore)(nil)

// quotaTTL keeps a daily counter around a little longer than the day it
// counts, so a late reader in another timezone still sees it.
const quotaTTL = 48 * time.Hour

// MarkerStore keeps idempotency markers as plain keys with no expiry and the
// daily counters as INCR keys that expire after quotaTTL.
type MarkerStore struct {
	redis     *redis.Client
	keyPrefix string
}

func NewMarkerStore(client *redis.Client) *MarkerStore {
	return &MarkerStore{
		redis:     client,
		keyPrefix: "budget:",
	}
}

func (s *MarkerStore) markerKey(userID, key string) string {
	return s.keyPrefix + "marker:" + userID + ":" + key
}

func (s *MarkerStore) quotaKey(userID, quotaKey string) string {
	return s.keyPrefix + "quota:" + userID + ":" + quotaKey
}

func (s *MarkerStore) HasMarker(ctx context.Context, userID, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.markerKey(userID, key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking marker %s: %w", key, err)
	}
	return n > 0, nil
}

// SetMarker is SETNX so that a concurrent writer cannot reset the timestamp
// recorded by the first one.
func (s *MarkerStore) SetMarker(ctx context.Context, userID, key string) error {
	value := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.redis.SetNX(ctx, s.markerKey(userID, key), value, 0).Err(); err != nil {
		return fmt.Errorf("setting marker %s: %w", key, err)
	}
	return nil
}

func (s *MarkerStore) QuotaUsed(ctx context.Context, userID, quotaKey string) (int, error) {
	n, err := s.redis.Get(ctx, s.quotaKey(userID, quotaKey)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading quota %s: %w", quotaKey, err)
	}
	return n, nil
}

func (s *MarkerStore) ConsumeQuota(ctx context.Context, userID, quotaKey string) error {
	rKey := s.quotaKey(userID, quotaKey)

	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, rKey)
	pipe.Expire(ctx, rKey, quotaTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("consuming quota %s: %w", quotaKey, err)
	}
	return nil
}
