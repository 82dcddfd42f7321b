package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/redis/go-redis/v9"
)

// UserDirectory remembers the contact details carried in access tokens so
// background jobs can address users without calling the auth provider.
type UserDirectory interface {
	Remember(ctx context.Context, user types.User) error
	Lookup(ctx context.Context, userID string) (types.User, bool, error)
}

// RedisUserDirectory stores one hash per user.
type RedisUserDirectory struct {
	redis     *redis.Client
	keyPrefix string
}

func NewRedisUserDirectory(rdb *redis.Client) *RedisUserDirectory {
	return &RedisUserDirectory{redis: rdb, keyPrefix: "budget:user:"}
}

func (d *RedisUserDirectory) key(userID string) string {
	return d.keyPrefix + userID
}

func (d *RedisUserDirectory) Remember(ctx context.Context, user types.User) error {
	if user.UID == "" {
		return errors.New("user id is required")
	}
	err := d.redis.HSet(ctx, d.key(user.UID),
		"email", user.Email,
		"displayName", user.DisplayName,
	).Err()
	if err != nil {
		return fmt.Errorf("remember user %s: %w", user.UID, err)
	}
	return nil
}

func (d *RedisUserDirectory) Lookup(ctx context.Context, userID string) (types.User, bool, error) {
	vals, err := d.redis.HGetAll(ctx, d.key(userID)).Result()
	if err != nil {
		return types.User{}, false, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	if len(vals) == 0 {
		return types.User{}, false, nil
	}
	return types.User{
		UID:         userID,
		Email:       vals["email"],
		DisplayName: vals["displayName"],
	}, true, nil
}
