package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kyc-ledger/internal/domain"
)

// Resolver is what Cached wraps.
type Resolver interface {
	ResolveUser(ctx context.Context, userID string) (domain.UserRef, error)
}

type cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const keyPrefix = "kyc:user:"

// Cached keeps the role of existing users in Redis. Unknown users are never
// cached so a new registration is visible immediately. Redis errors fall
// through to the inner resolver.
type Cached struct {
	inner Resolver
	cache cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCached(inner Resolver, c cache, ttl time.Duration, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	return &Cached{inner: inner, cache: c, ttl: ttl, log: log}
}

func (c *Cached) ResolveUser(ctx context.Context, userID string) (domain.UserRef, error) {
	key := keyPrefix + userID
	role, err := c.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		return domain.UserRef{ID: userID, Role: role, Exists: true}, nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn("directory cache read failed", "user_id", userID, "err", err)
	}

	ref, err := c.inner.ResolveUser(ctx, userID)
	if err != nil || !ref.Exists {
		return ref, err
	}
	if err := c.cache.Set(ctx, key, ref.Role, c.ttl).Err(); err != nil {
		c.log.Warn("directory cache write failed", "user_id", userID, "err", err)
	}
	return ref, nil
}

// Invalidate drops the cached entry after a role or enable change.
func (c *Cached) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Del(ctx, keyPrefix+userID).Err()
}
