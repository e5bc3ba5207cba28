package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pairly/pairly-backend/internal/config"
)

// statsTTL keeps admin counters fresh enough without hitting the DB on
// every dashboard refresh.
const statsTTL = 30 * time.Second

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForBan generates the Redis key caching a user's ban status.
func (c *RedisCache) KeyForBan(userID uint64) string {
	return fmt.Sprintf("ban:%d", userID)
}

// SetBanned caches a positive ban verdict. The TTL is clamped to the
// remaining ban duration so the cache can never outlive the ban itself.
func (c *RedisCache) SetBanned(ctx context.Context, userID uint64, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.Client.Set(ctx, c.KeyForBan(userID), "1", ttl).Err()
}

// GetBanned returns (banned, found). A cache miss is not an error.
func (c *RedisCache) GetBanned(ctx context.Context, userID uint64) (bool, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForBan(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// ClearBan drops a cached ban verdict after an unban.
func (c *RedisCache) ClearBan(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForBan(userID)).Err()
}

// KeyForStat generates the Redis key for an admin dashboard counter.
func (c *RedisCache) KeyForStat(name string) string {
	return "stats:" + name
}

func (c *RedisCache) SetStat(ctx context.Context, name string, count int64) error {
	return c.Client.Set(ctx, c.KeyForStat(name), count, statsTTL).Err()
}

// GetStat returns (count, found). A cache miss is not an error.
func (c *RedisCache) GetStat(ctx context.Context, name string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForStat(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}
