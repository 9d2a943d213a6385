package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikeservice/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	presenceUserPrefix = "presence:user:"
	presenceConnPrefix = "presence:conn:"
	rateLimitPrefix    = "rate_limit:"
)

// unregisterScript drops the connection and clears the user mapping only if it still points at it.
var unregisterScript = redis.NewScript(`
local user = redis.call("GET", KEYS[1])
redis.call("DEL", KEYS[1])
if not user then
  return 0
end
local userKey = ARGV[1] .. user
if redis.call("GET", userKey) == ARGV[2] then
  redis.call("DEL", userKey)
end
return 1
`)

type RedisPresenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisPresenceRepository(client *redis.Client, ttl time.Duration) *RedisPresenceRepository {
	return &RedisPresenceRepository{
		client: client,
		ttl:    ttl,
	}
}

// Register maps userID to connectionID, replacing any previous connection of the user.
func (r *RedisPresenceRepository) Register(ctx context.Context, userID, connectionID string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	userKey := presenceUserPrefix + userID

	previous, err := r.client.Get(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read presence: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" && previous != connectionID {
			pipe.Del(ctx, presenceConnPrefix+previous)
		}
		pipe.Set(ctx, userKey, connectionID, r.ttl)
		pipe.Set(ctx, presenceConnPrefix+connectionID, userID, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) Lookup(ctx context.Context, userID string) (string, bool, error) {
	if r.client == nil {
		return "", false, errors.New("redis client is nil")
	}
	conn, err := r.client.Get(ctx, presenceUserPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to lookup presence: %w", err)
	}
	return conn, true, nil
}

func (r *RedisPresenceRepository) Unregister(ctx context.Context, connectionID string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	err := unregisterScript.Run(ctx, r.client,
		[]string{presenceConnPrefix + connectionID}, presenceUserPrefix, connectionID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to unregister presence: %w", err)
	}
	return nil
}

// CheckRateLimit counts a hit for key in a fixed window and reports whether it is within limit.
func (r *RedisPresenceRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client is nil")
	}
	redisKey := rateLimitPrefix + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, redisKey, window)
	}

	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
