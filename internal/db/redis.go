package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// AcquireSyncLease takes the per-day sync lease via SETNX. It returns false
// when another run already holds the lease for that day. The TTL bounds how
// long a crashed run can block re-triggers.
func (r *RedisStore) AcquireSyncLease(day, runID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("sync:lease:%s", day)
	ok, err := r.Client.SetNX(r.Ctx, key, runID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lease: %w", err)
	}
	return ok, nil
}

// ReleaseSyncLease drops the per-day sync lease if the given run holds it.
// A lease taken over by a later run (after TTL expiry) is left alone.
func (r *RedisStore) ReleaseSyncLease(day, runID string) error {
	key := fmt.Sprintf("sync:lease:%s", day)
	holder, err := r.Client.Get(r.Ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sync lease: %w", err)
	}
	if holder != runID {
		return nil
	}
	if err := r.Client.Del(r.Ctx, key).Err(); err != nil {
		return fmt.Errorf("release sync lease: %w", err)
	}
	return nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
