package config

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// GetRedisDB returns the Redis client, or nil when Redis is not configured
func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns the distributed lock client, or nil when Redis is not configured
func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedis connects to REDIS_URL with a bounded number of attempts.
// It is a no-op when no URL is configured.
func ConnectRedis(ctx context.Context, cfg *Config) error {
	if cfg.RedisURL == "" {
		GetLogger().Info("REDIS_URL not set; using in-process cache and locks")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	const maxAttempts = 5
	for attempt := 1; ; attempt++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			break
		}
		if attempt == maxAttempts {
			_ = client.Close()
			return fmt.Errorf("failed to connect redis after %d attempts: %w", attempt, err)
		}
		sleep := time.Second * time.Duration(1<<attempt)
		GetLogger().WithFields(map[string]any{
			"attempt": attempt,
			"addr":    opts.Addr,
		}).Warnf("failed to connect redis: %v; retrying in %s", err, sleep)
		select {
		case <-ctx.Done():
			_ = client.Close()
			return ctx.Err()
		case <-time.After(sleep):
		}
	}

	rdb = client
	locker = redislock.New(rdb)
	GetLogger().WithField("addr", opts.Addr).Info("connected to redis")
	return nil
}

// CloseRedis releases the Redis client if one was opened
func CloseRedis() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb, locker = nil, nil
	return err
}
