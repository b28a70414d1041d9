package utils

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"bookiovoice/config"
)

// NewCacheClient connects to the Redis DB holding the shared catalog tier.
func NewCacheClient(cfg *config.Config, logger *zap.Logger) *redis.Client {
	return newRedisClient(cfg, cfg.RedisCacheDB, "Cache", logger)
}

// NewQueueClient connects to the Redis DB shared with the booking request worker.
func NewQueueClient(cfg *config.Config, logger *zap.Logger) *redis.Client {
	return newRedisClient(cfg, cfg.RedisQueueDB, "Queue", logger)
}

// Redis is optional: without REDIS_ADDR, or when the server does not answer,
// nil is returned and callers fall back to in-process behavior.
func newRedisClient(cfg *config.Config, db int, purpose string, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, continuing without it",
			zap.String("purpose", purpose), zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
