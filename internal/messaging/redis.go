// Package messaging wraps the Redis client used to fan audit events out to other processes.
package messaging

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/config"
)

var errNotConfigured = errors.New("redis client not configured")

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. An unreachable server is logged,
// not fatal: audit fan-out degrades while the request path keeps working.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

// Publish sends payload on channel and returns the number of receivers.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, errNotConfigured
	}
	return r.Client.Publish(ctx, channel, payload).Result()
}
