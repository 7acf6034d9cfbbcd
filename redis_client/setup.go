package redis_client

import (
	"context"
	"fmt"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/logging"
)

// NewRedis connects and pings. A disabled config yields (nil, nil).
func NewRedis(ctx context.Context, cnf Config, logger logging.Logger) (*redis.Client, error) {
	if !cnf.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cnf.Addr(),
		Password: cnf.Password,
		DB:       cnf.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cnf.Addr(), err)
	}

	if logger != nil {
		logger.Info("redis connected", zap.String("redis", redisConfigLogFields(cnf)))
	}
	return client, nil
}

func redisConfigLogFields(cnf Config) string {
	return fmt.Sprintf("addr=%s db=%d password=%s", cnf.Addr(), cnf.DB, redactedPassword(cnf.Password))
}

func redactedPassword(password string) string {
	if password == "" {
		return "<empty>"
	}
	return "[REDACTED]"
}
