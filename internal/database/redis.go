package database

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a pinged client for cfg. The client is closed when every
// attempt fails.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, attempts uint) (*redis.Client, error) {
	if cfg.Addr() == "" {
		return nil, fmt.Errorf("redis: host is not configured")
	}
	if attempts == 0 {
		attempts = 1
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	err := retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return client.Ping(pctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("attempt %d/%d: redis ping %s failed: %v", n+1, attempts, cfg.Addr(), err)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
