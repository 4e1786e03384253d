package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis connects to REDIS_URL. An empty URL means no shared cache.
func InitRedis(ctx context.Context, url string, log *zap.Logger) (*redis.Client, error) {
	if url == "" {
		log.Info("REDIS_URL not set, caching POI results in process")
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("Redis connected", zap.String("addr", opts.Addr))
	return client, nil
}
