package memcache_fx

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfarer/internal/config"
	"wayfarer/internal/infra"
	mem "wayfarer/pkg/memcache"
	"wayfarer/pkg/metrics"
)

var Module = fx.Provide(provideSessionStore, provideRedisClient)

// provideSessionStore runs the idle sweep for the lifetime of the app.
func provideSessionStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) mem.SessionStore {
	store := mem.NewSessions(cfg.SessionTTL, mem.WithLogger(log.Named("sessions")), mem.WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				store.Run(ctx, cfg.SessionSweepInterval)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return store
}

// provideRedisClient yields nil when REDIS_URL is unset.
func provideRedisClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	client, err := infra.InitRedis(context.Background(), cfg.RedisURL, log)
	if err != nil || client == nil {
		return nil, err
	}
	lc.Append(fx.StopHook(client.Close))
	return client, nil
}
