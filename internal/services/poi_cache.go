package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

// POICache stores gateway results by query. Misses and backend errors look
// the same to the caller; the gateway then asks the providers.
type POICache interface {
	Get(ctx context.Context, key string) ([]domain.POI, bool)
	Set(ctx context.Context, key string, pois []domain.POI)
}

func poiCacheKey(q POIQuery) string {
	tags := lo.Uniq(lo.Map(q.Interests, func(s string, _ int) string { return utils.NormalizeTag(s) }))
	sort.Strings(tags)
	return fmt.Sprintf("poi:%s|%s|%d|%d",
		utils.NormalizeTag(q.Destination), strings.Join(tags, ","), q.RadiusMeters, q.Limit)
}

type memoryPOICache struct {
	c *cache.Cache
}

// NewMemoryPOICache keeps results in-process with a TTL.
func NewMemoryPOICache(ttl time.Duration) POICache {
	return &memoryPOICache{c: cache.New(ttl, 2*ttl)}
}

func (m *memoryPOICache) Get(_ context.Context, key string) ([]domain.POI, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	pois, ok := v.([]domain.POI)
	if !ok {
		return nil, false
	}
	return append([]domain.POI(nil), pois...), true
}

func (m *memoryPOICache) Set(_ context.Context, key string, pois []domain.POI) {
	m.c.SetDefault(key, append([]domain.POI(nil), pois...))
}

type redisPOICache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisPOICache shares results between processes.
func NewRedisPOICache(client *redis.Client, ttl time.Duration, log *zap.Logger) POICache {
	if log == nil {
		log = zap.NewNop()
	}
	return &redisPOICache{client: client, ttl: ttl, log: log}
}

func (r *redisPOICache) Get(ctx context.Context, key string) ([]domain.POI, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("poi cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var pois []domain.POI
	if err := json.Unmarshal(raw, &pois); err != nil {
		r.log.Warn("poi cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return pois, true
}

func (r *redisPOICache) Set(ctx context.Context, key string, pois []domain.POI) {
	raw, err := json.Marshal(pois)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.log.Warn("poi cache write failed", zap.String("key", key), zap.Error(err))
	}
}
