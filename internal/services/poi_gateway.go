package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/metrics"
	"wayfarer/pkg/utils"
)

type POIGatewayInterface interface {
	// Search walks the provider chain until one returns places. radius and
	// limit fall back to the configured defaults when zero.
	Search(ctx context.Context, destination string, interests []string, radius, limit int) ([]domain.POI, error)
}

type GatewayOptions struct {
	Timeout       time.Duration
	Retries       int
	Backoff       time.Duration
	DefaultRadius int
	DefaultLimit  int
}

type poiStrategy struct {
	name     string
	provider POIProvider
	reduce   bool
}

type POIGateway struct {
	strategies []poiStrategy
	cache      POICache
	opts       GatewayOptions
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewPOIGateway builds the chain primary -> secondary -> reduced-scope
// primary. A nil secondary is skipped.
func NewPOIGateway(primary, secondary POIProvider, cache POICache, opts GatewayOptions, log *zap.Logger, m *metrics.Metrics) *POIGateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = 5000
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 40
	}
	if log == nil {
		log = zap.NewNop()
	}

	var chain []poiStrategy
	if primary != nil {
		chain = append(chain, poiStrategy{name: primary.Name(), provider: primary})
	}
	if secondary != nil {
		chain = append(chain, poiStrategy{name: secondary.Name(), provider: secondary})
	}
	if primary != nil {
		chain = append(chain, poiStrategy{name: primary.Name() + "-reduced", provider: primary, reduce: true})
	}
	return &POIGateway{strategies: chain, cache: cache, opts: opts, log: log, metrics: m}
}

func (g *POIGateway) Search(ctx context.Context, destination string, interests []string, radius, limit int) ([]domain.POI, error) {
	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("%w: destination is required", utils.ErrInvalidInput)
	}
	q := POIQuery{Destination: destination, Interests: interests, RadiusMeters: radius, Limit: limit}
	if q.RadiusMeters <= 0 {
		q.RadiusMeters = g.opts.DefaultRadius
	}
	if q.Limit <= 0 {
		q.Limit = g.opts.DefaultLimit
	}

	key := poiCacheKey(q)
	if g.cache != nil {
		if pois, ok := g.cache.Get(ctx, key); ok {
			return pois, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var errs []error
	for depth, s := range g.strategies {
		sq := q
		if s.reduce {
			sq.Interests = nil
			sq.RadiusMeters = q.RadiusMeters * 2
		}
		pois, err := g.attempt(ctx, s, sq)
		switch {
		case err != nil:
			g.metrics.ProviderCall(s.name, "error")
			g.log.Warn("poi provider failed", zap.String("provider", s.name), zap.String("destination", destination), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		case len(pois) == 0:
			g.metrics.ProviderCall(s.name, "empty")
			errs = append(errs, fmt.Errorf("%s: no results", s.name))
		default:
			g.metrics.ProviderCall(s.name, "ok")
			g.metrics.FallbackDepth(depth)
			pois = lo.UniqBy(pois, func(p domain.POI) string { return p.SourceLocator })
			if g.cache != nil {
				g.cache.Set(ctx, key, pois)
			}
			return pois, nil
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return nil, utils.NewAppError(utils.KindProviderFailure,
		fmt.Sprintf("I couldn't find places for %s right now. Please try again shortly.", destination),
		fmt.Errorf("%w: %w", utils.ErrProviderExhausted, errors.Join(errs...)))
}

// attempt runs one strategy with bounded retries and exponential backoff.
func (g *POIGateway) attempt(ctx context.Context, s poiStrategy, q POIQuery) ([]domain.POI, error) {
	var lastErr error
	for i := 0; i <= g.opts.Retries; i++ {
		if i > 0 {
			wait := g.opts.Backoff << (i - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		pois, err := s.provider.Search(ctx, q)
		if err == nil {
			return pois, nil
		}
		lastErr = err
		if isPermanent(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}
