package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

// TravelEstimator returns the travel minutes of each consecutive leg of a
// route: out[0] is always 0 and out[i] is points[i-1] -> points[i].
type TravelEstimator interface {
	Legs(ctx context.Context, points []domain.GeoPoint, mode domain.TravelMode) []int
}

// HaversineEstimator uses straight-line distance and an average speed per mode.
type HaversineEstimator struct{}

func (HaversineEstimator) Legs(_ context.Context, points []domain.GeoPoint, mode domain.TravelMode) []int {
	out := make([]int, len(points))
	for i := 1; i < len(points); i++ {
		out[i] = utils.TravelMinutes(points[i-1], points[i], mode)
	}
	return out
}

// --------- in-memory cache by (mode, A, B) ---------

type pairKey struct {
	Mode string
	A    string
	B    string
}

func (k pairKey) String() string { return k.Mode + "|" + k.A + "|" + k.B }

type MatrixPairCache interface {
	Get(k pairKey) (int, bool)
	Set(k pairKey, minutes int, ttl time.Duration)
}

const pairCacheCleanup = time.Hour

type inMemoryPairCache struct {
	c *cache.Cache
}

// NewInMemoryPairCache keeps directional leg durations in-process; every
// Set carries its own TTL.
func NewInMemoryPairCache() MatrixPairCache {
	return &inMemoryPairCache{c: cache.New(cache.NoExpiration, pairCacheCleanup)}
}

func (p *inMemoryPairCache) Get(k pairKey) (int, bool) {
	v, ok := p.c.Get(k.String())
	if !ok {
		return 0, false
	}
	minutes, ok := v.(int)
	return minutes, ok
}

func (p *inMemoryPairCache) Set(k pairKey, minutes int, ttl time.Duration) {
	p.c.Set(k.String(), minutes, ttl)
}

// -------------- Mapbox Matrix client (durations) ---------------

var mapboxProfiles = map[domain.TravelMode]string{
	domain.ModeWalking: "walking",
	domain.ModeCycling: "cycling",
	domain.ModeDriving: "driving",
}

// MapboxMatrixClient asks the Mapbox Matrix API for leg durations and falls
// back to the haversine estimate for transit, for unknown pairs and on errors.
type MapboxMatrixClient struct {
	HTTP        *http.Client
	BaseURL     string
	AccessToken string
	Cache       MatrixPairCache
	DefaultTTL  time.Duration
	Fallback    TravelEstimator
	Log         *zap.Logger
}

func NewMapboxMatrixClient(token string, pairs MatrixPairCache, log *zap.Logger) *MapboxMatrixClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &MapboxMatrixClient{
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		BaseURL:     "https://api.mapbox.com",
		AccessToken: token,
		Cache:       pairs,
		DefaultTTL:  7 * 24 * time.Hour,
		Fallback:    HaversineEstimator{},
		Log:         log,
	}
}

func pointID(p domain.GeoPoint) string {
	return fmt.Sprintf("%.5f,%.5f", p.Lng, p.Lat)
}

func (c *MapboxMatrixClient) Legs(ctx context.Context, points []domain.GeoPoint, mode domain.TravelMode) []int {
	fallback := c.Fallback.Legs(ctx, points, mode)
	profile, ok := mapboxProfiles[mode]
	if !ok || len(points) < 2 {
		return fallback
	}

	out := make([]int, len(points))
	needCall := false
	for i := 1; i < len(points); i++ {
		if v, ok := c.Cache.Get(pairKey{Mode: profile, A: pointID(points[i-1]), B: pointID(points[i])}); ok {
			out[i] = v
		} else {
			needCall = true
		}
	}
	if !needCall {
		return out
	}

	durations, err := c.fetch(ctx, profile, points)
	if err != nil {
		c.Log.Warn("mapbox matrix failed, using straight-line estimate", zap.Error(err))
		return fallback
	}
	for i := 1; i < len(points); i++ {
		out[i] = fallback[i]
		if i-1 < len(durations) && i < len(durations[i-1]) && durations[i-1][i] != nil {
			out[i] = int(math.Ceil(*durations[i-1][i] / 60))
			c.Cache.Set(pairKey{Mode: profile, A: pointID(points[i-1]), B: pointID(points[i])}, out[i], c.DefaultTTL)
		}
	}
	return out
}

func (c *MapboxMatrixClient) fetch(ctx context.Context, profile string, points []domain.GeoPoint) ([][]*float64, error) {
	coords := make([]string, 0, len(points))
	for _, p := range points {
		coords = append(coords, pointID(p))
	}

	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") +
		fmt.Sprintf("/directions-matrix/v1/mapbox/%s/%s", profile, strings.Join(coords, ";")))
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("annotations", "duration")
	q.Set("access_token", c.AccessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox matrix http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("mapbox matrix bad status: %s", resp.Status)
	}

	var payload struct {
		Code      string       `json:"code"`
		Durations [][]*float64 `json:"durations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("mapbox decode: %w", err)
	}
	if payload.Code != "" && payload.Code != "Ok" {
		return nil, fmt.Errorf("mapbox matrix code %s", payload.Code)
	}
	return payload.Durations, nil
}
