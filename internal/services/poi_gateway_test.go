package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
	"wayfarer/pkg/metrics"
	"wayfarer/pkg/utils"
)

type fakeProvider struct {
	name    string
	pois    []domain.POI
	errs    []error
	queries []POIQuery
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, q POIQuery) ([]domain.POI, error) {
	f.queries = append(f.queries, q)
	if n := len(f.queries); n <= len(f.errs) && f.errs[n-1] != nil {
		return nil, f.errs[n-1]
	}
	return f.pois, nil
}

func samplePOIs() []domain.POI {
	return []domain.POI{
		testPOI("p1", "Louvre", "museum", 48.86, 2.33, 120),
		testPOI("p2", "Orsay", "museum", 48.86, 2.32, 120),
	}
}

var fastRetries = GatewayOptions{Retries: 2, Backoff: time.Millisecond}

func TestGatewayUsesPrimaryAndCaches(t *testing.T) {
	primary := &fakeProvider{name: "primary", pois: samplePOIs()}
	secondary := &fakeProvider{name: "secondary", pois: samplePOIs()}
	gw := NewPOIGateway(primary, secondary, NewMemoryPOICache(time.Minute), fastRetries, nil, nil)

	pois, err := gw.Search(context.Background(), "Paris", []string{"Museum"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pois, 2)
	require.Len(t, primary.queries, 1)
	assert.Equal(t, 5000, primary.queries[0].RadiusMeters)
	assert.Equal(t, 40, primary.queries[0].Limit)
	assert.Empty(t, secondary.queries)

	_, err = gw.Search(context.Background(), "paris", []string{"museum"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, primary.queries, 1, "second search is served from the cache")
}

func TestGatewayRetriesTransientFailures(t *testing.T) {
	flaky := errors.New("timeout")
	primary := &fakeProvider{name: "primary", pois: samplePOIs(), errs: []error{flaky, flaky}}
	gw := NewPOIGateway(primary, nil, nil, fastRetries, nil, nil)

	pois, err := gw.Search(context.Background(), "Paris", nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pois, 2)
	assert.Len(t, primary.queries, 3)
}

func TestGatewayFallsBackOnPermanentFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", errs: []error{permanent(errors.New("bad key"))}}
	secondary := &fakeProvider{name: "secondary", pois: samplePOIs()}
	gw := NewPOIGateway(primary, secondary, nil, fastRetries, nil, nil)

	pois, err := gw.Search(context.Background(), "Paris", []string{"museum"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pois, 2)
	assert.Len(t, primary.queries, 1, "permanent errors are not retried")
	assert.Len(t, secondary.queries, 1)
}

func TestGatewayFallsBackOnEmptyResults(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	secondary := &fakeProvider{name: "secondary", pois: samplePOIs()}
	gw := NewPOIGateway(primary, secondary, nil, GatewayOptions{}, nil, nil)

	pois, err := gw.Search(context.Background(), "Paris", nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pois, 2)
}

func TestGatewayExhausted(t *testing.T) {
	down := permanent(errors.New("down"))
	primary := &fakeProvider{name: "primary", errs: []error{down, down}}
	secondary := &fakeProvider{name: "secondary", errs: []error{down}}
	m := metrics.New()
	gw := NewPOIGateway(primary, secondary, nil, GatewayOptions{}, nil, m)

	_, err := gw.Search(context.Background(), "Paris", []string{"museum"}, 1000, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrProviderExhausted))
	assert.Equal(t, utils.KindProviderFailure, utils.KindOf(err))

	require.Len(t, primary.queries, 2)
	reduced := primary.queries[1]
	assert.Nil(t, reduced.Interests)
	assert.Equal(t, 2000, reduced.RadiusMeters)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "wayfarer_poi_provider_calls_total" {
			found = true
			assert.Len(t, f.GetMetric(), 3, "one series per strategy")
		}
	}
	assert.True(t, found)
}

func TestGatewayDeduplicatesAndValidates(t *testing.T) {
	dup := append(samplePOIs(), samplePOIs()[0])
	gw := NewPOIGateway(&fakeProvider{name: "p", pois: dup}, nil, nil, GatewayOptions{}, nil, nil)

	pois, err := gw.Search(context.Background(), "Paris", nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pois, 2)

	_, err = gw.Search(context.Background(), "  ", nil, 0, 0)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestPOICacheKeyIsNormalized(t *testing.T) {
	a := poiCacheKey(POIQuery{Destination: "Paris", Interests: []string{"Museum", "food"}, RadiusMeters: 5000, Limit: 40})
	b := poiCacheKey(POIQuery{Destination: "paris", Interests: []string{"food", "museum", "food"}, RadiusMeters: 5000, Limit: 40})
	assert.Equal(t, a, b)
	assert.Equal(t, "poi:paris|food,museum|5000|40", a)
}

func TestRedisPOICache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisPOICache(client, 10*time.Minute, nil)
	ctx := context.Background()

	_, ok := c.Get(ctx, "poi:paris")
	assert.False(t, ok)

	c.Set(ctx, "poi:paris", samplePOIs())
	got, ok := c.Get(ctx, "poi:paris")
	require.True(t, ok)
	assert.Equal(t, samplePOIs(), got)
	assert.Equal(t, 10*time.Minute, mr.TTL("poi:paris"))

	mr.FastForward(11 * time.Minute)
	_, ok = c.Get(ctx, "poi:paris")
	assert.False(t, ok)

	require.NoError(t, mr.Set("poi:broken", "not json"))
	_, ok = c.Get(ctx, "poi:broken")
	assert.False(t, ok)
}

func TestMemoryPOICacheReturnsCopies(t *testing.T) {
	c := NewMemoryPOICache(time.Minute)
	ctx := context.Background()
	c.Set(ctx, "k", samplePOIs())

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	got[0].Name = "changed"

	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "Louvre", again[0].Name)
}

func TestOpenTripMapProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/places/geoname":
			if r.URL.Query().Get("name") == "Atlantis" {
				_, _ = w.Write([]byte(`{"error":"Unknown place"}`))
				return
			}
			_, _ = w.Write([]byte(`{"name":"Paris","lat":48.8566,"lon":2.3522,"status":"OK"}`))
		case "/places/radius":
			assert.Equal(t, "museums,foods", r.URL.Query().Get("kinds"))
			assert.Equal(t, "5000", r.URL.Query().Get("radius"))
			_, _ = w.Write([]byte(`[
				{"xid":"W123","name":"Musée d'Orsay","rate":7,"kinds":"museums,cultural,interesting_places","point":{"lon":2.3266,"lat":48.86}},
				{"xid":"N9","name":"","rate":1,"kinds":"foods","point":{"lon":2.3,"lat":48.8}}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOpenTripMapProvider("secret", 5*time.Second)
	p.BaseURL = srv.URL

	pois, err := p.Search(context.Background(), POIQuery{Destination: "Paris", Interests: []string{"museum", "food"}, RadiusMeters: 5000, Limit: 20})
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "otm:W123", pois[0].SourceLocator)
	assert.Equal(t, "museum", pois[0].Category)
	assert.Equal(t, 120, pois[0].DurationMinutes)
	require.NotNil(t, pois[0].Rating)
	assert.Equal(t, 7.0, *pois[0].Rating)
	assert.InDelta(t, 48.86, pois[0].Location.Lat, 1e-9)

	_, err = p.Search(context.Background(), POIQuery{Destination: "Atlantis", RadiusMeters: 5000, Limit: 20})
	require.Error(t, err)
	assert.True(t, isPermanent(err))
}

func statusServer(t *testing.T, code int) *OpenTripMapProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	p := NewOpenTripMapProvider("secret", time.Second)
	p.BaseURL = srv.URL
	return p
}

func TestOpenTripMapStatusHandling(t *testing.T) {
	_, err := statusServer(t, http.StatusServiceUnavailable).Search(context.Background(), POIQuery{Destination: "Paris"})
	require.Error(t, err)
	assert.False(t, isPermanent(err), "5xx may succeed on retry")

	_, err = statusServer(t, http.StatusTooManyRequests).Search(context.Background(), POIQuery{Destination: "Paris"})
	assert.False(t, isPermanent(err))

	_, err = statusServer(t, http.StatusUnauthorized).Search(context.Background(), POIQuery{Destination: "Paris"})
	assert.True(t, isPermanent(err))

	_, err = NewOpenTripMapProvider("", time.Second).Search(context.Background(), POIQuery{Destination: "Paris"})
	assert.True(t, isPermanent(err))
}

func TestKindsAndCategories(t *testing.T) {
	assert.Equal(t, "interesting_places", kindsFor(nil))
	assert.Equal(t, "bars,pubs,nightclubs", kindsFor([]string{"Nightlife", "unknown"}))
	assert.Equal(t, "cafe", categoryFromKinds("foods,cafes"))
	assert.Equal(t, "sightseeing", categoryFromKinds("skyscrapers"))
}
