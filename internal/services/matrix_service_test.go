package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
)

var legPoints = []domain.GeoPoint{{Lat: 48.86, Lng: 2.33}, {Lat: 48.85, Lng: 2.35}, {Lat: 48.87, Lng: 2.30}}

func TestMapboxLegsAreCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.True(t, strings.HasPrefix(r.URL.Path, "/directions-matrix/v1/mapbox/walking/"), r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"code":"Ok","durations":[[0,600,null],[590,0,1250],[900,1200,0]]}`))
	}))
	defer srv.Close()

	c := NewMapboxMatrixClient("tok", NewInMemoryPairCache(), nil)
	c.BaseURL = srv.URL
	fallback := HaversineEstimator{}.Legs(context.Background(), legPoints, domain.ModeWalking)

	legs := c.Legs(context.Background(), legPoints, domain.ModeWalking)
	assert.Equal(t, []int{0, 10, 21}, legs)

	again := c.Legs(context.Background(), legPoints[:2], domain.ModeWalking)
	assert.Equal(t, []int{0, 10}, again)
	assert.Equal(t, 1, calls)

	reversed := []domain.GeoPoint{legPoints[2], legPoints[0]}
	c.Legs(context.Background(), reversed, domain.ModeWalking)
	assert.Equal(t, 2, calls, "pairs are directional")
	assert.NotZero(t, fallback[1])
}

func TestMapboxFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewMapboxMatrixClient("bad", NewInMemoryPairCache(), nil)
	c.BaseURL = srv.URL
	want := HaversineEstimator{}.Legs(context.Background(), legPoints, domain.ModeWalking)

	assert.Equal(t, want, c.Legs(context.Background(), legPoints, domain.ModeWalking))

	transit := HaversineEstimator{}.Legs(context.Background(), legPoints, domain.ModeTransit)
	assert.Equal(t, transit, c.Legs(context.Background(), legPoints, domain.ModeTransit), "no transit profile")
}

func TestPairCacheHonoursTTL(t *testing.T) {
	c := NewInMemoryPairCache()
	ab := pairKey{Mode: "walking", A: "2.33000,48.86000", B: "2.35000,48.85000"}
	ba := pairKey{Mode: "walking", A: ab.B, B: ab.A}

	c.Set(ab, 12, time.Hour)
	got, ok := c.Get(ab)
	require.True(t, ok)
	assert.Equal(t, 12, got)
	_, ok = c.Get(ba)
	assert.False(t, ok, "reverse direction is a different pair")

	c.Set(ba, 14, time.Millisecond)
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ba)
		return !ok
	}, time.Second, 5*time.Millisecond)
	_, ok = c.Get(ab)
	assert.True(t, ok)
}
