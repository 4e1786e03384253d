package utils

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
)

func TestClockRoundTrip(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)
	assert.Equal(t, "09:30", FormatClock(m))
	assert.Equal(t, "21:00", FormatClock(MustClock("21:00")))

	for _, bad := range []string{"", "9", "25:00", "10:61", "ab:cd", "24:30"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestDates(t *testing.T) {
	assert.Equal(t, "2026-03-02", AddDays("2026-02-28", 2))
	assert.Equal(t, "", AddDays("", 1))

	n, err := DaysBetween("2026-06-01", "2026-06-03")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = DaysBetween("2026-06-03", "2026-06-01")
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	cases := map[string]int{
		"3": 3, "2nd": 2, "1st": 1, "three": 3, "Second": 2, "last": -1, "twelve": 12,
	}
	for in, want := range cases {
		got, ok := ParseNumber(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseNumber("many")
	assert.False(t, ok)
}

func TestHaversineAndTravel(t *testing.T) {
	a := domain.GeoPoint{Lat: 48.8584, Lng: 2.2945}
	b := domain.GeoPoint{Lat: 48.8606, Lng: 2.3376}

	km := HaversineKm(a, b)
	assert.InDelta(t, 3.17, km, 0.1)
	assert.Equal(t, 0, TravelMinutes(a, a, domain.ModeWalking))
	assert.Greater(t, TravelMinutes(a, b, domain.ModeWalking), TravelMinutes(a, b, domain.ModeDriving))

	c := Centroid([]domain.GeoPoint{{Lat: 0, Lng: 0}, {Lat: 2, Lng: 4}})
	assert.Equal(t, domain.GeoPoint{Lat: 1, Lng: 2}, c)
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "cafe", NormalizeTag("  Café "))
	assert.Equal(t, "street food", NormalizeTag("Street   FOOD"))
	assert.True(t, FoldedContains("Musée d'Orsay", "musee"))
	assert.Equal(t, "New York", TitleCase("new york"))
}

func TestKindOfAndStatus(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrSessionNotFound)
	assert.Equal(t, KindSessionNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, StatusFor(KindOf(wrapped)))

	app := NewAppError(KindExternalWorkflowUnavailable, "export down", ErrWorkflowUnavailable)
	assert.Equal(t, KindExternalWorkflowUnavailable, KindOf(fmt.Errorf("x: %w", app)))
	assert.Equal(t, "export down", MessageOf(app))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(KindOf(app)))

	assert.Equal(t, http.StatusBadGateway, StatusFor(KindOf(ErrProviderExhausted)))
	assert.Equal(t, http.StatusConflict, StatusFor(KindOf(ErrNoItinerary)))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
}
