package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
)

// flatLegs charges the same number of minutes for every leg.
type flatLegs struct{ minutes int }

func (f flatLegs) Legs(_ context.Context, points []domain.GeoPoint, _ domain.TravelMode) []int {
	out := make([]int, len(points))
	for i := 1; i < len(out); i++ {
		out[i] = f.minutes
	}
	return out
}

func testPOI(id, name, category string, lat, lng float64, duration int) domain.POI {
	rating := 4.5
	return domain.POI{
		Name:            name,
		Category:        category,
		Tags:            []string{category},
		Location:        domain.GeoPoint{Lat: lat, Lng: lng},
		DurationMinutes: duration,
		OpeningHours:    "08:00-22:00",
		SourceLocator:   "fixture:" + id,
		Rating:          &rating,
	}
}

func fixturePOIs(t *testing.T, destination string, interests ...string) []domain.POI {
	t.Helper()
	p, err := NewFixtureProvider()
	require.NoError(t, err)
	pois, err := p.Search(context.Background(), POIQuery{Destination: destination, Interests: interests})
	require.NoError(t, err)
	return pois
}

// threeDayTrip is a moderate trip with one activity per block, scheduled
// with 10 minute legs.
func threeDayTrip() domain.Itinerary {
	it := domain.Itinerary{
		Destination: "Testville",
		Days:        3,
		Pace:        domain.PaceModerate,
		Interests:   []string{"museum"},
		TravelMode:  domain.ModeWalking,
	}
	names := [][3]string{
		{"Old Town Museum", "Harbour Cafe", "Night Market"},
		{"Castle Hill", "Art Gallery", "Jazz Club"},
		{"Botanical Garden", "Science Centre", "River Cruise"},
	}
	categories := [3]string{"museum", "food", "nightlife"}
	for d := 0; d < 3; d++ {
		day := domain.NewDay(d+1, "")
		for b := 0; b < 3; b++ {
			id := fmtID(d, b)
			p := testPOI(id, names[d][b], categories[b], 50+float64(d)*0.01, 10+float64(b)*0.01, 60)
			day.Blocks[b].Activities = append(day.Blocks[b].Activities, domain.ActivityFromPOI(p))
		}
		it.DayPlans = append(it.DayPlans, day)
	}
	Schedule(context.Background(), &it, DefaultWindow(), flatLegs{minutes: 10})
	return it
}

func fmtID(day, block int) string {
	return string(rune('a'+day)) + string(rune('0'+block))
}
