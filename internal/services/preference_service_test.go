package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"wayfarer/internal/domain"
	"wayfarer/pkg/llm"
)

func TestExtractFromOpeningMessage(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	p := svc.Extract(context.Background(), "I want to spend 3 days in Lisbon eating great food", domain.Preferences{}, domain.FieldNone)

	assert.Equal(t, "Lisbon", p.Destination)
	assert.Equal(t, 3, p.Days)
	assert.Equal(t, []string{"food"}, p.Interests)
	assert.Empty(t, p.TravelMode)
	assert.Equal(t, domain.FieldTravelMode, svc.MissingField(p))
}

func TestExtractUnionsInterests(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	existing := domain.Preferences{Destination: "Paris", Days: 3, Interests: []string{"museum"}}

	p := svc.Extract(context.Background(), "I also love nightlife and street food", existing, domain.FieldNone)

	assert.Equal(t, []string{"museum", "food", "nightlife"}, p.Interests)
	assert.Equal(t, "Paris", p.Destination)
	assert.Equal(t, 3, p.Days)
	assert.Equal(t, []string{"museum"}, existing.Interests, "existing preferences are not mutated")
}

func TestExtractAnswersToQuestions(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	ctx := context.Background()

	assert.Equal(t, "Kyoto", svc.Extract(ctx, "kyoto", domain.Preferences{}, domain.FieldDestination).Destination)
	assert.Empty(t, svc.Extract(ctx, "yes", domain.Preferences{}, domain.FieldDestination).Destination)
	assert.Equal(t, 5, svc.Extract(ctx, "5", domain.Preferences{}, domain.FieldDuration).Days)
	assert.Zero(t, svc.Extract(ctx, "5", domain.Preferences{}, domain.FieldNone).Days)
	assert.True(t, svc.Extract(ctx, "I'm not sure yet", domain.Preferences{}, domain.FieldDates).FlexibleDates)
	assert.Equal(t, domain.ModeTransit, svc.Extract(ctx, "metro is fine", domain.Preferences{}, domain.FieldTravelMode).TravelMode)
}

func TestTripLength(t *testing.T) {
	cases := []struct {
		text string
		last domain.Field
		want int
	}{
		{"a long weekend", domain.FieldNone, 3},
		{"a weekend in Rome", domain.FieldNone, 2},
		{"two weeks", domain.FieldNone, 14},
		{"a week", domain.FieldNone, 7},
		{"3 nights", domain.FieldNone, 4},
		{"20", domain.FieldDuration, 14},
		{"four days", domain.FieldNone, 4},
		{"sometime soon", domain.FieldDuration, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tripLength(tc.text, tc.last), tc.text)
	}
}

func TestExtractDateRange(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	p := svc.Extract(context.Background(), "from 2026-05-01 to 2026-05-04", domain.Preferences{FlexibleDates: true}, domain.FieldDates)

	assert.Equal(t, "2026-05-01", p.StartDate)
	assert.Equal(t, "2026-05-04", p.EndDate)
	assert.Equal(t, 4, p.Days)
	assert.False(t, p.FlexibleDates)
}

func TestExtractStartingPoint(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	p := svc.Extract(context.Background(), "we are staying near the Old Port", domain.Preferences{}, domain.FieldNone)
	assert.Equal(t, "Old Port", p.StartingPoint)
}

func TestExtractOverlaysGeneratedSlots(t *testing.T) {
	gen := llm.NewScripted().Reply("preferences",
		`{"destination":"Porto","days":4,"interests":["Wine"],"pace":"relaxed","travel_mode":"transit"}`)
	svc := NewPreferenceService(gen, nil, "", nil)

	p := svc.Extract(context.Background(), "somewhere with good port", domain.Preferences{}, domain.FieldNone)

	assert.Equal(t, "Porto", p.Destination)
	assert.Equal(t, 4, p.Days)
	assert.Equal(t, domain.PaceRelaxed, p.Pace)
	assert.Equal(t, domain.ModeTransit, p.TravelMode)
	assert.Equal(t, []string{"wine"}, p.Interests)
}

func TestMissingFieldOrder(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	p := domain.Preferences{}
	assert.Equal(t, domain.FieldDestination, svc.MissingField(p))
	p.Destination = "Rome"
	assert.Equal(t, domain.FieldDuration, svc.MissingField(p))
	p.Days = 2
	assert.Equal(t, domain.FieldTravelMode, svc.MissingField(p))
	p.TravelMode = domain.ModeWalking
	assert.Equal(t, domain.FieldDates, svc.MissingField(p))
	p.FlexibleDates = true
	assert.Equal(t, domain.FieldNone, svc.MissingField(p))

	for _, f := range []domain.Field{domain.FieldDestination, domain.FieldDuration, domain.FieldTravelMode, domain.FieldDates} {
		assert.Contains(t, svc.NextClarifyingQuestion(f), "?")
	}
}

func TestApplyDefaults(t *testing.T) {
	svc := NewPreferenceService(nil, nil, "", nil)
	p, filled := svc.ApplyDefaults(domain.Preferences{Interests: []string{"art"}})

	assert.Equal(t, "Paris", p.Destination)
	assert.Equal(t, 3, p.Days)
	assert.Equal(t, domain.ModeWalking, p.TravelMode)
	assert.True(t, p.FlexibleDates)
	assert.Equal(t, domain.PaceModerate, p.Pace)
	assert.Equal(t, []string{"art"}, p.Interests)
	assert.Equal(t, []string{"destination Paris", "3 days", "walking", "flexible dates", "moderate pace"}, filled)
	assert.Equal(t, domain.FieldNone, svc.MissingField(p))

	summary := svc.Summary(p)
	assert.Contains(t, summary, "3 days in Paris at a moderate pace")
	assert.Contains(t, summary, "flexible dates")
}
