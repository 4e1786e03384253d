package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
	"wayfarer/pkg/llm"
)

func TestClassifyWithRules(t *testing.T) {
	svc := NewIntentService(llm.Disabled{}, nil, nil)
	planned := domain.ConversationContext{State: domain.StatePlanned, HasItinerary: true, Days: 3}
	collecting := domain.ConversationContext{State: domain.StateCollecting}
	confirming := domain.ConversationContext{State: domain.StateConfirming}

	cases := []struct {
		name     string
		text     string
		cc       domain.ConversationContext
		intent   domain.Intent
		editType domain.EditType
		days     []int
	}{
		{name: "plan request", text: "I want to plan 3 days in Lisbon", cc: collecting, intent: domain.IntentPlanTrip},
		{name: "swap days", text: "swap day 1 and day 2", cc: planned, intent: domain.IntentEditItinerary, editType: domain.EditSwapDays, days: []int{1, 2}},
		{name: "transcribed swap", text: "swop they one and day three", cc: planned, intent: domain.IntentEditItinerary, editType: domain.EditSwapDays, days: []int{1, 3}},
		{name: "pace change", text: "make it more relaxed please", cc: planned, intent: domain.IntentEditItinerary, editType: domain.EditChangePace},
		{name: "question", text: "why is the Louvre on day 2?", cc: planned, intent: domain.IntentExplain, days: []int{2}},
		{name: "answer while collecting", text: "walking is fine", cc: collecting, intent: domain.IntentClarifyResponse},
		{name: "confirmation", text: "yes please", cc: confirming, intent: domain.IntentClarifyResponse},
		{name: "small talk", text: "hello there", cc: planned, intent: domain.IntentOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := svc.Classify(context.Background(), tc.text, tc.cc)
			assert.Equal(t, tc.intent, c.Intent)
			assert.Equal(t, domain.SourceRules, c.Source)
			assert.Equal(t, tc.editType, c.Entities.EditType)
			if tc.days != nil {
				assert.Equal(t, tc.days, c.Entities.Days)
			}
			assert.Greater(t, c.Confidence, 0.0)
			assert.LessOrEqual(t, c.Confidence, 1.0)
		})
	}
}

func TestEditNeedsAnItinerary(t *testing.T) {
	svc := NewIntentService(nil, nil, nil)
	c := svc.Classify(context.Background(), "swap day 1 and day 2", domain.ConversationContext{State: domain.StateCollecting})
	assert.NotEqual(t, domain.IntentEditItinerary, c.Intent)
}

func TestConfirmationEntities(t *testing.T) {
	svc := NewIntentService(nil, nil, nil)
	cc := domain.ConversationContext{State: domain.StateConfirming}

	yes := svc.Classify(context.Background(), "Sounds good, go ahead", cc)
	assert.True(t, yes.Affirmative())
	assert.Equal(t, 0.9, yes.Confidence)

	no := svc.Classify(context.Background(), "no, make it four days", cc)
	assert.True(t, no.Negative())
	assert.False(t, no.Affirmative())
}

func TestExplainTopicDropsQuestionWords(t *testing.T) {
	svc := NewIntentService(nil, nil, nil)
	c := svc.Classify(context.Background(), "tell me about the Night Market?",
		domain.ConversationContext{State: domain.StatePlanned, HasItinerary: true, Days: 3})
	require.Equal(t, domain.IntentExplain, c.Intent)
	assert.Equal(t, "the Night Market", c.Entities.Topic)
}

func TestDayReferences(t *testing.T) {
	assert.Equal(t, []int{2, 3}, dayReferences("move the second day to day 3", 3))
	assert.Equal(t, []int{4}, dayReferences("the last day", 4))
	assert.Empty(t, dayReferences("the last day", 0))
	assert.Empty(t, dayReferences("day 9 please", 3))
	assert.Equal(t, []int{9}, dayReferences("day 9 please", 0))
}

func TestClassifyWithGeneration(t *testing.T) {
	gen := llm.NewScripted().Reply("intent",
		`{"intent":"edit_itinerary","confidence":0.92,"entities":{"days":[1,9],"edit_type":"swap_days"}}`)
	svc := NewIntentService(gen, nil, nil)

	c := svc.Classify(context.Background(), "switch the first two mornings",
		domain.ConversationContext{State: domain.StatePlanned, HasItinerary: true, Days: 3})

	assert.Equal(t, domain.SourceGeneration, c.Source)
	assert.Equal(t, domain.IntentEditItinerary, c.Intent)
	assert.Equal(t, domain.EditSwapDays, c.Entities.EditType)
	assert.Equal(t, []int{1}, c.Entities.Days)
	assert.Equal(t, domain.Morning, c.Entities.TimeBlock)
	assert.InDelta(t, 0.92, c.Confidence, 1e-9)
	assert.Equal(t, 1, gen.CallsFor("intent"))
}

func TestUnknownGeneratedIntentFallsBackToRules(t *testing.T) {
	gen := llm.NewScripted().Reply("intent", `{"intent":"DANCE","confidence":0.99}`)
	svc := NewIntentService(gen, nil, nil)

	c := svc.Classify(context.Background(), "plan a weekend in Rome", domain.ConversationContext{State: domain.StateCollecting})
	assert.Equal(t, domain.SourceRules, c.Source)
	assert.Equal(t, domain.IntentPlanTrip, c.Intent)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.5, clampConfidence(0))
	assert.Equal(t, 1.0, clampConfidence(3))
	assert.Equal(t, 0.4, clampConfidence(0.4))
}
