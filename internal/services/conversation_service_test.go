package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
	"wayfarer/internal/models/response_models"
	"wayfarer/pkg/llm"
	mem "wayfarer/pkg/memcache"
	"wayfarer/pkg/utils"
)

func newConversation(t *testing.T, gw POIGatewayInterface, webhookURL string) ConversationServiceInterface {
	t.Helper()
	if gw == nil {
		fixtures, err := NewFixtureProvider()
		require.NoError(t, err)
		gw = NewPOIGateway(fixtures, nil, NewMemoryPOICache(time.Minute), GatewayOptions{}, nil, nil)
	}
	eval, err := NewEvaluationService(DefaultWindow(), nil)
	require.NoError(t, err)
	return NewConversationService(ConversationDeps{
		Store:       mem.NewSessions(time.Hour),
		Intent:      NewIntentService(nil, nil, nil),
		Preferences: NewPreferenceService(nil, nil, "", nil),
		Gateway:     gw,
		Builder:     NewItineraryBuilder(llm.Disabled{}, nil, DefaultWindow(), nil),
		Parser:      NewEditParser(nil, nil, nil),
		Editor:      NewEditService(gw, nil, DefaultWindow(), nil, nil),
		Evaluator:   eval,
		Explainer:   NewExplainService(nil, nil, nil),
		Exporter:    NewExportService(webhookURL, time.Second, nil),
	})
}

func chat(t *testing.T, conv ConversationServiceInterface, id, msg string) response_models.ChatResponse {
	t.Helper()
	out, err := conv.Chat(context.Background(), id, msg)
	require.NoError(t, err)
	return out
}

// planSampleville walks a conversation up to a built itinerary.
func planSampleville(t *testing.T, conv ConversationServiceInterface) string {
	t.Helper()
	out := chat(t, conv, "", "Plan a relaxed 2 days in Sampleville for food")
	require.NotEmpty(t, out.SessionID)
	id := out.SessionID

	chat(t, conv, id, "walking")
	chat(t, conv, id, "I'm flexible")
	out = chat(t, conv, id, "yes")
	require.Equal(t, response_models.StatusSuccess, out.Status, out.Message)
	require.Equal(t, domain.StatePlanned, out.State)
	return id
}

func TestConversationPlansATrip(t *testing.T) {
	conv := newConversation(t, nil, "")

	out := chat(t, conv, "", "Plan a relaxed 2 days in Sampleville for food")
	assert.Equal(t, response_models.StatusClarifying, out.Status)
	assert.Equal(t, domain.StateCollecting, out.State)
	assert.Equal(t, domain.IntentPlanTrip, out.Intent)
	assert.Contains(t, out.Message, "How would you like to get around")
	id := out.SessionID

	out = chat(t, conv, id, "walking")
	assert.Equal(t, response_models.StatusClarifying, out.Status)
	assert.Contains(t, out.Message, "travel dates")

	out = chat(t, conv, id, "I'm flexible")
	assert.Equal(t, response_models.StatusConfirmationRequired, out.Status)
	assert.Equal(t, domain.StateConfirming, out.State)
	assert.Equal(t, "Here's what I have: 2 days in Sampleville at a relaxed pace, getting around by walking, focusing on food, with flexible dates. Shall I build the itinerary?", out.Message)

	out = chat(t, conv, id, "yes")
	assert.Equal(t, response_models.StatusSuccess, out.Status)
	assert.Equal(t, domain.StatePlanned, out.State)
	assert.True(t, strings.HasPrefix(out.Message, "Here's your 2-day itinerary for Sampleville with 6 activities."), out.Message)
	require.NotNil(t, out.Itinerary)
	assert.Len(t, out.Itinerary.DayPlans, 2)
	assert.Len(t, out.Sources, 6)
	require.NotNil(t, out.Evaluation)
	assert.True(t, out.Evaluation.Feasibility.IsFeasible, out.Evaluation.Feasibility.Violations)
	assert.True(t, out.Evaluation.Grounding.IsGrounded, out.Evaluation.Grounding.MissingCitations)

	snap, err := conv.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePlanned, snap.State)
	assert.Equal(t, 2, snap.ClarificationCount)
	assert.Len(t, snap.History, 8)
	assert.Equal(t, domain.RoleUser, snap.History[0].Role)
	assert.Equal(t, domain.RoleAssistant, snap.History[7].Role)
}

func TestConversationFallsBackToDefaults(t *testing.T) {
	conv := newConversation(t, nil, "")

	out := chat(t, conv, "", "hello")
	assert.Equal(t, "Where would you like to go?", out.Message)
	id := out.SessionID

	for i := 0; i < 5; i++ {
		out = chat(t, conv, id, "no idea")
		assert.Equal(t, response_models.StatusClarifying, out.Status)
	}

	out = chat(t, conv, id, "no idea")
	assert.Equal(t, response_models.StatusConfirmationRequired, out.Status)
	assert.Equal(t, domain.StateConfirming, out.State)
	assert.Contains(t, out.Message, "I'll fill in the rest with sensible defaults (destination Paris, 3 days, walking, flexible dates, moderate pace, sightseeing).")
	assert.Contains(t, out.Message, "3 days in Paris")

	snap, err := conv.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.ClarificationCount, "the cap is never exceeded")
}

func TestConversationNegativeConfirmation(t *testing.T) {
	conv := newConversation(t, nil, "")
	id := chat(t, conv, "", "Plan a relaxed 2 days in Sampleville for food").SessionID
	chat(t, conv, id, "walking")
	chat(t, conv, id, "I'm flexible")

	out := chat(t, conv, id, "nope")
	assert.Equal(t, response_models.StatusClarifying, out.Status)
	assert.Equal(t, domain.StateCollecting, out.State)
	assert.Equal(t, "No problem. What would you like to change?", out.Message)

	out = chat(t, conv, id, "make it 3 days")
	assert.Equal(t, response_models.StatusConfirmationRequired, out.Status)
	assert.Contains(t, out.Message, "3 days in Sampleville")
}

func TestConversationEditBeforePlanning(t *testing.T) {
	conv := newConversation(t, nil, "")
	id := chat(t, conv, "", "Plan a relaxed 2 days in Sampleville for food").SessionID

	_, err := conv.Edit(context.Background(), id, "swap day 1 and day 2")
	assert.True(t, errors.Is(err, utils.ErrNoItinerary))

	_, err = conv.Explain(context.Background(), id, "why the bakery?")
	assert.True(t, errors.Is(err, utils.ErrNoItinerary))

	_, err = conv.Export(context.Background(), id, "me@example.com")
	assert.True(t, errors.Is(err, utils.ErrNoItinerary))
}

func TestConversationBuildFailureKeepsConfirming(t *testing.T) {
	gw := &stubGateway{err: utils.ErrProviderExhausted}
	conv := newConversation(t, gw, "")
	id := chat(t, conv, "", "Plan a relaxed 2 days in Sampleville for food").SessionID
	chat(t, conv, id, "walking")
	chat(t, conv, id, "I'm flexible")

	out := chat(t, conv, id, "yes")
	assert.Equal(t, response_models.StatusError, out.Status)
	assert.Equal(t, utils.KindProviderFailure, out.Kind)
	assert.Equal(t, domain.StateConfirming, out.State)
	assert.True(t, strings.HasSuffix(out.Message, "Reply yes to try again, or change your preferences."), out.Message)

	gw.err = nil
	gw.pois = fixturePOIs(t, "Sampleville", "food")
	out = chat(t, conv, id, "yes")
	assert.Equal(t, response_models.StatusSuccess, out.Status)
	assert.Equal(t, domain.StatePlanned, out.State)
	assert.Equal(t, 2, gw.calls)
}

func TestConversationEditsInChat(t *testing.T) {
	conv := newConversation(t, nil, "")
	id := planSampleville(t, conv)
	before, err := conv.Snapshot(id)
	require.NoError(t, err)

	out := chat(t, conv, id, "swap day 1 and day 2")
	assert.Equal(t, domain.IntentEditItinerary, out.Intent)
	assert.Equal(t, response_models.StatusSuccess, out.Status)
	assert.Equal(t, "Done: swapped day 1 and day 2.", out.Message)
	require.NotNil(t, out.Itinerary)
	assert.Equal(t, before.Itinerary.DayPlans[0].Activities()[0].Name, out.Itinerary.DayPlans[1].Activities()[0].Name)
	require.NotNil(t, out.Evaluation.EditCorrectness)
	assert.True(t, out.Evaluation.EditCorrectness.IsCorrect, out.Evaluation.EditCorrectness.Violations)

	out = chat(t, conv, id, "swap day 1 and day 9")
	assert.Equal(t, response_models.StatusClarifying, out.Status)
	assert.Contains(t, out.Message, "has 2 days")
	assert.Equal(t, domain.StatePlanned, out.State)
}

func TestConversationEditEndpoint(t *testing.T) {
	conv := newConversation(t, nil, "")
	id := planSampleville(t, conv)

	res, err := conv.Edit(context.Background(), id, "can you make the pace fast")
	require.NoError(t, err)
	assert.Equal(t, domain.EditChangePace, res.EditType)
	assert.True(t, strings.HasPrefix(res.Message, "Done: switched to a fast pace."), res.Message)
	assert.Contains(t, res.ModifiedSection, "pace")
	assert.Equal(t, domain.PaceFast, res.Itinerary.Pace)

	snap, err := conv.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaceFast, snap.Preferences.Pace)
	assert.Len(t, snap.History, 10)

	_, err = conv.Edit(context.Background(), id, "do a backflip")
	require.Error(t, err)
	assert.Equal(t, utils.KindEditParseFailure, utils.KindOf(err))

	_, err = conv.Edit(context.Background(), id, "  ")
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	out := chat(t, conv, id, "make it 3 days")
	assert.Equal(t, domain.StateConfirming, out.State)
	assert.Contains(t, out.Message, "I'll plan that as a new itinerary.")

	_, err = conv.Edit(context.Background(), id, "swap day 1 and day 2")
	assert.True(t, errors.Is(err, utils.ErrInvalidState))
}

func TestConversationResponsesDoNotAliasSession(t *testing.T) {
	conv := newConversation(t, nil, "")
	out := chat(t, conv, "", "Plan a relaxed 2 days in Sampleville for food")
	id := out.SessionID
	chat(t, conv, id, "walking")
	chat(t, conv, id, "I'm flexible")
	out = chat(t, conv, id, "yes")
	require.NotNil(t, out.Itinerary)

	first := out.Itinerary.DayPlans[0].Blocks[0].Activities[0].Name
	out.Itinerary.DayPlans[0].Blocks[0].Activities[0].Name = "Scribbled"
	out.Itinerary.Pace = domain.PaceFast

	snap, err := conv.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, first, snap.Itinerary.DayPlans[0].Blocks[0].Activities[0].Name)
	assert.Equal(t, domain.PaceRelaxed, snap.Itinerary.Pace)

	snap.Itinerary.DayPlans = nil
	edited, err := conv.Edit(context.Background(), id, "swap day 1 and day 2")
	require.NoError(t, err)
	require.Len(t, edited.Itinerary.DayPlans, 2)
	edited.Itinerary.DayPlans[1].Blocks[0].Activities = nil

	chatted := chat(t, conv, id, "swap day 1 and day 2")
	require.NotNil(t, chatted.Itinerary)
	require.NotEmpty(t, chatted.Itinerary.DayPlans[0].Blocks[0].Activities)
	assert.Equal(t, first, chatted.Itinerary.DayPlans[0].Blocks[0].Activities[0].Name)
	chatted.Itinerary.DayPlans = nil

	snap, err = conv.Snapshot(id)
	require.NoError(t, err)
	require.Len(t, snap.Itinerary.DayPlans, 2)
	assert.Equal(t, first, snap.Itinerary.DayPlans[0].Blocks[0].Activities[0].Name)
}

func TestConversationExplains(t *testing.T) {
	conv := newConversation(t, nil, "")
	id := planSampleville(t, conv)

	out := chat(t, conv, id, "why is Noodle House on the list?")
	assert.Equal(t, domain.IntentExplain, out.Intent)
	assert.Equal(t, response_models.StatusSuccess, out.Status)
	assert.Contains(t, out.Message, "Noodle House is scheduled on day")
	require.NotEmpty(t, out.Sources)
	assert.Equal(t, "fixture:sv-noodles", out.Sources[0].Locator)

	res, err := conv.Explain(context.Background(), id, "tell me about Central Market")
	require.NoError(t, err)
	assert.Contains(t, res.Explanation, "Central Market")

	_, err = conv.Explain(context.Background(), id, "")
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestConversationExports(t *testing.T) {
	srv, got := webhook(t, http.StatusOK, `{"email_sent":true}`)
	conv := newConversation(t, nil, srv.URL)
	id := planSampleville(t, conv)

	res, err := conv.Export(context.Background(), id, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, response_models.StatusSuccess, res.Status)
	require.NotNil(t, res.EmailSent)
	assert.True(t, *res.EmailSent)
	assert.Equal(t, "me@example.com", res.EmailAddress)
	assert.Equal(t, "Sampleville", got.Itinerary.Destination)
	assert.Len(t, got.Sources, 6)

	_, err = conv.Export(context.Background(), id, "nobody")
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestConversationResetDestroysSession(t *testing.T) {
	conv := newConversation(t, nil, "")
	id := planSampleville(t, conv)

	out := chat(t, conv, id, "start over")
	assert.Equal(t, domain.StateReset, out.State)
	assert.Contains(t, out.Message, "Starting over")

	_, err := conv.Snapshot(id)
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))

	id = chat(t, conv, "", "hello").SessionID
	require.NoError(t, conv.Reset(id))
	_, err = conv.Snapshot(id)
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}

func TestConversationInputErrors(t *testing.T) {
	conv := newConversation(t, nil, "")

	_, err := conv.Chat(context.Background(), "", "   ")
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	_, err = conv.Chat(context.Background(), "missing", "hello")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}
