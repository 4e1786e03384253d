package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

type stubGateway struct {
	pois  []domain.POI
	err   error
	calls int
}

func (s *stubGateway) Search(_ context.Context, _ string, _ []string, _, _ int) ([]domain.POI, error) {
	s.calls++
	return s.pois, s.err
}

// extraPOIs are unused places near threeDayTrip's activities.
func extraPOIs() []domain.POI {
	return []domain.POI{
		testPOI("x1", "Corner Coffee", "cafe", 50.011, 10.011, 45),
		testPOI("x2", "Fish Kitchen", "food", 50.001, 10.012, 60),
		testPOI("x3", "Modern Art Museum", "museum", 50.021, 10.001, 90),
		testPOI("x4", "Harbour Museum", "museum", 50.002, 10.002, 60),
		testPOI("x5", "City Museum", "museum", 50.012, 10.003, 60),
		testPOI("x6", "Rail Museum", "museum", 50.022, 10.004, 60),
	}
}

func newEditFixture(gw POIGatewayInterface) (EditServiceInterface, EvaluationServiceInterface) {
	eval, _ := NewEvaluationService(DefaultWindow(), nil)
	return NewEditService(gw, nil, DefaultWindow(), flatLegs{minutes: 10}, nil), eval
}

func TestSwapDaysOnlyTouchesBothDays(t *testing.T) {
	edits, eval := newEditFixture(nil)
	before := threeDayTrip()
	snapshot := before.Clone()
	cmd := domain.EditCommand{Type: domain.EditSwapDays, SourceDay: 1, TargetDay: 3}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	after := res.Itinerary
	assert.Equal(t, "Botanical Garden", after.DayPlans[0].Blocks[0].Activities[0].Name)
	assert.Equal(t, "Old Town Museum", after.DayPlans[2].Blocks[0].Activities[0].Name)
	assert.Equal(t, 1, after.DayPlans[0].Number)
	assert.Equal(t, snapshot, before, "input itinerary must not change")

	check := eval.EditCorrectness(before, after, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	assert.ElementsMatch(t, []string{
		"day[1].morning", "day[1].afternoon", "day[1].evening",
		"day[3].morning", "day[3].afternoon", "day[3].evening",
	}, check.ModifiedSections)
	assert.Contains(t, check.UnchangedSections, "day[2].morning")
	assert.Contains(t, check.UnchangedSections, "pace")
}

func TestAddActivityTouchesOneBlock(t *testing.T) {
	gw := &stubGateway{pois: extraPOIs()}
	edits, eval := newEditFixture(gw)
	before := threeDayTrip()
	cmd := domain.EditCommand{Type: domain.EditAddActivity, SourceDay: 2, TimeBlock: domain.Afternoon, Query: "coffee"}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	afternoon := res.Itinerary.DayPlans[1].Blocks[1].Activities
	require.Len(t, afternoon, 2)
	names := []string{afternoon[0].Name, afternoon[1].Name}
	assert.Contains(t, names, "Corner Coffee")
	require.Len(t, res.Added, 1)
	assert.Equal(t, "fixture:x1", res.Added[0].SourceLocator)

	check := eval.EditCorrectness(before, res.Itinerary, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	assert.Equal(t, []string{"day[2].afternoon"}, check.ModifiedSections)
	assert.Equal(t, 1, gw.calls)
}

func TestAddActivityWithoutCandidates(t *testing.T) {
	edits, _ := newEditFixture(&stubGateway{})
	cmd := domain.EditCommand{Type: domain.EditAddActivity, SourceDay: 1, TimeBlock: domain.Morning, Query: "zoo"}

	_, err := edits.Apply(context.Background(), threeDayTrip(), cmd)
	require.Error(t, err)
	assert.Equal(t, utils.KindBuildConstraint, utils.KindOf(err))
}

func TestRemoveActivity(t *testing.T) {
	edits, eval := newEditFixture(nil)
	before := threeDayTrip()
	cmd := domain.EditCommand{Type: domain.EditRemove, ActivityName: "night market"}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	assert.Empty(t, res.Itinerary.DayPlans[0].Blocks[2].Activities)
	assert.Equal(t, 2, res.Itinerary.DayPlans[0].Count())
	require.Len(t, res.Itinerary.Warnings, 1)
	assert.Contains(t, res.Itinerary.Warnings[0], "fewer than a moderate pace")

	check := eval.EditCorrectness(before, res.Itinerary, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	assert.Equal(t, []string{"day[1].evening"}, check.ModifiedSections)
}

func TestRemoveUnknownActivity(t *testing.T) {
	edits, _ := newEditFixture(nil)
	_, err := edits.Apply(context.Background(), threeDayTrip(),
		domain.EditCommand{Type: domain.EditRemove, ActivityName: "Eiffel Tower"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrEditParse))
	assert.Contains(t, utils.MessageOf(err), "Eiffel Tower")
}

func TestSwapActivityKeepsCategory(t *testing.T) {
	edits, eval := newEditFixture(&stubGateway{pois: extraPOIs()})
	before := threeDayTrip()
	cmd := domain.EditCommand{Type: domain.EditSwapActivity, ActivityName: "Art Gallery", SourceDay: 2}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	replaced := res.Itinerary.DayPlans[1].Blocks[1].Activities
	require.Len(t, replaced, 1)
	assert.Equal(t, "Fish Kitchen", replaced[0].Name)
	assert.Equal(t, "13:00", replaced[0].Time)

	check := eval.EditCorrectness(before, res.Itinerary, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	assert.Equal(t, []string{"day[2].afternoon"}, check.ModifiedSections)
}

func TestMoveTimeBlock(t *testing.T) {
	edits, eval := newEditFixture(nil)
	before := threeDayTrip()
	cmd := domain.EditCommand{Type: domain.EditMoveTimeBlock, SourceDay: 1, TimeBlock: domain.Morning, TargetDay: 2, TargetBlock: domain.Morning}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	assert.Empty(t, res.Itinerary.DayPlans[0].Blocks[0].Activities)
	moved := res.Itinerary.DayPlans[1].Blocks[0].Activities
	require.Len(t, moved, 2)
	assert.Equal(t, "Castle Hill", moved[0].Name)
	assert.Equal(t, "Old Town Museum", moved[1].Name)
	assert.Equal(t, "10:10", moved[1].Time)

	check := eval.EditCorrectness(before, res.Itinerary, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	assert.ElementsMatch(t, []string{"day[1].morning", "day[2].morning"}, check.ModifiedSections)

	_, err = edits.Apply(context.Background(), res.Itinerary, cmd)
	require.Error(t, err)
	assert.Contains(t, utils.MessageOf(err), "already empty")
}

func TestChangePaceTopsUpDays(t *testing.T) {
	edits, eval := newEditFixture(&stubGateway{pois: extraPOIs()})
	before := threeDayTrip()
	cmd := domain.EditCommand{Type: domain.EditChangePace, Pace: domain.PaceFast}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	assert.Equal(t, domain.PaceFast, res.Itinerary.Pace)
	for _, d := range res.Itinerary.DayPlans {
		assert.Equal(t, 4, d.Count(), "day %d", d.Number)
	}
	assert.Len(t, res.Added, 3)
	assert.Empty(t, res.Itinerary.Warnings)

	check := eval.EditCorrectness(before, res.Itinerary, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	assert.Contains(t, check.ModifiedSections, "pace")
}

func TestChangePaceTrimsDays(t *testing.T) {
	edits, _ := newEditFixture(nil)
	before := threeDayTrip()
	day := &before.DayPlans[0]
	day.Blocks[1].Activities = append(day.Blocks[1].Activities,
		domain.ActivityFromPOI(testPOI("y1", "Tea House", "cafe", 50, 10.015, 30)))
	Schedule(context.Background(), &before, DefaultWindow(), flatLegs{minutes: 10})

	res, err := edits.Apply(context.Background(), before, domain.EditCommand{Type: domain.EditChangePace, Pace: domain.PaceRelaxed})
	require.NoError(t, err)

	// Equal value and rating: the latest activity goes first.
	kept := res.Itinerary.DayPlans[0].Activities()
	require.Len(t, kept, 3)
	assert.Equal(t, "Old Town Museum", kept[0].Name)
	assert.Equal(t, "Tea House", kept[2].Name)
	assert.Empty(t, res.Itinerary.DayPlans[0].Blocks[2].Activities)
}

func TestReduceTravelKeepsActivities(t *testing.T) {
	edits, eval := newEditFixture(nil)
	before := threeDayTrip()
	day := &before.DayPlans[1]
	day.Blocks[0].Activities = append(day.Blocks[0].Activities,
		domain.ActivityFromPOI(testPOI("z1", "Far Lookout", "nature", 50.2, 10.2, 30)))
	day.Blocks[1].Activities = append(day.Blocks[1].Activities,
		domain.ActivityFromPOI(testPOI("z2", "Near Square", "sightseeing", 50.011, 10.0, 30)))
	Schedule(context.Background(), &before, DefaultWindow(), flatLegs{minutes: 10})
	cmd := domain.EditCommand{Type: domain.EditReduceTravel, SourceDay: 2}

	res, err := edits.Apply(context.Background(), before, cmd)
	require.NoError(t, err)

	after := res.Itinerary.DayPlans[1]
	assert.True(t, sameLocatorSet(before.DayPlans[1].Activities(), after.Activities()))
	for i, b := range after.Blocks {
		assert.Len(t, b.Activities, len(before.DayPlans[1].Blocks[i].Activities))
	}
	check := eval.EditCorrectness(before, res.Itinerary, cmd, res.Touched)
	assert.True(t, check.IsCorrect, check.Violations)
	for _, k := range check.ModifiedSections {
		assert.Contains(t, k, "day[2]")
	}
}

func TestApplyValidatesDays(t *testing.T) {
	edits, _ := newEditFixture(nil)
	_, err := edits.Apply(context.Background(), threeDayTrip(),
		domain.EditCommand{Type: domain.EditSwapDays, SourceDay: 1, TargetDay: 5})
	require.Error(t, err)
	assert.Equal(t, utils.KindEditParseFailure, utils.KindOf(err))
}
