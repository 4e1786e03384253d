package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dayPlan struct {
	Days []struct {
		Day     int      `json:"day"`
		Morning []string `json:"morning"`
	} `json:"days"`
}

func (p dayPlan) Validate() error {
	if len(p.Days) == 0 {
		return errors.New("no days")
	}
	return nil
}

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":                  `{"a":1}`,
		"Here is the JSON: {\"a\":\"}\"} trailing": `{"a":"}"}`,
		"noise [1,[2,3]] more":                     `[1,[2,3]]`,
		`{"a":"say \"hi\" {"}`:                     `{"a":"say \"hi\" {"}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanJSON(in), in)
	}
}

func TestGenerateJSONDecodesAndValidates(t *testing.T) {
	g := NewScripted().
		Reply("plan", "Sure!\n```json\n{\"days\":[{\"day\":1,\"morning\":[\"otm:1\"]}]}\n```").
		Reply("plan", `{"days":[]}`).
		Reply("plan", `not json at all`)

	plan, err := GenerateJSON[dayPlan](context.Background(), g, Request{Purpose: "plan"})
	require.NoError(t, err)
	assert.Equal(t, []string{"otm:1"}, plan.Days[0].Morning)

	_, err = GenerateJSON[dayPlan](context.Background(), g, Request{Purpose: "plan"})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = GenerateJSON[dayPlan](context.Background(), g, Request{Purpose: "plan"})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = GenerateJSON[dayPlan](context.Background(), g, Request{Purpose: "plan"})
	assert.ErrorIs(t, err, ErrUnavailable)

	for _, call := range g.Calls() {
		assert.True(t, call.JSON)
	}
}

func TestGenerateJSONNilGenerator(t *testing.T) {
	_, err := GenerateJSON[dayPlan](context.Background(), nil, Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

type slowGenerator struct{}

func (slowGenerator) Name() string { return "slow" }
func (slowGenerator) Generate(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestInstrumentAppliesTimeout(t *testing.T) {
	g := Instrument(slowGenerator{}, 10*time.Millisecond, nil, nil)
	_, err := g.Generate(context.Background(), Request{Purpose: "classify"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "slow", g.Name())
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHashEmbedderIsDeterministic(t *testing.T) {
	a, err := HashEmbedder{}.Embed(context.Background(), "street food market")
	require.NoError(t, err)
	b, err := HashEmbedder{}.Embed(context.Background(), "Street food market")
	require.NoError(t, err)
	assert.Equal(t, a.Slice(), b.Slice())
	assert.Len(t, a.Slice(), EmbeddingDimensions)
}
