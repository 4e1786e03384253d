package domain

// Intent is the closed set of things a user turn can mean.
type Intent string

const (
	IntentPlanTrip        Intent = "PLAN_TRIP"
	IntentEditItinerary   Intent = "EDIT_ITINERARY"
	IntentExplain         Intent = "EXPLAIN"
	IntentClarifyResponse Intent = "CLARIFY_RESPONSE"
	IntentOther           Intent = "OTHER"
)

func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentPlanTrip, IntentEditItinerary, IntentExplain, IntentClarifyResponse, IntentOther:
		return Intent(s), true
	}
	return "", false
}

// Entities are the slots a classifier may fill alongside the intent.
type Entities struct {
	Days         []int         `json:"days,omitempty"`
	TimeBlock    TimeBlockName `json:"time_block,omitempty"`
	EditType     EditType      `json:"edit_type,omitempty"`
	ActivityName string        `json:"activity_name,omitempty"`
	Topic        string        `json:"topic,omitempty"`
	Confirmation *bool         `json:"confirmation,omitempty"`
}

const (
	SourceGeneration = "generation"
	SourceRules      = "rules"
)

type Classification struct {
	Intent     Intent   `json:"intent"`
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

// Affirmative reports an explicit "yes".
func (c Classification) Affirmative() bool {
	return c.Entities.Confirmation != nil && *c.Entities.Confirmation
}

// Negative reports an explicit "no".
func (c Classification) Negative() bool {
	return c.Entities.Confirmation != nil && !*c.Entities.Confirmation
}

// ConversationContext is what the classifier may know about the session.
type ConversationContext struct {
	State        State
	HasItinerary bool
	Days         int
	LastQuestion Field
}
